package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/medisage/leaflet-rag/internal/rag"
	"google.golang.org/genai"
)

const (
	geminiEmbeddingModel = "models/text-embedding-004"
	geminiChatModel      = "gemini-2.5-flash"
)

// GeminiClient serves both the embedder and generator boundaries through the
// Gemini API. Constructed once at process start.
type GeminiClient struct {
	client *genai.Client
	dim    int
}

func NewGeminiClient(ctx context.Context, apiKey string, dim int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: c, dim: dim}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		clean := normalizeWhitespace(t)
		if clean == "" {
			return nil, fmt.Errorf("empty text for embedding")
		}
		contents = append(contents, genai.NewContentFromText(clean, genai.RoleUser))
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		geminiEmbeddingModel,
		contents,
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.dim)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) != g.dim {
			return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(emb.Values), g.dim)
		}
		vec := make([]float32, g.dim)
		copy(vec, emb.Values)
		out[i] = vec
	}
	return out, nil
}

func (g *GeminiClient) Dimensions() int {
	return g.dim
}

func (g *GeminiClient) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.Text(system)[0],
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   int32(maxTokens),
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		geminiChatModel,
		genai.Text(user),
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent error: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", fmt.Errorf("model returned empty text")
	}

	return txt, nil
}

// Ping reports whether the hosted backend is usable. For an API-key backend
// the probe is credential presence; the construction already validated it,
// so a built client is considered reachable.
func (g *GeminiClient) Ping(ctx context.Context) error {
	if g.client == nil {
		return fmt.Errorf("%w: gemini client not initialized", rag.ErrGeneratorUnavailable)
	}
	return nil
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			if !space {
				b.WriteRune(' ')
				space = true
			}
		} else {
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

var _ rag.Embedder = (*GeminiClient)(nil)
var _ rag.Generator = (*GeminiClient)(nil)
