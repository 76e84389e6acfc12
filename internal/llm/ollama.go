package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medisage/leaflet-rag/internal/rag"
)

// Defaults for a locally hosted Ollama instance.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "mistral"
	DefaultEmbedModel    = "nomic-embed-text"
	DefaultOllamaTimeout = 120 * time.Second
)

// OllamaConfig holds connection settings for a local Ollama server.
type OllamaConfig struct {
	BaseURL    string
	Model      string // generation model
	EmbedModel string // embedding model
	Dimensions int
	Timeout    time.Duration
}

// OllamaClient is the local fallback for both generation and embedding when
// no hosted API key is configured.
type OllamaClient struct {
	client     *http.Client
	baseURL    string
	model      string
	embedModel string
	dim        int
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

// Temperature is always serialized: 0 is a meaningful setting for
// deterministic generation, not "unset".
type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float32 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}

	return &OllamaClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		dim:        cfg.Dimensions,
	}
}

// Complete sends the system and user content as one /api/generate prompt.
func (o *OllamaClient) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: system + "\n\n" + user,
		Stream: false,
		Options: &ollamaOptions{
			NumPredict:  maxTokens,
			Temperature: temperature,
		},
	}

	var genResp ollamaGenerateResponse
	if err := o.post(ctx, "/api/generate", reqBody, &genResp); err != nil {
		return "", err
	}
	if genResp.Response == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}

	return genResp.Response, nil
}

func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{Model: o.embedModel, Prompt: text}

	var embedResp ollamaEmbedResponse
	if err := o.post(ctx, "/api/embeddings", reqBody, &embedResp); err != nil {
		return nil, err
	}
	if len(embedResp.Embedding) != o.dim {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(embedResp.Embedding), o.dim)
	}

	out := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch loops over Embed; Ollama has no native batch endpoint.
func (o *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (o *OllamaClient) Dimensions() int {
	return o.dim
}

// Ping checks /api/tags, a cheap endpoint that answers without loading a
// model. The caller bounds the wait through ctx.
func (o *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama ping failed: %v", rag.ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama API returned status %d", rag.ErrGeneratorUnavailable, resp.StatusCode)
	}
	return nil
}

func (o *OllamaClient) post(ctx context.Context, path string, reqBody, out any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ rag.Embedder = (*OllamaClient)(nil)
var _ rag.Generator = (*OllamaClient)(nil)
