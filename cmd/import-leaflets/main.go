package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	pdf "github.com/dslipak/pdf"
	"github.com/joho/godotenv"
	"github.com/medisage/leaflet-rag/internal/config"
	"github.com/medisage/leaflet-rag/internal/db"
	"github.com/medisage/leaflet-rag/internal/llm"
	"github.com/medisage/leaflet-rag/internal/openfda"
	"github.com/medisage/leaflet-rag/internal/rag"
	"go.uber.org/zap"
)

// embedBatchSize bounds how many fragments go to the embedder per call.
const embedBatchSize = 50

const smokeQuestion = "Can I drink alcohol with this medication?"

func main() {
	_ = godotenv.Load()

	fromOpenFDA := flag.Bool("from-openfda", false, "download leaflets from the OpenFDA label API")
	fromFiles := flag.Bool("from-files", false, "import local leaflet files (.md/.txt/.html/.pdf)")
	pathFlag := flag.String("path", "", "base directory for local leaflet files")
	drugsFlag := flag.String("drugs", "", "comma-separated drug names (default: built-in medication list)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if !*fromOpenFDA && !*fromFiles {
		logger.Fatal("use at least one mode: --from-openfda or --from-files")
	}
	if *fromFiles && *pathFlag == "" {
		logger.Fatal("--path is required with --from-files")
	}

	ctx := context.Background()
	cfg := config.Load()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	repo := rag.NewPgRepository(pool, cfg.EmbedDim)
	embedder := buildEmbedder(ctx, cfg, logger)

	var fragments []rag.Fragment

	if *fromOpenFDA {
		drugs := openfda.DefaultMedications
		if *drugsFlag != "" {
			drugs = splitDrugs(*drugsFlag)
		}
		frags, err := downloadFromOpenFDA(ctx, drugs, logger)
		if err != nil {
			logger.Fatal("openfda download failed", zap.Error(err))
		}
		fragments = append(fragments, frags...)
	}

	if *fromFiles {
		frags, err := importFromFiles(*pathFlag, logger)
		if err != nil {
			logger.Fatal("file import failed", zap.Error(err))
		}
		fragments = append(fragments, frags...)
	}

	if len(fragments) == 0 {
		logger.Fatal("no fragments to load")
	}
	logger.Info("fragments prepared", zap.Int("count", len(fragments)))

	// The index is replaced wholesale, never updated in place.
	if err := repo.Reset(ctx); err != nil {
		logger.Fatal("failed to reset index", zap.Error(err))
	}

	if err := loadFragments(ctx, repo, embedder, fragments, logger); err != nil {
		logger.Fatal("failed to load fragments", zap.Error(err))
	}

	info, err := repo.Info(ctx)
	if err != nil {
		logger.Fatal("failed to read index info", zap.Error(err))
	}
	logger.Info("index rebuilt",
		zap.Int64("fragments", info.Count),
		zap.Int("vectorSize", info.VectorSize))

	smokeTest(ctx, repo, embedder, logger)
}

func buildEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) rag.Embedder {
	if cfg.EmbedProvider == "gemini" && cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.EmbedDim)
		if err != nil {
			logger.Fatal("failed to init Gemini client", zap.Error(err))
		}
		return gemini
	}

	logger.Info("using Ollama embedder", zap.String("host", cfg.OllamaHost))
	return llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL:    cfg.OllamaHost,
		Dimensions: cfg.EmbedDim,
	})
}

func downloadFromOpenFDA(ctx context.Context, drugs []string, logger *zap.Logger) ([]rag.Fragment, error) {
	client := openfda.NewClient("")

	var fragments []rag.Fragment
	for i, drug := range drugs {
		logger.Info("downloading label",
			zap.String("drug", drug),
			zap.Int("n", i+1),
			zap.Int("of", len(drugs)))

		med, err := client.FetchLabel(ctx, drug)
		if err != nil {
			logger.Warn("skipping drug", zap.String("drug", drug), zap.Error(err))
			continue
		}
		if med == nil {
			logger.Warn("no label found", zap.String("drug", drug))
			continue
		}

		frags := med.Fragments()
		logger.Info("label downloaded",
			zap.String("drug", med.DrugName),
			zap.Int("sections", len(frags)))
		fragments = append(fragments, frags...)

		// Stay polite with the public API.
		time.Sleep(500 * time.Millisecond)
	}

	return fragments, nil
}

// importFromFiles treats each leaflet file as one fragment for the drug
// named by the file, with the section guessed from the content.
func importFromFiles(rootPath string, logger *zap.Logger) ([]rag.Fragment, error) {
	var fragments []rag.Fragment

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isLeafletFile(path) {
			return nil
		}

		var content string
		if strings.HasSuffix(strings.ToLower(path), ".pdf") {
			text, err := extractTextFromPDF(path)
			if err != nil {
				return fmt.Errorf("read pdf %s: %w", path, err)
			}
			content = text
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			content = string(data)
		}

		content = openfda.Clean(sanitizeUTF8(content))
		if content == "" {
			return nil
		}

		frag := rag.Fragment{
			DrugName: filenameToDrugName(path),
			Section:  detectSection(content),
			Text:     content,
			Source:   "local",
			SourceID: filepath.Base(path),
		}
		logger.Info("leaflet file imported",
			zap.String("drug", frag.DrugName),
			zap.String("section", string(frag.Section)))
		fragments = append(fragments, frag)
		return nil
	})

	return fragments, err
}

func loadFragments(ctx context.Context, repo rag.Repository, embedder rag.Embedder, fragments []rag.Fragment, logger *zap.Logger) error {
	for start := 0; start < len(fragments); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			// Same composition the index was designed around: the drug and
			// section prefix keeps same-text sections of different drugs apart.
			texts[i] = fmt.Sprintf("%s - %s: %s", f.DrugName, f.Section, f.Text)
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}

		for i := range batch {
			id, err := repo.InsertFragment(ctx, &batch[i], vectors[i])
			if err != nil {
				return fmt.Errorf("insert fragment %s/%s: %w", batch[i].DrugName, batch[i].Section, err)
			}
			logger.Debug("fragment stored",
				zap.Int64("id", id),
				zap.String("drug", batch[i].DrugName),
				zap.String("section", string(batch[i].Section)))
		}
	}
	return nil
}

// smokeTest runs one retrieval against the fresh index and logs the top
// matches, so a broken load is visible immediately.
func smokeTest(ctx context.Context, repo rag.Repository, embedder rag.Embedder, logger *zap.Logger) {
	vec, err := embedder.Embed(ctx, smokeQuestion)
	if err != nil {
		logger.Warn("smoke query embedding failed", zap.Error(err))
		return
	}

	results, err := repo.SearchSimilar(ctx, vec, 3)
	if err != nil {
		logger.Warn("smoke query failed", zap.Error(err))
		return
	}

	logger.Info("smoke query", zap.String("question", smokeQuestion))
	for i, res := range results {
		logger.Info("smoke result",
			zap.Int("rank", i+1),
			zap.String("drug", res.Fragment.DrugName),
			zap.String("section", string(res.Fragment.Section)),
			zap.Float32("score", res.Score))
	}
}

func isLeafletFile(path string) bool {
	l := strings.ToLower(path)
	return strings.HasSuffix(l, ".md") ||
		strings.HasSuffix(l, ".txt") ||
		strings.HasSuffix(l, ".html") ||
		strings.HasSuffix(l, ".htm") ||
		strings.HasSuffix(l, ".pdf")
}

func filenameToDrugName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// detectSection guesses a section for free-form leaflet files by keyword.
func detectSection(content string) rag.Section {
	s := strings.ToLower(content)

	switch {
	case strings.Contains(s, "dosage") || strings.Contains(s, "dose"):
		return rag.SectionDosage
	case strings.Contains(s, "interaction"):
		return rag.SectionDrugInteractions
	case strings.Contains(s, "contraindicat"):
		return rag.SectionContraindications
	case strings.Contains(s, "side effect") || strings.Contains(s, "adverse"):
		return rag.SectionSideEffects
	case strings.Contains(s, "overdos"):
		return rag.SectionOverdosage
	case strings.Contains(s, "warning"):
		return rag.SectionWarnings
	default:
		return rag.SectionPatientInfo
	}
}

func splitDrugs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func extractTextFromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}

// sanitizeUTF8 drops invalid bytes before the text reaches Postgres.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
