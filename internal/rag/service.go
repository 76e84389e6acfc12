package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	wl "github.com/abadojack/whatlanggo"
	"go.uber.org/zap"
)

const (
	defaultTopK = 3
	maxTopK     = 5

	answerTemperature = 0.3
	answerMaxTokens   = 500

	translateTemperature = 0
	translateMaxTokens   = 100

	probeTimeout = 2 * time.Second

	// Below this confidence the detector is guessing (short or mixed input),
	// so the question is left untranslated.
	minDetectConfidence = 0.5
)

const translateSystemPrompt = "Translate the following medical question to English. Return ONLY the translation."

// Service is the query pipeline: language normalization, embedding,
// retrieval, prompt assembly, generation. One attempt per external call, no
// retries; failures past retrieval degrade the QueryContext instead of
// aborting.
type Service struct {
	repo      Repository
	embedder  Embedder
	generator Generator
	log       *zap.Logger
}

func NewService(repo Repository, embedder Embedder, generator Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		embedder:  embedder,
		generator: generator,
		log:       log,
	}
}

// Ask answers one question. Results are always populated (possibly empty);
// the generation outcome is carried on GenerationStatus. Only embedding and
// store failures surface as errors.
func (s *Service) Ask(ctx context.Context, question string, topK int) (*QueryContext, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, ErrEmptyQuestion
	}

	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	qc := &QueryContext{
		RawQuestion: q,
		TopK:        topK,
		Results:     []RetrievalResult{},
	}

	// The probe runs at most once per query, and only when a path actually
	// needs the generator, so retrieval-only queries never pay for it.
	var probed, generatorUp bool
	checkGenerator := func() bool {
		if !probed {
			probed = true
			generatorUp = s.GeneratorAvailable(ctx)
		}
		return generatorUp
	}

	qc.EffectiveQuestion = s.normalizeLanguage(ctx, q, checkGenerator)

	vec, err := s.embedder.Embed(ctx, qc.EffectiveQuestion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	results, err := s.repo.SearchSimilar(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		qc.Results = results
	}

	if len(qc.Results) == 0 {
		qc.GenerationStatus = GenerationSkippedNoResults
		return qc, nil
	}

	if !checkGenerator() {
		qc.GenerationStatus = GenerationUnavailable
		return qc, nil
	}

	userPrompt := buildUserPrompt(q, qc.Results)

	answer, err := s.generator.Complete(ctx, systemPrompt, userPrompt, answerTemperature, answerMaxTokens)
	if err != nil {
		s.log.Warn("answer generation failed", zap.Error(err))
		qc.GenerationStatus = GenerationFailed
		qc.GenerationError = fmt.Sprintf("error generating answer: %v", err)
		return qc, nil
	}

	qc.Answer = strings.TrimSpace(answer)
	qc.GenerationStatus = GenerationOK
	return qc, nil
}

// normalizeLanguage translates non-English questions through the generator.
// Best-effort: detection uncertainty, an unreachable generator or a failed
// translation all fall back to the original question.
func (s *Service) normalizeLanguage(ctx context.Context, q string, generatorUp func() bool) string {
	info := wl.Detect(q)
	if info.Lang == wl.Eng || info.Confidence < minDetectConfidence {
		return q
	}
	if !generatorUp() {
		return q
	}

	out, err := s.generator.Complete(ctx, translateSystemPrompt, q, translateTemperature, translateMaxTokens)
	if err != nil {
		s.log.Debug("question translation failed, using original",
			zap.String("lang", wl.LangToString(info.Lang)), zap.Error(err))
		return q
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return q
	}

	s.log.Debug("question translated",
		zap.String("lang", wl.LangToString(info.Lang)))
	return out
}

// GeneratorAvailable is the availability probe: bounded wait, never an
// error. Used here to pick the generation path and by the HTTP layer for
// the status indicator.
func (s *Service) GeneratorAvailable(ctx context.Context) bool {
	if s.generator == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.generator.Ping(ctx) == nil
}

// Status reports the index state plus generator reachability.
type Status struct {
	Index       IndexInfo `json:"index"`
	GeneratorUp bool      `json:"generatorUp"`
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	info, err := s.repo.Info(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Index:       info,
		GeneratorUp: s.GeneratorAvailable(ctx),
	}, nil
}
