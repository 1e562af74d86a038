package identification

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/services"
	"sublift/internal/services/llm"
	"sublift/internal/textutil"
)

// llmClient captures the completion surface the recognizer needs.
type llmClient interface {
	Configured() bool
	Model() string
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Recognizer turns a video path into exactly one movie candidate. The LLM
// answer wins when it is available and valid; the path heuristic is the
// fallback and the corroborating signal.
type Recognizer struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    llmClient
}

// RecognizerOption customizes Recognizer construction.
type RecognizerOption func(*Recognizer)

// WithLLMClient overrides the LLM client (used in tests).
func WithLLMClient(client llmClient) RecognizerOption {
	return func(r *Recognizer) {
		if client != nil {
			r.llm = client
		}
	}
}

// NewRecognizer constructs a movie recognizer.
func NewRecognizer(cfg *config.Config, logger *slog.Logger, opts ...RecognizerOption) *Recognizer {
	rec := &Recognizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "identification"),
	}
	for _, opt := range opts {
		opt(rec)
	}
	if rec.llm == nil && cfg != nil {
		llmCfg := cfg.LLMSettings()
		rec.llm = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	}
	return rec
}

// Recognize identifies the movie at path. It returns exactly one candidate;
// LLM failures degrade to the heuristic rather than surfacing an error.
func (r *Recognizer) Recognize(ctx context.Context, path string) (Candidate, error) {
	if strings.TrimSpace(path) == "" {
		return Candidate{}, services.Wrap(services.ErrValidation, "identification", "recognize", "No video path supplied", nil)
	}
	hints := HintsFromPath(path)
	fallback := HeuristicCandidate(hints)
	if fallback.Title == "" {
		return Candidate{}, services.Wrap(services.ErrValidation, "identification", "recognize",
			fmt.Sprintf("Path %q yields no usable title", path), nil)
	}

	if r.llm == nil || !r.llm.Configured() {
		r.logDecision("heuristic", "llm not configured", fallback)
		return fallback, nil
	}

	payload, err := r.llm.CompleteJSON(ctx, MovieRecognitionPrompt, recognitionUserPrompt(path, hints))
	if err != nil {
		if ctx.Err() != nil {
			return Candidate{}, ctx.Err()
		}
		r.logger.Warn("llm recognition failed, using path heuristic",
			logging.Error(err),
			logging.String("title", fallback.Title),
		)
		return fallback, nil
	}

	var answer RecognitionAnswer
	if err := llm.DecodeLLMJSON(payload, &answer); err != nil {
		r.logger.Warn("llm returned unparseable answer, using path heuristic",
			logging.Error(err),
		)
		return fallback, nil
	}

	candidate, ok := r.reconcile(answer, fallback)
	if !ok {
		r.logDecision("heuristic", "llm answer rejected", fallback)
		return fallback, nil
	}
	r.logDecision("llm", fmt.Sprintf("similarity-adjusted confidence %.2f", candidate.Confidence), candidate)
	return candidate, nil
}

// reconcile validates the LLM answer against the path heuristic and adjusts
// confidence. An empty title or a low-confidence answer that contradicts the
// path is rejected.
func (r *Recognizer) reconcile(answer RecognitionAnswer, fallback Candidate) (Candidate, bool) {
	title := strings.TrimSpace(answer.Title)
	if title == "" {
		return Candidate{}, false
	}
	year := answer.Year
	if year != 0 && (year < 1888 || year > 2100) {
		year = 0
	}
	if year == 0 {
		year = fallback.Year
	}
	confidence := answer.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	similarity := textutil.TitleSimilarity(title, fallback.Title)
	switch {
	case similarity >= 0.6:
		// Path agrees with the model; the pair is stronger than either alone.
		if confidence < 0.9 {
			confidence += 0.1
		}
	case similarity < 0.2 && confidence < 0.35:
		// The model is guessing and the path disagrees.
		return Candidate{}, false
	}
	if confidence > 1 {
		confidence = 1
	}

	return Candidate{
		Title:      title,
		Year:       year,
		Confidence: confidence,
		Source:     "llm",
	}, true
}

func recognitionUserPrompt(path string, hints Hints) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "File name: %s\n", filepath.Base(path))
	if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
		fmt.Fprintf(&builder, "Folder name: %s\n", dir)
	}
	if hints.Year > 0 {
		fmt.Fprintf(&builder, "Year seen in the path: %d\n", hints.Year)
	}
	return builder.String()
}

func (r *Recognizer) logDecision(source, reason string, candidate Candidate) {
	if r.logger == nil {
		return
	}
	attrs := logging.DecisionAttrs("recognizer_source", source, reason)
	attrs = append(attrs,
		logging.String("title", candidate.Title),
		logging.Int("year", candidate.Year),
	)
	r.logger.Info("movie recognized", logging.Args(attrs...)...)
}
