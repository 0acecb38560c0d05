package generation

import (
	"context"
	"strings"
	"time"

	appcfg "github.com/lingokit/core/internal/config"
	"github.com/lingokit/core/internal/pkg/markdown"
	"go.uber.org/zap"
)

// Engine produces tutor replies in two tiers. The first tier is the
// conversational reply and must succeed for the turn to count as generated.
// The second tier is a grammar explanation, generated only when a turn has
// error tags; it is best effort and is dropped on timeout, failure, or low
// self-reported confidence.
type Engine struct {
	cfg    appcfg.AIConfig
	pipe   appcfg.PipelineConfig
	logger *zap.Logger

	// generate is swapped out in tests.
	generate func(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string) (string, error)
}

func NewEngine(cfg appcfg.AIConfig, pipe appcfg.PipelineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		pipe:     pipe,
		logger:   logger,
		generate: callProvider,
	}
}

// Generate runs both tiers for a turn. A per-request model override beats
// the configured chat model, which beats the provider default.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	model := strings.TrimSpace(req.ModelOverride)
	if model == "" {
		model = e.cfg.ChatModel
	}
	provider := e.cfg.ActiveProvider(model)
	if provider == nil {
		return nil, errNoProvider
	}

	tier1Ctx, cancel := context.WithTimeout(ctx, e.pipe.Tier1Timeout)
	defer cancel()

	system, prompt := buildReplyPrompt(req)
	reply, err := e.generate(tier1Ctx, provider, system, prompt)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, errEmptyResponse
	}

	result := &Result{Reply: reply, Model: provider.DefaultModel}
	if len(req.ErrorTags) == 0 {
		return result, nil
	}

	explanation, confidence := e.explain(ctx, provider, req)
	if explanation == "" {
		return result, nil
	}
	result.Explanation = explanation
	result.Confidence = confidence
	result.ExplanationHTML = markdown.RenderHTML(explanation)
	return result, nil
}

// explain runs the second tier. Any failure degrades to no explanation.
func (e *Engine) explain(ctx context.Context, provider *appcfg.AIProvider, req Request) (string, float64) {
	tier2Ctx, cancel := context.WithTimeout(ctx, e.pipe.Tier2Timeout)
	defer cancel()

	started := time.Now()
	system, prompt := buildExplanationPrompt(req)
	raw, err := e.generate(tier2Ctx, provider, system, prompt)
	if err != nil {
		e.logger.Warn("explanation tier failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)))
		return "", 0
	}

	var out struct {
		Explanation string  `json:"explanation"`
		Confidence  float64 `json:"confidence"`
	}
	if err := unmarshalModelJSON(raw, &out); err != nil {
		e.logger.Warn("explanation tier returned malformed JSON", zap.Error(err))
		return "", 0
	}
	if strings.TrimSpace(out.Explanation) == "" {
		return "", 0
	}
	if out.Confidence < e.pipe.Tier2MinConfidence {
		e.logger.Debug("explanation below confidence floor",
			zap.Float64("confidence", out.Confidence))
		return "", 0
	}
	return strings.TrimSpace(out.Explanation), out.Confidence
}

// Exercise is a generated practice item for one concept.
type Exercise struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Hint   string `json:"hint"`
	Model  string `json:"model"`
}

// GenerateExercise produces one practice exercise for a concept the learner
// keeps missing. Runs off the request path, so it uses the tier-1 timeout.
func (e *Engine) GenerateExercise(ctx context.Context, proficiency, conceptLabel string) (*Exercise, error) {
	provider := e.cfg.ActiveProvider(e.cfg.ExerciseModel)
	if provider == nil {
		return nil, errNoProvider
	}

	genCtx, cancel := context.WithTimeout(ctx, e.pipe.Tier1Timeout)
	defer cancel()

	system, prompt := buildExercisePrompt(proficiency, conceptLabel)
	raw, err := e.generate(genCtx, provider, system, prompt)
	if err != nil {
		return nil, err
	}

	var out Exercise
	if err := unmarshalModelJSON(raw, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Prompt) == "" || strings.TrimSpace(out.Answer) == "" {
		return nil, errEmptyResponse
	}
	out.Model = provider.DefaultModel
	return &out, nil
}
