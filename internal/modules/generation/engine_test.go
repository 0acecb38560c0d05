package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	appcfg "github.com/lingokit/core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := appcfg.AIConfig{Providers: []appcfg.AIProvider{
		{ID: "test", Type: "openai", APIKey: "k", DefaultModel: "test-model", Enabled: true},
	}}
	pipe := appcfg.PipelineConfig{
		Tier1Timeout:       time.Second,
		Tier2Timeout:       time.Second,
		Tier2MinConfidence: 0.5,
	}
	return NewEngine(cfg, pipe, zap.NewNop())
}

func TestGenerateReplyOnly(t *testing.T) {
	e := testEngine(t)
	calls := 0
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, _, _ string) (string, error) {
		calls++
		return "Nice! What did you do at school?", nil
	}

	res, err := e.Generate(context.Background(), Request{Message: "I went to school yesterday"})

	require.NoError(t, err)
	assert.Equal(t, "Nice! What did you do at school?", res.Reply)
	assert.Empty(t, res.Explanation)
	assert.Equal(t, "test-model", res.Model)
	// No error tags, so the explanation tier must not run.
	assert.Equal(t, 1, calls)
}

func TestGenerateWithExplanation(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, system, _ string) (string, error) {
		if strings.Contains(system, "Grammar explainer") {
			return `{"explanation":"Use **went**, the past form of *go*.","confidence":0.9}`, nil
		}
		return "You mean: I went to school yesterday. How was it?", nil
	}

	res, err := e.Generate(context.Background(), Request{
		Message:       "I go to school yesterday",
		ErrorTags:     []string{"past_tense"},
		ConceptLabels: []string{"Simple past"},
	})

	require.NoError(t, err)
	assert.Contains(t, res.Explanation, "went")
	assert.Contains(t, res.ExplanationHTML, "<strong>went</strong>")
	assert.InDelta(t, 0.9, res.Confidence, 0.001)
}

func TestGenerateDropsLowConfidenceExplanation(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, system, _ string) (string, error) {
		if strings.Contains(system, "Grammar explainer") {
			return `{"explanation":"maybe something about articles","confidence":0.2}`, nil
		}
		return "reply", nil
	}

	res, err := e.Generate(context.Background(), Request{
		Message:   "a apple",
		ErrorTags: []string{"article_usage"},
	})

	require.NoError(t, err)
	assert.Equal(t, "reply", res.Reply)
	assert.Empty(t, res.Explanation)
	assert.Zero(t, res.Confidence)
}

func TestGenerateSurvivesExplanationFailure(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, system, _ string) (string, error) {
		if strings.Contains(system, "Grammar explainer") {
			return "", errors.New("provider exploded")
		}
		return "reply", nil
	}

	res, err := e.Generate(context.Background(), Request{
		Message:   "he go home",
		ErrorTags: []string{"subject_verb_agreement"},
	})

	require.NoError(t, err)
	assert.Equal(t, "reply", res.Reply)
	assert.Empty(t, res.Explanation)
}

func TestGenerateUsesConfiguredChatModel(t *testing.T) {
	e := testEngine(t)
	e.cfg.ChatModel = "chat-tuned"
	e.generate = func(_ context.Context, p *appcfg.AIProvider, _, _ string) (string, error) {
		assert.Equal(t, "chat-tuned", p.DefaultModel)
		return "reply", nil
	}

	res, err := e.Generate(context.Background(), Request{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "chat-tuned", res.Model)
}

func TestGenerateRequestOverrideBeatsChatModel(t *testing.T) {
	e := testEngine(t)
	e.cfg.ChatModel = "chat-tuned"
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, _, _ string) (string, error) {
		return "reply", nil
	}

	res, err := e.Generate(context.Background(), Request{Message: "hello", ModelOverride: "special"})

	require.NoError(t, err)
	assert.Equal(t, "special", res.Model)
}

func TestGenerateFailsWhenReplyFails(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, _, _ string) (string, error) {
		return "", errors.New("provider exploded")
	}

	_, err := e.Generate(context.Background(), Request{Message: "hello"})

	assert.Error(t, err)
}

func TestGenerateNoProvider(t *testing.T) {
	e := NewEngine(appcfg.AIConfig{}, appcfg.PipelineConfig{
		Tier1Timeout: time.Second, Tier2Timeout: time.Second,
	}, zap.NewNop())

	_, err := e.Generate(context.Background(), Request{Message: "hello"})

	assert.ErrorIs(t, err, errNoProvider)
}

func TestGenerateExercise(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, system, prompt string) (string, error) {
		assert.Contains(t, system, "Exercise writer")
		assert.Contains(t, prompt, "Simple past")
		return "```json\n{\"prompt\":\"Yesterday I ___ (go) to the park.\",\"answer\":\"went\",\"hint\":\"irregular verb\"}\n```", nil
	}

	ex, err := e.GenerateExercise(context.Background(), "A2", "Simple past")

	require.NoError(t, err)
	assert.Equal(t, "went", ex.Answer)
	assert.Equal(t, "test-model", ex.Model)
}

func TestGenerateExerciseRejectsIncompleteJSON(t *testing.T) {
	e := testEngine(t)
	e.generate = func(_ context.Context, _ *appcfg.AIProvider, _, _ string) (string, error) {
		return `{"prompt":"","answer":""}`, nil
	}

	_, err := e.GenerateExercise(context.Background(), "A2", "Simple past")

	assert.ErrorIs(t, err, errEmptyResponse)
}
