package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appcfg "github.com/lingokit/core/internal/config"
	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/modules/diagnosis"
	"github.com/lingokit/core/internal/modules/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCache struct {
	mu       sync.Mutex
	entries  map[string]*CachedResponse
	lastGood map[string]*CachedResponse
	getErr   error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*CachedResponse{}, lastGood: map[string]*CachedResponse{}}
}

func (m *memCache) Get(_ context.Context, fp string) (*CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[fp], nil
}

func (m *memCache) Put(_ context.Context, fp string, resp *CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fp] = resp
	return nil
}

func (m *memCache) GetLastGood(_ context.Context, cluster string) (*CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastGood[cluster], nil
}

func (m *memCache) PutLastGood(_ context.Context, cluster string, resp *CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastGood[cluster] = resp
	return nil
}

type fakeExpander struct {
	concepts []models.ConceptModel
	err      error
	calls    int
}

func (f *fakeExpander) Expand(_ context.Context, _ []string, _ int) ([]models.ConceptModel, error) {
	f.calls++
	return f.concepts, f.err
}

type fakeGen struct {
	result *generation.Result
	err    error
	calls  int
	lastRq generation.Request
}

func (f *fakeGen) Generate(_ context.Context, req generation.Request) (*generation.Result, error) {
	f.calls++
	f.lastRq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type memSessions struct {
	mu      sync.Mutex
	lines   map[string][]string
	working map[string][]string
}

func (m *memSessions) Recent(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines[key]...), nil
}

func (m *memSessions) Append(_ context.Context, key, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lines == nil {
		m.lines = map[string][]string{}
	}
	m.lines[key] = append(m.lines[key], line)
	return nil
}

func (m *memSessions) WorkingSet(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels, ok := m.working[key]
	if !ok {
		return nil, nil
	}
	return append([]string{}, labels...), nil
}

func (m *memSessions) SetWorkingSet(_ context.Context, key string, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.working == nil {
		m.working = map[string][]string{}
	}
	m.working[key] = append([]string(nil), labels...)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []TurnOutcome
}

func (r *recordingNotifier) Notify(outcome TurnOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingNotifier) all() []TurnOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TurnOutcome(nil), r.outcomes...)
}

type fixture struct {
	svc      *Service
	profiles *fakeProfiles
	cache    *memCache
	expander *fakeExpander
	gen      *fakeGen
	sessions *memSessions
	notifier *recordingNotifier
}

func newFixture() *fixture {
	f := &fixture{
		profiles: newFakeProfiles(),
		cache:    newMemCache(),
		expander: &fakeExpander{},
		gen: &fakeGen{result: &generation.Result{
			Reply: "You mean: I went to school yesterday. What did you learn?",
			Model: "test-model",
		}},
		sessions: &memSessions{},
		notifier: &recordingNotifier{},
	}
	cfg := appcfg.PipelineConfig{
		MaxHops:      2,
		ExpandBudget: 300 * time.Millisecond,
	}
	f.svc = NewService(f.profiles, f.expander, f.cache, f.gen, f.sessions,
		diagnosis.NewEngine(), f.notifier, cfg, zap.NewNop())
	return f
}

func TestHandleTurnMissThenHit(t *testing.T) {
	f := newFixture()
	input := TurnInput{UserID: "u1", Message: "I go to school yesterday"}

	first, err := f.svc.HandleTurn(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, LatencyGenerated, first.Source)
	assert.Contains(t, first.ErrorTags, "past_tense")
	assert.Equal(t, 1, f.gen.calls)

	second, err := f.svc.HandleTurn(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, LatencyCacheHit, second.Source)
	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	// The hit must not re-run generation.
	assert.Equal(t, 1, f.gen.calls)

	outcomes := f.notifier.all()
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].CacheHit)
	assert.True(t, outcomes[1].CacheHit)
}

func TestHandleTurnPassesProfileAndGraphToGenerator(t *testing.T) {
	f := newFixture()
	f.profiles.profile.Proficiency = "B1"
	f.profiles.profile.NativeLanguage = "Spanish"
	f.expander.concepts = []models.ConceptModel{
		{Label: "Simple past"},
		{Label: "Past time adverbs"},
	}

	_, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	assert.Equal(t, "B1", f.gen.lastRq.Proficiency)
	assert.Equal(t, "Spanish", f.gen.lastRq.NativeLanguage)
	assert.Equal(t, []string{"Simple past", "Past time adverbs"}, f.gen.lastRq.ConceptLabels)
	assert.Equal(t, 1, f.expander.calls)
}

func TestHandleTurnCleanMessageSkipsExpansion(t *testing.T) {
	f := newFixture()

	res, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I went to school yesterday",
	})

	require.NoError(t, err)
	assert.Equal(t, LatencyGenerated, res.Source)
	assert.Empty(t, res.ErrorTags)
	assert.Zero(t, f.expander.calls)
}

func TestHandleTurnExpansionFailureDegrades(t *testing.T) {
	f := newFixture()
	f.expander.err = errors.New("graph store down")

	res, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	assert.Equal(t, LatencyGenerated, res.Source)
	assert.Empty(t, f.gen.lastRq.ConceptLabels)
}

func TestHandleTurnCacheErrorIsMiss(t *testing.T) {
	f := newFixture()
	f.cache.getErr = errors.New("redis down")

	res, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "hello there",
	})

	require.NoError(t, err)
	assert.Equal(t, LatencyGenerated, res.Source)
	assert.Equal(t, 1, f.gen.calls)
}

func TestHandleTurnGenerationFailureFallsBackToLastGood(t *testing.T) {
	f := newFixture()
	f.gen.err = errors.New("provider down")
	d := diagnosis.NewEngine().Diagnose("I go to school yesterday")
	f.cache.lastGood[ClusterKey(d.ConceptIDs())] = &CachedResponse{
		Reply: "stored earlier for this cluster",
		Model: "test-model",
	}

	res, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	assert.Equal(t, LatencyFallback, res.Source)
	assert.Equal(t, "stored earlier for this cluster", res.Reply)
	// The failed turn is still observed.
	require.Len(t, f.notifier.all(), 1)
	assert.Contains(t, f.notifier.all()[0].ErrorTags, "past_tense")
}

func TestHandleTurnGenerationFailureDeterministicFallback(t *testing.T) {
	f := newFixture()
	f.gen.err = errors.New("provider down")

	res, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	assert.Equal(t, LatencyFallback, res.Source)
	assert.NotEmpty(t, res.Reply)

	clean, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "hello friend",
	})
	require.NoError(t, err)
	assert.NotEqual(t, res.Reply, clean.Reply)
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HandleTurn(context.Background(), TurnInput{UserID: "u1", Message: "   "})

	assert.ErrorIs(t, err, errEmptyMessage)
}

func TestHandleTurnRecordsSession(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	recent, _ := f.sessions.Recent(context.Background(), "u1")
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0], "I go to school yesterday")
}

func TestHandleTurnSessionStoresPlainText(t *testing.T) {
	f := newFixture()
	f.gen.result = &generation.Result{
		Reply: "You mean: I **went** to school. How was it?",
		Model: "test-model",
	}

	_, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", Message: "I go to school yesterday",
	})

	require.NoError(t, err)
	recent, _ := f.sessions.Recent(context.Background(), "u1")
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0], "I went to school")
	assert.NotContains(t, recent[0], "**")
}

func TestWarmUpExpandsWeakConcepts(t *testing.T) {
	f := newFixture()
	f.profiles.weak = []string{"simple-past"}
	f.expander.concepts = []models.ConceptModel{{Label: "Simple past"}, {Label: "Past time adverbs"}}

	n, err := f.svc.WarmUp(context.Background(), "u1", "s1")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.expander.calls)
}

func TestWarmUpNothingToDo(t *testing.T) {
	f := newFixture()

	n, err := f.svc.WarmUp(context.Background(), "u1", "s1")

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.expander.calls)
}

func TestHandleTurnUsesWarmedWorkingSet(t *testing.T) {
	f := newFixture()
	f.profiles.weak = []string{"simple-past"}
	f.expander.concepts = []models.ConceptModel{{Label: "Simple past"}}

	n, err := f.svc.WarmUp(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A clean message skips per-message expansion but the warmed labels
	// still reach the generator.
	_, err = f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", SessionID: "s1", Message: "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.expander.calls)
	assert.Equal(t, []string{"Simple past"}, f.gen.lastRq.ConceptLabels)
}

func TestHandleTurnWarmsSessionLazily(t *testing.T) {
	f := newFixture()
	f.profiles.weak = []string{"simple-past"}
	f.expander.concepts = []models.ConceptModel{{Label: "Simple past"}}

	_, err := f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", SessionID: "s1", Message: "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.expander.calls)

	// Second message reuses the pinned working set.
	_, err = f.svc.HandleTurn(context.Background(), TurnInput{
		UserID: "u1", SessionID: "s1", Message: "how are you",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.expander.calls)
	assert.Equal(t, []string{"Simple past"}, f.gen.lastRq.ConceptLabels)
}

// Full scenario: the same mistake three turns in a row flows through
// diagnosis, generation, the observer, and finally triggers an exercise
// job for the weak concept.
func TestRepeatedMistakeTriggersExerciseJob(t *testing.T) {
	profiles := newFakeProfiles()
	queue := &fakeQueue{}
	observer := NewObserver(profiles, queue, zap.NewNop(), 3, 3)
	defer observer.Close()

	cache := newMemCache()
	gen := &fakeGen{result: &generation.Result{Reply: "You mean: went.", Model: "test-model"}}
	cfg := appcfg.PipelineConfig{MaxHops: 2, ExpandBudget: 300 * time.Millisecond}
	svc := NewService(profiles, &fakeExpander{}, cache, gen, &memSessions{},
		diagnosis.NewEngine(), observer, cfg, zap.NewNop())

	messages := []string{
		"I go to school yesterday",
		"he go to the park yesterday",
		"we make a cake yesterday",
	}
	for _, msg := range messages {
		_, err := svc.HandleTurn(context.Background(), TurnInput{UserID: "u1", Message: msg})
		require.NoError(t, err)
	}

	waitFor(t, func() bool {
		for _, task := range queue.enqueued() {
			if task.Type == TaskTypeExercise {
				return true
			}
		}
		return false
	})
	assert.Equal(t, 3, profiles.masteryCount("u1", "simple-past"))
}
