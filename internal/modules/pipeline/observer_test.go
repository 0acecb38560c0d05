package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/pkg/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProfiles struct {
	mu        sync.Mutex
	errors    map[string][]string
	summaries map[string][]string
	mastery   map[string]int
	touched   map[string]int
	seen      map[string][]string
	weak      []string
	failTimes int

	profile *models.LearnerProfileModel
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		errors:    map[string][]string{},
		summaries: map[string][]string{},
		mastery:   map[string]int{},
		touched:   map[string]int{},
		seen:      map[string][]string{},
		profile:   &models.LearnerProfileModel{UserID: "u1", Proficiency: "A2"},
	}
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, userID string) (*models.LearnerProfileModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := *f.profile
	p.UserID = userID
	return &p, nil
}

func (f *fakeProfiles) Touch(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[userID]++
	return nil
}

func (f *fakeProfiles) AppendErrors(_ context.Context, userID string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes > 0 {
		f.failTimes--
		return errors.New("transient store failure")
	}
	f.errors[userID] = append(f.errors[userID], tags...)
	return nil
}

func (f *fakeProfiles) AppendSummary(_ context.Context, userID, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[userID] = append(f.summaries[userID], summary)
	return nil
}

func (f *fakeProfiles) BumpMastery(_ context.Context, userID, conceptID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "/" + conceptID
	f.mastery[key]++
	return f.mastery[key], nil
}

func (f *fakeProfiles) TouchMastery(_ context.Context, userID string, conceptIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[userID] = append(f.seen[userID], conceptIDs...)
	return nil
}

func (f *fakeProfiles) WeakConcepts(_ context.Context, _ string, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weak, nil
}

func (f *fakeProfiles) errorTags(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors[userID]...)
}

func (f *fakeProfiles) masteryCount(userID, conceptID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mastery[userID+"/"+conceptID]
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []taskqueue.Task
}

func (f *fakeQueue) Enqueue(_ context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*taskqueue.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := taskqueue.Task{ID: dedupKey, Type: taskType, GroupKey: groupKey}
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (f *fakeQueue) enqueued() []taskqueue.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]taskqueue.Task(nil), f.tasks...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestObserverRecordsErrorsAndMastery(t *testing.T) {
	profiles := newFakeProfiles()
	queue := &fakeQueue{}
	o := NewObserver(profiles, queue, zap.NewNop(), 3, 3)
	defer o.Close()

	o.Notify(TurnOutcome{
		UserID:     "u1",
		ErrorTags:  []string{"past_tense"},
		ConceptIDs: []string{"simple-past"},
		Summary:    "I go to school yesterday (past_tense)",
	})

	waitFor(t, func() bool { return len(profiles.errorTags("u1")) > 0 })
	assert.Equal(t, []string{"past_tense"}, profiles.errorTags("u1"))
	assert.Equal(t, 1, profiles.masteryCount("u1", "simple-past"))
	assert.Empty(t, queue.enqueued())
}

func TestObserverEnqueuesExerciseAtThreshold(t *testing.T) {
	profiles := newFakeProfiles()
	queue := &fakeQueue{}
	o := NewObserver(profiles, queue, zap.NewNop(), 3, 3)
	defer o.Close()

	outcome := TurnOutcome{
		UserID:      "u1",
		Proficiency: "A2",
		ErrorTags:   []string{"past_tense"},
		ConceptIDs:  []string{"simple-past"},
	}
	for i := 0; i < 3; i++ {
		o.Notify(outcome)
	}

	waitFor(t, func() bool { return len(queue.enqueued()) == 1 })
	task := queue.enqueued()[0]
	assert.Equal(t, TaskTypeExercise, task.Type)
	assert.Equal(t, "u1", task.GroupKey)
	assert.Equal(t, 3, profiles.masteryCount("u1", "simple-past"))
}

func TestObserverCacheHitOnlyTouches(t *testing.T) {
	profiles := newFakeProfiles()
	queue := &fakeQueue{}
	o := NewObserver(profiles, queue, zap.NewNop(), 3, 3)
	defer o.Close()

	o.Notify(TurnOutcome{
		UserID:     "u1",
		ConceptIDs: []string{"simple-past"},
		CacheHit:   true,
	})

	waitFor(t, func() bool {
		profiles.mu.Lock()
		defer profiles.mu.Unlock()
		return profiles.touched["u1"] == 1
	})
	assert.Empty(t, profiles.errorTags("u1"))
	assert.Zero(t, profiles.masteryCount("u1", "simple-past"))
}

func TestObserverRetriesTransientFailures(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.failTimes = 2
	queue := &fakeQueue{}
	o := NewObserver(profiles, queue, zap.NewNop(), 3, 3)
	defer o.Close()

	o.Notify(TurnOutcome{UserID: "u1", ErrorTags: []string{"negation"}})

	waitFor(t, func() bool { return len(profiles.errorTags("u1")) > 0 })
	assert.Equal(t, []string{"negation"}, profiles.errorTags("u1"))
}

func TestObserverPerUserOrdering(t *testing.T) {
	profiles := newFakeProfiles()
	queue := &fakeQueue{}
	o := NewObserver(profiles, queue, zap.NewNop(), 3, 100)
	defer o.Close()

	for i := 0; i < 10; i++ {
		o.Notify(TurnOutcome{UserID: "u1", ErrorTags: []string{"a"}, ConceptIDs: []string{"c"}})
	}

	waitFor(t, func() bool { return profiles.masteryCount("u1", "c") == 10 })
	require.Len(t, profiles.errorTags("u1"), 10)
}

func TestObserverReapsIdleQueues(t *testing.T) {
	profiles := newFakeProfiles()
	o := NewObserver(profiles, &fakeQueue{}, zap.NewNop(), 3, 3)
	o.idleAfter = 20 * time.Millisecond
	defer o.Close()

	o.Notify(TurnOutcome{UserID: "u1", ErrorTags: []string{"negation"}})

	waitFor(t, func() bool { return len(profiles.errorTags("u1")) == 1 })
	waitFor(t, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return len(o.queues) == 0
	})

	// A new outcome after the reap spins a fresh queue up.
	o.Notify(TurnOutcome{UserID: "u1", ErrorTags: []string{"negation"}})
	waitFor(t, func() bool { return len(profiles.errorTags("u1")) == 2 })
}

func TestObserverCloseStopsAccepting(t *testing.T) {
	profiles := newFakeProfiles()
	o := NewObserver(profiles, &fakeQueue{}, zap.NewNop(), 3, 3)
	o.Close()

	o.Notify(TurnOutcome{UserID: "u1", ErrorTags: []string{"a"}})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, profiles.errorTags("u1"))
}
