package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	observerQueueDepth  = 64
	observerIdleTimeout = 5 * time.Minute
)

// Observer applies a turn's side effects off the request path: profile
// updates, mastery counters, and exercise jobs. Outcomes for one learner
// run in FIFO order on a dedicated goroutine; learners never block each
// other, and Notify never blocks the caller.
type Observer struct {
	profiles  ProfileStore
	jobs      JobQueue
	logger    *zap.Logger
	retries   int
	threshold int
	idleAfter time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]chan TurnOutcome
	wg     sync.WaitGroup
}

func NewObserver(profiles ProfileStore, jobs JobQueue, logger *zap.Logger, retries, threshold int) *Observer {
	if retries <= 0 {
		retries = 3
	}
	if threshold <= 0 {
		threshold = 3
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Observer{
		profiles:  profiles,
		jobs:      jobs,
		logger:    logger,
		retries:   retries,
		threshold: threshold,
		idleAfter: observerIdleTimeout,
		ctx:       ctx,
		cancel:    cancel,
		queues:    make(map[string]chan TurnOutcome),
	}
}

// Notify hands an outcome to the observer. It never blocks; when a
// learner's queue is full the outcome is dropped and logged, since losing
// one profile update is cheaper than stalling a response. The send happens
// under the lock so a queue being reaped cannot swallow an outcome.
func (o *Observer) Notify(outcome TurnOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx.Err() != nil {
		return
	}
	q, ok := o.queues[outcome.UserID]
	if !ok {
		q = make(chan TurnOutcome, observerQueueDepth)
		o.queues[outcome.UserID] = q
		o.wg.Add(1)
		go o.drain(outcome.UserID, q)
	}

	select {
	case q <- outcome:
	default:
		o.logger.Warn("observer queue full, outcome dropped",
			zap.String("userId", outcome.UserID))
	}
}

// Close stops accepting outcomes and waits for in-flight ones to finish.
func (o *Observer) Close() {
	o.mu.Lock()
	o.cancel()
	for _, q := range o.queues {
		close(q)
	}
	o.queues = make(map[string]chan TurnOutcome)
	o.mu.Unlock()
	o.wg.Wait()
}

// drain runs a learner's queue until Close, or until the learner goes quiet
// long enough to reap the queue. A later outcome spins a fresh one up.
func (o *Observer) drain(userID string, q chan TurnOutcome) {
	defer o.wg.Done()
	idle := time.NewTimer(o.idleAfter)
	defer idle.Stop()
	for {
		select {
		case outcome, ok := <-q:
			if !ok {
				return
			}
			o.processWithRetries(outcome)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(o.idleAfter)
		case <-idle.C:
			if o.reap(userID, q) {
				return
			}
			idle.Reset(o.idleAfter)
		}
	}
}

// reap removes an idle queue. An outcome that raced in while the timer
// fired keeps the queue alive.
func (o *Observer) reap(userID string, q chan TurnOutcome) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(q) > 0 {
		return false
	}
	delete(o.queues, userID)
	return true
}

func (o *Observer) processWithRetries(outcome TurnOutcome) {
	var err error
	for attempt := 1; attempt <= o.retries; attempt++ {
		if err = o.process(outcome); err == nil {
			return
		}
		if o.ctx.Err() != nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	o.logger.Error("observer gave up on turn outcome",
		zap.String("userId", outcome.UserID),
		zap.Error(err))
}

func (o *Observer) process(outcome TurnOutcome) error {
	ctx, cancel := context.WithTimeout(o.ctx, 10*time.Second)
	defer cancel()

	if outcome.CacheHit {
		// A hit confirms exposure without new evidence of error.
		if err := o.profiles.TouchMastery(ctx, outcome.UserID, outcome.ConceptIDs); err != nil {
			return err
		}
		return o.profiles.Touch(ctx, outcome.UserID)
	}

	if err := o.profiles.AppendErrors(ctx, outcome.UserID, outcome.ErrorTags); err != nil {
		return err
	}
	if outcome.Summary != "" {
		if err := o.profiles.AppendSummary(ctx, outcome.UserID, outcome.Summary); err != nil {
			return err
		}
	}

	for _, conceptID := range outcome.ConceptIDs {
		count, err := o.profiles.BumpMastery(ctx, outcome.UserID, conceptID)
		if err != nil {
			return err
		}
		if count%o.threshold != 0 {
			continue
		}
		dedup := fmt.Sprintf("%s:%s:%d", outcome.UserID, conceptID, count)
		_, err = o.jobs.Enqueue(ctx, TaskTypeExercise, ExercisePayload{
			UserID:      outcome.UserID,
			ConceptID:   conceptID,
			Proficiency: outcome.Proficiency,
		}, dedup, outcome.UserID)
		if err != nil {
			o.logger.Warn("exercise job enqueue failed",
				zap.String("userId", outcome.UserID),
				zap.String("conceptId", conceptID),
				zap.Error(err))
		}
	}
	return nil
}
