package pipeline

import (
	"context"
	"time"

	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/modules/generation"
	"github.com/lingokit/core/internal/pkg/taskqueue"
)

// LatencyClass says which path produced the reply, so clients and logs can
// distinguish a sub-millisecond cache hit from a full generation.
type LatencyClass string

const (
	LatencyCacheHit  LatencyClass = "cache_hit"
	LatencyGenerated LatencyClass = "generated"
	LatencyFallback  LatencyClass = "fallback"
)

// TurnInput is one learner message entering the pipeline.
type TurnInput struct {
	UserID        string
	SessionID     string
	Message       string
	ModelOverride string
}

// sessionKey scopes the working context. Clients that do not send a session
// id get one rolling context per user.
func (in TurnInput) sessionKey() string {
	if in.SessionID != "" {
		return in.UserID + ":" + in.SessionID
	}
	return in.UserID
}

// TurnResult is the turn endpoint's wire form: the reply text, the optional
// native-language supplement, and the diagnosed concepts.
type TurnResult struct {
	Reply           string       `json:"text"`
	Explanation     string       `json:"supplementary_text,omitempty"`
	ExplanationHTML string       `json:"supplementary_html,omitempty"`
	ErrorTags       []string     `json:"error_tags"`
	ConceptIDs      []string     `json:"detected_concepts"`
	Source          LatencyClass `json:"latency_class"`
	Model           string       `json:"model,omitempty"`
	Fingerprint     string       `json:"fingerprint"`
}

// CachedResponse is the stored form of a generated turn.
type CachedResponse struct {
	Reply           string    `json:"reply"`
	Explanation     string    `json:"explanation,omitempty"`
	ExplanationHTML string    `json:"explanationHtml,omitempty"`
	ErrorTags       []string  `json:"errorTags"`
	ConceptIDs      []string  `json:"conceptIds"`
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TurnOutcome is the observer's asynchronous view of a completed turn.
type TurnOutcome struct {
	UserID      string
	Proficiency string
	ErrorTags   []string
	ConceptIDs  []string
	Summary     string
	CacheHit    bool
}

// ProfileStore is the learner profile surface the orchestrator and observer
// need.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID string) (*models.LearnerProfileModel, error)
	Touch(ctx context.Context, userID string) error
	AppendErrors(ctx context.Context, userID string, tags []string) error
	AppendSummary(ctx context.Context, userID, summary string) error
	BumpMastery(ctx context.Context, userID, conceptID string) (int, error)
	TouchMastery(ctx context.Context, userID string, conceptIDs []string) error
	WeakConcepts(ctx context.Context, userID string, limit int) ([]string, error)
}

// ConceptExpander walks the knowledge graph outward from seed concepts.
type ConceptExpander interface {
	Expand(ctx context.Context, seeds []string, hops int) ([]models.ConceptModel, error)
}

// ResponseCache stores generated turns keyed by fingerprint, plus one
// last-good response per concept cluster for degraded fallback.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (*CachedResponse, error)
	Put(ctx context.Context, fingerprint string, resp *CachedResponse) error
	GetLastGood(ctx context.Context, cluster string) (*CachedResponse, error)
	PutLastGood(ctx context.Context, cluster string, resp *CachedResponse) error
}

// Generator is the two-tier generation engine.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// JobQueue accepts background work produced by the observer.
type JobQueue interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*taskqueue.Task, error)
}

// TaskTypeExercise is the background job emitted when a learner keeps
// missing the same concept.
const TaskTypeExercise = "exercise:generate"

// ExercisePayload is the body of a TaskTypeExercise job.
type ExercisePayload struct {
	UserID      string `json:"userId"`
	ConceptID   string `json:"conceptId"`
	Proficiency string `json:"proficiency"`
}
