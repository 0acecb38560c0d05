package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/lingokit/core/internal/config"
	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/modules/diagnosis"
	"github.com/lingokit/core/internal/modules/generation"
	"github.com/lingokit/core/internal/pkg/markdown"
	"go.uber.org/zap"
)

var errEmptyMessage = errors.New("message must not be empty")

// SessionContext is the per-session conversational memory surface: the last
// few turns plus the warmed concept working set.
type SessionContext interface {
	Recent(ctx context.Context, key string) ([]string, error)
	Append(ctx context.Context, key, line string) error
	WorkingSet(ctx context.Context, key string) ([]string, error)
	SetWorkingSet(ctx context.Context, key string, labels []string) error
}

// Notifier receives completed turns for asynchronous processing.
type Notifier interface {
	Notify(outcome TurnOutcome)
}

// Service is the turn orchestrator. A turn moves through fingerprinting,
// cache lookup, diagnosis, graph expansion, generation, and caching; every
// stage after the cache check degrades rather than fails the turn.
type Service struct {
	profiles ProfileStore
	expander ConceptExpander
	cache    ResponseCache
	gen      Generator
	sessions SessionContext
	diag     *diagnosis.Engine
	observer Notifier
	cfg      appcfg.PipelineConfig
	logger   *zap.Logger

	now func() time.Time
}

func NewService(
	profiles ProfileStore,
	expander ConceptExpander,
	cache ResponseCache,
	gen Generator,
	sessions SessionContext,
	diag *diagnosis.Engine,
	observer Notifier,
	cfg appcfg.PipelineConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		profiles: profiles,
		expander: expander,
		cache:    cache,
		gen:      gen,
		sessions: sessions,
		diag:     diag,
		observer: observer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleTurn runs one learner message through the pipeline.
func (s *Service) HandleTurn(ctx context.Context, input TurnInput) (*TurnResult, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, errEmptyMessage
	}

	profile, err := s.profiles.GetOrCreate(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	tags := profile.RecentErrors
	if s.cfg.FingerprintTags > 0 && len(tags) > s.cfg.FingerprintTags {
		tags = tags[:s.cfg.FingerprintTags]
	}
	fingerprint := Fingerprint(message, profile.Proficiency, tags)

	if cached := s.lookupCache(ctx, fingerprint); cached != nil {
		s.observer.Notify(TurnOutcome{
			UserID:      input.UserID,
			Proficiency: profile.Proficiency,
			ConceptIDs:  cached.ConceptIDs,
			CacheHit:    true,
		})
		return resultFrom(cached, LatencyCacheHit, fingerprint), nil
	}

	diagnosed := s.diag.Diagnose(message)
	concepts := s.expandConcepts(ctx, diagnosed)
	working := s.workingSet(ctx, input.UserID, input.sessionKey(), profile)

	recent, err := s.sessions.Recent(ctx, input.sessionKey())
	if err != nil {
		s.logger.Warn("session context unavailable", zap.Error(err))
		recent = nil
	}

	result, genErr := s.gen.Generate(ctx, generation.Request{
		Message:        message,
		Proficiency:    profile.Proficiency,
		NativeLanguage: profile.NativeLanguage,
		ErrorTags:      diagnosed.Categories,
		ConceptLabels:  mergeLabels(conceptLabels(concepts), working),
		RecentContext:  recent,
		ModelOverride:  input.ModelOverride,
	})
	if genErr != nil {
		return s.fallback(ctx, input, profile, diagnosed, fingerprint, genErr), nil
	}

	cached := &CachedResponse{
		Reply:           result.Reply,
		Explanation:     result.Explanation,
		ExplanationHTML: result.ExplanationHTML,
		ErrorTags:       diagnosed.Categories,
		ConceptIDs:      diagnosed.ConceptIDs(),
		Model:           result.Model,
		CreatedAt:       s.now(),
	}
	s.storeCache(ctx, fingerprint, cached)
	s.recordSession(ctx, input.sessionKey(), message, result.Reply)

	s.observer.Notify(TurnOutcome{
		UserID:      input.UserID,
		Proficiency: profile.Proficiency,
		ErrorTags:   diagnosed.Categories,
		ConceptIDs:  diagnosed.ConceptIDs(),
		Summary:     turnSummary(message, diagnosed.Categories),
		CacheHit:    false,
	})
	return resultFrom(cached, LatencyGenerated, fingerprint), nil
}

// WarmUp pre-expands the learner's weak concepts and pins the result as the
// session's working set, so the first real turn pays no graph traversal
// cost. Returns the number of warmed concepts.
func (s *Service) WarmUp(ctx context.Context, userID, sessionID string) (int, error) {
	profile, err := s.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	key := TurnInput{UserID: userID, SessionID: sessionID}.sessionKey()
	return len(s.warm(ctx, key, userID, profile)), nil
}

// workingSet returns the session's warmed concept labels, warming the
// session on its first message.
func (s *Service) workingSet(ctx context.Context, userID, key string, profile *models.LearnerProfileModel) []string {
	labels, err := s.sessions.WorkingSet(ctx, key)
	if err != nil {
		s.logger.Warn("working set unavailable", zap.Error(err))
		return nil
	}
	if labels != nil {
		return labels
	}
	return s.warm(ctx, key, userID, profile)
}

// warm seeds an expansion from the profile's weak areas and stores the
// resulting labels for the session lifetime. An expansion failure leaves
// the session cold so a later turn retries; the current turn proceeds.
func (s *Service) warm(ctx context.Context, key, userID string, profile *models.LearnerProfileModel) []string {
	seeds, err := s.profiles.WeakConcepts(ctx, userID, 5)
	if err != nil {
		s.logger.Warn("weak concept lookup failed", zap.Error(err))
		seeds = nil
	}
	seeds = append(seeds, diagnosis.ConceptsForTags(profile.RecentErrors)...)

	var labels []string
	if len(seeds) > 0 {
		expandCtx, cancel := context.WithTimeout(ctx, s.cfg.ExpandBudget)
		defer cancel()
		concepts, err := s.expander.Expand(expandCtx, seeds, s.cfg.MaxHops)
		if err != nil {
			s.logger.Warn("warm-up expansion failed", zap.Error(err))
			return nil
		}
		labels = conceptLabels(concepts)
	}
	if err := s.sessions.SetWorkingSet(ctx, key, labels); err != nil {
		s.logger.Warn("working set store failed", zap.Error(err))
	}
	return labels
}

func (s *Service) lookupCache(ctx context.Context, fingerprint string) *CachedResponse {
	cached, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		s.logger.Warn("cache lookup failed, treating as miss", zap.Error(err))
		return nil
	}
	return cached
}

func (s *Service) storeCache(ctx context.Context, fingerprint string, resp *CachedResponse) {
	if err := s.cache.Put(ctx, fingerprint, resp); err != nil {
		s.logger.Warn("cache store failed", zap.Error(err))
	}
	if err := s.cache.PutLastGood(ctx, ClusterKey(resp.ConceptIDs), resp); err != nil {
		s.logger.Warn("last-good store failed", zap.Error(err))
	}
}

// recordSession stores one turn for prompt context. The reply is flattened
// to plain text so later prompts carry no markup.
func (s *Service) recordSession(ctx context.Context, key, message, reply string) {
	line := fmt.Sprintf("learner: %s / tutor: %s", message, markdown.StripMarkup(reply))
	if err := s.sessions.Append(ctx, key, line); err != nil {
		s.logger.Warn("session append failed", zap.Error(err))
	}
}

// expandConcepts walks the graph within the hop and time budget. A timeout
// returns whatever was reached; a hard failure returns nothing, and the
// turn proceeds without graph context.
func (s *Service) expandConcepts(ctx context.Context, d diagnosis.Diagnosis) []models.ConceptModel {
	if d.Empty() {
		return nil
	}
	expandCtx, cancel := context.WithTimeout(ctx, s.cfg.ExpandBudget)
	defer cancel()

	concepts, err := s.expander.Expand(expandCtx, d.ConceptIDs(), s.cfg.MaxHops)
	if err != nil {
		s.logger.Warn("concept expansion failed", zap.Error(err))
		return nil
	}
	return concepts
}

// fallback answers a turn whose generation failed: last-good response for
// the concept cluster first, then a fixed deterministic reply. The turn is
// still observed so the profile reflects the detected errors.
func (s *Service) fallback(ctx context.Context, input TurnInput, profile *models.LearnerProfileModel, d diagnosis.Diagnosis, fingerprint string, genErr error) *TurnResult {
	s.logger.Error("generation failed, serving fallback",
		zap.String("userId", input.UserID),
		zap.Error(genErr))

	s.observer.Notify(TurnOutcome{
		UserID:      input.UserID,
		Proficiency: profile.Proficiency,
		ErrorTags:   d.Categories,
		ConceptIDs:  d.ConceptIDs(),
		Summary:     turnSummary(strings.TrimSpace(input.Message), d.Categories),
		CacheHit:    false,
	})

	lastGood, err := s.cache.GetLastGood(ctx, ClusterKey(d.ConceptIDs()))
	if err != nil {
		s.logger.Warn("last-good lookup failed", zap.Error(err))
	}
	if lastGood != nil {
		return resultFrom(lastGood, LatencyFallback, fingerprint)
	}

	return &TurnResult{
		Reply:       fallbackReply(d.Categories),
		ErrorTags:   d.Categories,
		ConceptIDs:  d.ConceptIDs(),
		Source:      LatencyFallback,
		Fingerprint: fingerprint,
	}
}

// fallbackReply is deterministic so a fully degraded system still answers
// something sensible.
func fallbackReply(errorTags []string) string {
	if len(errorTags) == 0 {
		return "Thanks for your message! Let's keep practicing. Can you tell me more?"
	}
	return "Good try! There is a small grammar slip in that sentence. Want to try saying it another way?"
}

func turnSummary(message string, tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return fmt.Sprintf("%s (%s)", message, strings.Join(tags, ", "))
}

func conceptLabels(concepts []models.ConceptModel) []string {
	labels := make([]string, 0, len(concepts))
	for _, c := range concepts {
		labels = append(labels, c.Label)
	}
	return labels
}

// mergeLabels keeps the message-specific expansion first, then the warmed
// session labels, deduplicated.
func mergeLabels(primary, warmed []string) []string {
	if len(warmed) == 0 {
		return primary
	}
	seen := make(map[string]struct{}, len(primary)+len(warmed))
	out := make([]string, 0, len(primary)+len(warmed))
	for _, label := range primary {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	for _, label := range warmed {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

func resultFrom(resp *CachedResponse, source LatencyClass, fingerprint string) *TurnResult {
	return &TurnResult{
		Reply:           resp.Reply,
		Explanation:     resp.Explanation,
		ExplanationHTML: resp.ExplanationHTML,
		ErrorTags:       resp.ErrorTags,
		ConceptIDs:      resp.ConceptIDs,
		Source:          source,
		Model:           resp.Model,
		Fingerprint:     fingerprint,
	}
}
