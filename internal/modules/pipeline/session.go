package pipeline

import (
	"context"
	"encoding/json"
	"time"

	redisc "github.com/lingokit/core/internal/pkg/redis"
)

const (
	sessionKeyPrefix     = "lingo:session:ctx:"
	sessionWarmKeyPrefix = "lingo:session:warm:"
	sessionMaxTurns      = 10
)

// SessionStore keeps the rolling conversational context per learner in
// redis so prompts can reference the last few turns. Entries expire with
// the session TTL; losing them degrades prompt quality, nothing else.
type SessionStore struct {
	rc  *redisc.Client
	ttl time.Duration
}

func NewSessionStore(rc *redisc.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rc: rc, ttl: ttl}
}

func (s *SessionStore) key(sk string) string { return sessionKeyPrefix + sk }

// Recent returns the last turns, oldest first.
func (s *SessionStore) Recent(ctx context.Context, sk string) ([]string, error) {
	lines, err := s.rc.Raw().LRange(ctx, s.key(sk), 0, sessionMaxTurns-1).Result()
	if err != nil {
		return nil, err
	}
	// Stored newest first; reverse for prompt order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// Append records one turn and refreshes the session TTL.
func (s *SessionStore) Append(ctx context.Context, sk, line string) error {
	key := s.key(sk)
	pipe := s.rc.Raw().TxPipeline()
	pipe.LPush(ctx, key, line)
	pipe.LTrim(ctx, key, 0, sessionMaxTurns-1)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// WorkingSet returns the warmed concept labels for a session, or nil when
// the session has not been warmed yet.
func (s *SessionStore) WorkingSet(ctx context.Context, sk string) ([]string, error) {
	raw, err := s.rc.GetBytes(ctx, sessionWarmKeyPrefix+sk)
	if err != nil || raw == nil {
		return nil, err
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		_ = s.rc.Del(ctx, sessionWarmKeyPrefix+sk)
		return nil, nil
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

// SetWorkingSet stores the warmed concept labels for the session lifetime.
// An empty slice is stored too, so warm-up runs once per session.
func (s *SessionStore) SetWorkingSet(ctx context.Context, sk string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, sessionWarmKeyPrefix+sk, raw, s.ttl)
}
