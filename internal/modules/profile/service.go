package profile

import (
	"context"
	"errors"
	"time"

	"github.com/lingokit/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultProficiency = "A2"

// Caps bounds the profile's rolling lists. Both lists are most-recent-first
// and drop the oldest entry when full.
type Caps struct {
	RecentErrors     int
	SessionSummaries int
}

// Service is the learner profile store. Profiles are created lazily on first
// interaction and mutated only by the turn observer.
type Service struct {
	db   *gorm.DB
	caps Caps
}

func NewService(db *gorm.DB, caps Caps) *Service {
	if caps.RecentErrors <= 0 {
		caps.RecentErrors = 20
	}
	if caps.SessionSummaries <= 0 {
		caps.SessionSummaries = 10
	}
	return &Service{db: db, caps: caps}
}

// Get returns the profile for userID, or (nil, nil) when none exists.
func (s *Service) Get(ctx context.Context, userID string) (*models.LearnerProfileModel, error) {
	var p models.LearnerProfileModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetOrCreate returns the profile for userID, creating a default one on
// first interaction.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*models.LearnerProfileModel, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	created := models.LearnerProfileModel{
		UserID:           userID,
		Proficiency:      defaultProficiency,
		RecentErrors:     models.StringArray{},
		SessionSummaries: models.StringArray{},
		TouchedAt:        time.Now(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Touch refreshes the retention timestamp.
func (s *Service) Touch(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.LearnerProfileModel{}).
		Where("user_id = ?", userID).
		Update("touched_at", time.Now()).Error
}

// AppendErrors pushes error tags onto the recent-error list, newest first,
// dropping the oldest entries past the cap.
func (s *Service) AppendErrors(ctx context.Context, userID string, tags []string) error {
	if len(tags) == 0 {
		return s.Touch(ctx, userID)
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"recent_errors": pushBounded(p.RecentErrors, tags, s.caps.RecentErrors),
		"touched_at":    time.Now(),
	}).Error
}

// AppendSummary pushes a session summary line, newest first, bounded.
func (s *Service) AppendSummary(ctx context.Context, userID, summary string) error {
	if summary == "" {
		return nil
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"session_summaries": pushBounded(p.SessionSummaries, []string{summary}, s.caps.SessionSummaries),
		"touched_at":        time.Now(),
	}).Error
}

// UpdateProficiency sets the CEFR level.
func (s *Service) UpdateProficiency(ctx context.Context, userID, level string) error {
	return s.db.WithContext(ctx).Model(&models.LearnerProfileModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"proficiency": level, "touched_at": time.Now()}).Error
}

// BumpMastery increments the error count for a (user, concept) pair and
// returns the new count.
func (s *Service) BumpMastery(ctx context.Context, userID, conceptID string) (int, error) {
	now := time.Now()

	var m models.ConceptMasteryModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND concept_id = ?", userID, conceptID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.ConceptMasteryModel{
			UserID:      userID,
			ConceptID:   conceptID,
			ErrorCount:  1,
			Weight:      1,
			LastErrorAt: &now,
			LastSeenAt:  &now,
		}
		if createErr := s.db.WithContext(ctx).Create(&m).Error; createErr != nil {
			return 0, createErr
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	m.ErrorCount++
	m.Weight = float64(m.ErrorCount)
	m.LastErrorAt = &now
	m.LastSeenAt = &now
	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return 0, err
	}
	return m.ErrorCount, nil
}

// TouchMastery refreshes recency for concepts seen on a cached turn.
func (s *Service) TouchMastery(ctx context.Context, userID string, conceptIDs []string) error {
	if len(conceptIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.ConceptMasteryModel{}).
		Where("user_id = ? AND concept_id IN ?", userID, conceptIDs).
		Update("last_seen_at", time.Now()).Error
}

// WeakConcepts returns the concept ids with the highest error counts for the
// user, used to seed the warm-up expansion.
func (s *Service) WeakConcepts(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.ConceptMasteryModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND error_count > 0", userID).
		Order("error_count DESC, last_error_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ConceptID)
	}
	return ids, nil
}

// Delete removes a single profile and its mastery rows.
func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.ConceptMasteryModel{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).
			Delete(&models.LearnerProfileModel{}).Error
	})
}

// DeleteExpired removes profiles untouched for the retention window and
// returns the number removed.
func (s *Service) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := s.db.WithContext(ctx).
		Where("touched_at < ?", cutoff).
		Delete(&models.LearnerProfileModel{})
	return result.RowsAffected, result.Error
}

// pushBounded prepends items to list, newest first, keeping at most cap
// entries.
func pushBounded(list []string, items []string, cap int) models.StringArray {
	out := make([]string, 0, len(items)+len(list))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	out = append(out, list...)
	if len(out) > cap {
		out = out[:cap]
	}
	return models.StringArray(out)
}
