package exercise

import (
	"context"
	"errors"
	"fmt"

	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/modules/generation"
	"github.com/lingokit/core/internal/modules/pipeline"
	"github.com/lingokit/core/internal/pkg/pagination"
	"github.com/lingokit/core/internal/pkg/response"
	"github.com/lingokit/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Generator produces one practice exercise for a concept.
type Generator interface {
	GenerateExercise(ctx context.Context, proficiency, conceptLabel string) (*generation.Exercise, error)
}

type conceptSource interface {
	GetConcept(id string) (*models.ConceptModel, error)
}

// Service turns queued exercise jobs into stored practice items. It fronts
// the task queue: enqueuing an exercise task also kicks off its execution
// in a goroutine, so the queue doubles as the job's durable record.
type Service struct {
	db       *gorm.DB
	tasks    *taskqueue.Service
	gen      Generator
	concepts conceptSource
	logger   *zap.Logger
}

func NewService(db *gorm.DB, tasks *taskqueue.Service, gen Generator, concepts conceptSource, logger *zap.Logger) *Service {
	return &Service{db: db, tasks: tasks, gen: gen, concepts: concepts, logger: logger}
}

// Enqueue satisfies the pipeline's job queue. Exercise tasks start running
// immediately; anything else is just recorded.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*taskqueue.Task, error) {
	task, err := s.tasks.Enqueue(ctx, taskType, payload, dedupKey, groupKey)
	if err != nil {
		return nil, err
	}
	if taskType == pipeline.TaskTypeExercise && task.Status == taskqueue.TaskPending {
		go s.execute(context.Background(), task.ID)
	}
	return task, nil
}

func (s *Service) execute(ctx context.Context, taskID string) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil || task == nil {
		s.logger.Warn("exercise task vanished before execution", zap.String("taskId", taskID))
		return
	}

	payload, err := decodePayload(task.Payload)
	if err != nil {
		s.fail(ctx, taskID, fmt.Errorf("malformed payload: %w", err))
		return
	}
	if err := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, ""); err != nil {
		s.logger.Warn("task status update failed", zap.String("taskId", taskID), zap.Error(err))
	}

	label := payload.ConceptID
	if concept, err := s.concepts.GetConcept(payload.ConceptID); err == nil && concept != nil {
		label = concept.Label
	}

	generated, err := s.gen.GenerateExercise(ctx, payload.Proficiency, label)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	model := models.ExerciseModel{
		UserID:    payload.UserID,
		ConceptID: payload.ConceptID,
		Prompt:    generated.Prompt,
		Answer:    generated.Answer,
		Hint:      generated.Hint,
		Model:     generated.Model,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	if err := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, map[string]string{"exerciseId": model.ID}, ""); err != nil {
		s.logger.Warn("task status update failed", zap.String("taskId", taskID), zap.Error(err))
	}
	s.logger.Info("exercise generated",
		zap.String("userId", payload.UserID),
		zap.String("conceptId", payload.ConceptID))
}

func (s *Service) fail(ctx context.Context, taskID string, cause error) {
	s.logger.Error("exercise task failed", zap.String("taskId", taskID), zap.Error(cause))
	if err := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, cause.Error()); err != nil {
		s.logger.Warn("task status update failed", zap.String("taskId", taskID), zap.Error(err))
	}
}

// List returns a learner's exercises, newest first.
func (s *Service) List(ctx context.Context, userID string, q pagination.Query) ([]models.ExerciseModel, response.Pagination, error) {
	db := s.db.WithContext(ctx).Model(&models.ExerciseModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	var items []models.ExerciseModel
	page, err := pagination.Paginate(db, q, &items)
	return items, page, err
}

// Get returns one exercise, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.ExerciseModel, error) {
	var item models.ExerciseModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
