package knowledge

import (
	"context"
	"errors"

	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/pkg/pagination"
	"github.com/lingokit/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Service is the knowledge store: read side for the pipeline (Expand), write
// side for content management.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Expand returns the concepts reachable from the seed ids within maxHops,
// seeds included. Unknown seed ids contribute nothing.
func (s *Service) Expand(ctx context.Context, seeds []string, maxHops int) ([]models.ConceptModel, error) {
	ids, err := expandIDs(ctx, s, seeds, maxHops)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.ConceptModel{}, nil
	}

	var concepts []models.ConceptModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (s *Service) edgesTouching(ctx context.Context, ids []string) ([]models.ConceptEdgeModel, error) {
	var edges []models.ConceptEdgeModel
	err := s.db.WithContext(ctx).
		Where("source_id IN ?", ids).
		Or("target_id IN ?", ids).
		Find(&edges).Error
	return edges, err
}

func (s *Service) GetConcept(id string) (*models.ConceptModel, error) {
	var concept models.ConceptModel
	if err := s.db.First(&concept, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &concept, nil
}

func (s *Service) ListConcepts(q pagination.Query, conceptType *models.ConceptType, level string) ([]models.ConceptModel, response.Pagination, error) {
	tx := s.db.Model(&models.ConceptModel{}).Order("id ASC")
	if conceptType != nil {
		tx = tx.Where("type = ?", *conceptType)
	}
	if level != "" {
		tx = tx.Where("level = ?", level)
	}
	var items []models.ConceptModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) CreateConcept(dto *CreateConceptDTO) (*models.ConceptModel, error) {
	if !validConceptType(dto.Type) {
		return nil, errBadConceptType
	}
	existing, err := s.GetConcept(dto.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errDuplicateConcept
	}

	concept := models.ConceptModel{
		Type:  dto.Type,
		Label: dto.Label,
		Level: dto.Level,
		Notes: dto.Notes,
	}
	concept.ID = dto.ID
	if err := s.db.Create(&concept).Error; err != nil {
		return nil, err
	}
	return &concept, nil
}

func (s *Service) UpdateConcept(id string, dto *UpdateConceptDTO) (*models.ConceptModel, error) {
	concept, err := s.GetConcept(id)
	if err != nil || concept == nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Type != nil && validConceptType(*dto.Type) {
		updates["type"] = *dto.Type
	}
	if dto.Label != nil {
		updates["label"] = *dto.Label
	}
	if dto.Level != nil {
		updates["level"] = *dto.Level
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	if len(updates) > 0 {
		if err := s.db.Model(concept).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetConcept(id)
}

// DeleteConcept removes a concept and every edge touching it.
func (s *Service) DeleteConcept(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ? OR target_id = ?", id, id).
			Delete(&models.ConceptEdgeModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ConceptModel{}, "id = ?", id).Error
	})
}

func (s *Service) ListEdges(q pagination.Query, conceptID string) ([]models.ConceptEdgeModel, response.Pagination, error) {
	tx := s.db.Model(&models.ConceptEdgeModel{}).Order("created_at DESC")
	if conceptID != "" {
		tx = tx.Where("source_id = ? OR target_id = ?", conceptID, conceptID)
	}
	var items []models.ConceptEdgeModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) CreateEdge(dto *CreateEdgeDTO) (*models.ConceptEdgeModel, error) {
	if !validRelation(dto.Relation) {
		return nil, errBadRelation
	}
	if dto.SourceID == dto.TargetID {
		return nil, errSelfEdge
	}

	var count int64
	if err := s.db.Model(&models.ConceptModel{}).
		Where("id IN ?", []string{dto.SourceID, dto.TargetID}).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count != 2 {
		return nil, errUnknownConcept
	}

	var existing int64
	if err := s.db.Model(&models.ConceptEdgeModel{}).
		Where("source_id = ? AND target_id = ? AND relation = ?", dto.SourceID, dto.TargetID, dto.Relation).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errDuplicateEdge
	}

	edge := models.ConceptEdgeModel{
		SourceID: dto.SourceID,
		TargetID: dto.TargetID,
		Relation: dto.Relation,
	}
	if err := s.db.Create(&edge).Error; err != nil {
		return nil, err
	}
	return &edge, nil
}

func (s *Service) DeleteEdge(id string) error {
	return s.db.Delete(&models.ConceptEdgeModel{}, "id = ?", id).Error
}
