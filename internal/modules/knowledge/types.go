package knowledge

import (
	"errors"

	"github.com/lingokit/core/internal/models"
)

// MaxHops is the traversal policy cap. Expansion never walks further than
// this regardless of the requested hop count, which keeps traversal bounded
// on cyclic related_to subgraphs.
const MaxHops = 2

type CreateConceptDTO struct {
	ID    string             `json:"id"    binding:"required"`
	Type  models.ConceptType `json:"type"  binding:"required"`
	Label string             `json:"label" binding:"required"`
	Level string             `json:"level"`
	Notes string             `json:"notes"`
}

type UpdateConceptDTO struct {
	Type  *models.ConceptType `json:"type"`
	Label *string             `json:"label"`
	Level *string             `json:"level"`
	Notes *string             `json:"notes"`
}

type CreateEdgeDTO struct {
	SourceID string              `json:"source_id" binding:"required"`
	TargetID string              `json:"target_id" binding:"required"`
	Relation models.EdgeRelation `json:"relation"  binding:"required"`
}

var (
	errDuplicateConcept = errors.New("concept already exists")
	errDuplicateEdge    = errors.New("edge already exists")
	errUnknownConcept   = errors.New("source or target concept does not exist")
	errBadRelation      = errors.New("unknown edge relation")
	errBadConceptType   = errors.New("unknown concept type")
	errSelfEdge         = errors.New("source and target must differ")
)

func validRelation(r models.EdgeRelation) bool {
	switch r {
	case models.RelationIsA, models.RelationRelatedTo, models.RelationPrerequisiteOf:
		return true
	}
	return false
}

func validConceptType(t models.ConceptType) bool {
	switch t {
	case models.ConceptVocabulary, models.ConceptGrammarRule, models.ConceptTopic:
		return true
	}
	return false
}
