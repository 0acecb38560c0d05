package models

import "time"

// ConceptType classifies a node in the knowledge graph.
type ConceptType string

const (
	ConceptVocabulary  ConceptType = "vocabulary"
	ConceptGrammarRule ConceptType = "grammar_rule"
	ConceptTopic       ConceptType = "topic"
)

// EdgeRelation is the typed relation between two concepts.
type EdgeRelation string

const (
	RelationIsA            EdgeRelation = "is_a"
	RelationRelatedTo      EdgeRelation = "related_to"
	RelationPrerequisiteOf EdgeRelation = "prerequisite_of"
)

// ConceptModel is a node in the knowledge graph. The ID is a stable slug
// ("simple_past", "articles") assigned by content management; diagnosis rules
// reference concepts by these slugs.
type ConceptModel struct {
	Base
	Type  ConceptType `json:"type"  gorm:"type:varchar(16);index;not null"`
	Label string      `json:"label" gorm:"not null"`
	Level string      `json:"level" gorm:"type:varchar(8);index"` // CEFR: A1..C2
	Notes string      `json:"notes,omitempty" gorm:"type:text"`
}

func (ConceptModel) TableName() string { return "concepts" }

// ConceptEdgeModel is a typed edge between two concepts. related_to is
// symmetric and may form cycles; traversal code must not assume acyclicity.
type ConceptEdgeModel struct {
	Base
	SourceID string       `json:"source_id" gorm:"type:varchar(64);index:idx_edge_triple,unique;index"`
	TargetID string       `json:"target_id" gorm:"type:varchar(64);index:idx_edge_triple,unique;index"`
	Relation EdgeRelation `json:"relation"  gorm:"type:varchar(24);index:idx_edge_triple,unique"`
}

func (ConceptEdgeModel) TableName() string { return "concept_edges" }

// ConceptMasteryModel tracks per-(user, concept) mastery state, written only
// by the turn observer.
type ConceptMasteryModel struct {
	Base
	UserID      string     `json:"user_id"    gorm:"type:varchar(64);index:idx_mastery_user_concept,unique"`
	ConceptID   string     `json:"concept_id" gorm:"type:varchar(64);index:idx_mastery_user_concept,unique"`
	ErrorCount  int        `json:"error_count"`
	Weight      float64    `json:"weight"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

func (ConceptMasteryModel) TableName() string { return "concept_masteries" }
