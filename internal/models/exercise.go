package models

// ExerciseModel is a personalized exercise generated in the background after
// a learner repeatedly errors on a concept.
type ExerciseModel struct {
	Base
	UserID    string `json:"user_id"    gorm:"type:varchar(64);index"`
	ConceptID string `json:"concept_id" gorm:"type:varchar(64);index"`
	Prompt    string `json:"prompt"     gorm:"type:text"`
	Answer    string `json:"answer"     gorm:"type:text"`
	Hint      string `json:"hint,omitempty" gorm:"type:text"`
	Model     string `json:"model,omitempty" gorm:"type:varchar(64)"` // generating model id
}

func (ExerciseModel) TableName() string { return "exercises" }
