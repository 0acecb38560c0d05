package exercise

import (
	"encoding/json"

	"github.com/lingokit/core/internal/modules/pipeline"
)

type exerciseView struct {
	ID        string `json:"id"`
	ConceptID string `json:"conceptId"`
	Prompt    string `json:"prompt"`
	Answer    string `json:"answer,omitempty"`
	Hint      string `json:"hint"`
	CreatedAt string `json:"createdAt"`
}

func decodePayload(raw json.RawMessage) (pipeline.ExercisePayload, error) {
	var p pipeline.ExercisePayload
	err := json.Unmarshal(raw, &p)
	return p, err
}
