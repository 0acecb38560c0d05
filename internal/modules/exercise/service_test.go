package exercise

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	raw := json.RawMessage(`{"userId":"u1","conceptId":"simple-past","proficiency":"A2"}`)

	p, err := decodePayload(raw)

	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "simple-past", p.ConceptID)
	assert.Equal(t, "A2", p.Proficiency)
}

func TestDecodePayloadMalformed(t *testing.T) {
	_, err := decodePayload(json.RawMessage(`{not json`))

	assert.Error(t, err)
}
