package generation

import "errors"

// Request carries everything the prompt builders need for one turn.
type Request struct {
	Message        string
	Proficiency    string
	NativeLanguage string
	ErrorTags      []string
	ConceptLabels  []string
	RecentContext  []string
	ModelOverride  string
}

// Result is a two-tier generation outcome. Reply is mandatory; Explanation
// is best effort and may be empty when the second tier failed, timed out,
// or came back below the confidence floor.
type Result struct {
	Reply           string  `json:"reply"`
	Explanation     string  `json:"explanation,omitempty"`
	ExplanationHTML string  `json:"explanationHtml,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	Model           string  `json:"model"`
}

var (
	errNoProvider    = errors.New("no enabled AI provider configured")
	errEmptyResponse = errors.New("empty response from AI")
)
