package diagnosis

// ConceptScore ties a knowledge-graph concept to the confidence of the rule
// that flagged it.
type ConceptScore struct {
	ConceptID  string  `json:"conceptId"`
	Confidence float64 `json:"confidence"`
}

// Diagnosis is the output of a single rule pass over a learner message. An
// empty diagnosis is a valid result and means the message looked fine.
type Diagnosis struct {
	Concepts   []ConceptScore `json:"concepts"`
	Categories []string       `json:"categories"`
}

// Empty reports whether no rule matched.
func (d Diagnosis) Empty() bool {
	return len(d.Categories) == 0
}

// ConceptIDs returns the flagged concept ids in rule order.
func (d Diagnosis) ConceptIDs() []string {
	ids := make([]string, 0, len(d.Concepts))
	for _, c := range d.Concepts {
		ids = append(ids, c.ConceptID)
	}
	return ids
}
