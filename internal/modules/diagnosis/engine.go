package diagnosis

import "strings"

// Engine runs the heuristic rule set over learner messages. It is stateless
// and cheap; one pass per turn on the hot path.
type Engine struct {
	rules []Rule
}

func NewEngine() *Engine {
	return &Engine{rules: rules}
}

// Diagnose runs every rule against the message. All matching rules
// contribute, so a message can carry several error categories at once. The
// zero diagnosis means nothing matched.
func (e *Engine) Diagnose(message string) Diagnosis {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return Diagnosis{}
	}

	var d Diagnosis
	seen := map[string]bool{}
	for _, r := range e.rules {
		if !r.Match(msg) {
			continue
		}
		d.Categories = append(d.Categories, r.Tag)
		for _, id := range r.Concepts {
			if seen[id] {
				continue
			}
			seen[id] = true
			d.Concepts = append(d.Concepts, ConceptScore{ConceptID: id, Confidence: r.Confidence})
		}
	}
	return d
}
