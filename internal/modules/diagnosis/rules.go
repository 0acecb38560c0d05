package diagnosis

import (
	"regexp"
	"strings"
)

// Rule is one heuristic error detector. Match runs against the lowercased
// learner message; Concepts names the graph nodes a hit maps to.
type Rule struct {
	Tag        string
	Concepts   []string
	Confidence float64
	Match      func(msg string) bool
}

var (
	// "I go to school yesterday" - a present-tense verb next to a past
	// time adverb.
	pastTimeAdverb = regexp.MustCompile(`\b(?:go|come|see|eat|take|make|do|have|get|buy|run|write|read|meet)\b[^.?!]*\b(?:yesterday|last (?:week|month|year|night)|ago)\b`)

	// "he go", "she have", "it do" - third-person singular subject with
	// a bare verb form.
	thirdPersonBare = regexp.MustCompile(`\b(?:he|she|it)\s+(?:go|do|have|want|like|need|say|make|take|get|know|think|come|see|eat|run|play|work|live|study)\b`)

	// "a apple" - indefinite article before a vowel sound.
	articleVowel = regexp.MustCompile(`\ba\s+[aeiou]\w*`)
	// "an book" - an before a consonant.
	articleConsonant = regexp.MustCompile(`\ban\s+[bcdfghjklmnpqrstvwxyz]\w*`)

	// "don't know nothing", "can't see nobody".
	doubleNegative = regexp.MustCompile(`\b(?:\w+n't|not|never|no)\b[^.?!]*\b(?:nothing|nobody|nowhere|no one|none)\b`)

	// "three apple" - numeral above one followed by a singular noun. The
	// noun group is captured so the rule can reject forms that already
	// carry a plural ending.
	pluralNumeral = regexp.MustCompile(`\b(?:two|three|four|five|six|seven|eight|nine|ten|\d{1,3})\s+([a-z]+)\b`)

	// "in Monday", "at January" - mismatched time preposition.
	prepositionDay   = regexp.MustCompile(`\b(?:in|at)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	prepositionMonth = regexp.MustCompile(`\b(?:on|at)\s+(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`)
)

// pluralExceptions are words the numeral rule would otherwise flag.
var pluralExceptions = map[string]bool{
	"people": true, "children": true, "men": true, "women": true,
	"feet": true, "teeth": true, "mice": true, "sheep": true,
	"fish": true, "deer": true, "times": true, "years": true,
	"days": true, "hours": true, "minutes": true, "weeks": true,
	"months": true, "hundred": true, "thousand": true, "million": true,
	"more": true, "of": true, "or": true,
}

func matchPluralNumeral(msg string) bool {
	for _, m := range pluralNumeral.FindAllStringSubmatch(msg, -1) {
		noun := m[1]
		if pluralExceptions[noun] {
			continue
		}
		if strings.HasSuffix(noun, "s") {
			continue
		}
		return true
	}
	return false
}

// rules run in order; every matching rule contributes to the diagnosis.
var rules = []Rule{
	{
		Tag:        "past_tense",
		Concepts:   []string{"simple-past", "past-time-adverbs"},
		Confidence: 0.9,
		Match:      pastTimeAdverb.MatchString,
	},
	{
		Tag:        "subject_verb_agreement",
		Concepts:   []string{"subject-verb-agreement", "present-simple"},
		Confidence: 0.85,
		Match:      thirdPersonBare.MatchString,
	},
	{
		Tag:        "article_usage",
		Concepts:   []string{"indefinite-articles"},
		Confidence: 0.8,
		Match: func(msg string) bool {
			return articleVowel.MatchString(msg) || articleConsonant.MatchString(msg)
		},
	},
	{
		Tag:        "double_negative",
		Concepts:   []string{"negation"},
		Confidence: 0.85,
		Match:      doubleNegative.MatchString,
	},
	{
		Tag:        "plural_numeral",
		Concepts:   []string{"plural-nouns"},
		Confidence: 0.7,
		Match:      matchPluralNumeral,
	},
	{
		Tag:        "preposition_time",
		Concepts:   []string{"time-prepositions"},
		Confidence: 0.75,
		Match: func(msg string) bool {
			return prepositionDay.MatchString(msg) || prepositionMonth.MatchString(msg)
		},
	},
}

// ConceptsForTags maps stored error tags back to concept ids, for seeding
// the warm-up expansion from a profile's recent errors.
func ConceptsForTags(tags []string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, tag := range tags {
		for _, r := range rules {
			if r.Tag != tag {
				continue
			}
			for _, id := range r.Concepts {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}
