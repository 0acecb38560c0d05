package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosePastTenseWithTimeAdverb(t *testing.T) {
	e := NewEngine()

	d := e.Diagnose("I go to school yesterday")

	assert.Contains(t, d.Categories, "past_tense")
	assert.Contains(t, d.ConceptIDs(), "simple-past")
}

func TestDiagnoseCleanMessageIsEmpty(t *testing.T) {
	e := NewEngine()

	for _, msg := range []string{
		"I went to school yesterday",
		"She has an apple",
		"We met on Monday",
		"",
	} {
		d := e.Diagnose(msg)
		assert.True(t, d.Empty(), "expected no diagnosis for %q, got %v", msg, d.Categories)
	}
}

func TestDiagnoseSubjectVerbAgreement(t *testing.T) {
	e := NewEngine()

	d := e.Diagnose("He go to work every day")

	assert.Contains(t, d.Categories, "subject_verb_agreement")
}

func TestDiagnoseArticleUsage(t *testing.T) {
	e := NewEngine()

	assert.Contains(t, e.Diagnose("I ate a apple").Categories, "article_usage")
	assert.Contains(t, e.Diagnose("She read an book").Categories, "article_usage")
}

func TestDiagnoseDoubleNegative(t *testing.T) {
	e := NewEngine()

	d := e.Diagnose("I don't know nothing about it")

	assert.Contains(t, d.Categories, "double_negative")
}

func TestDiagnosePluralNumeral(t *testing.T) {
	e := NewEngine()

	assert.Contains(t, e.Diagnose("I bought three apple").Categories, "plural_numeral")
	assert.NotContains(t, e.Diagnose("I bought three apples").Categories, "plural_numeral")
	assert.NotContains(t, e.Diagnose("three people came").Categories, "plural_numeral")
}

func TestDiagnosePrepositionTime(t *testing.T) {
	e := NewEngine()

	assert.Contains(t, e.Diagnose("See you in Monday").Categories, "preposition_time")
	assert.Contains(t, e.Diagnose("My birthday is on January").Categories, "preposition_time")
}

func TestDiagnoseMultipleRulesContribute(t *testing.T) {
	e := NewEngine()

	d := e.Diagnose("he go to a airport yesterday")

	assert.Contains(t, d.Categories, "past_tense")
	assert.Contains(t, d.Categories, "subject_verb_agreement")
	assert.Contains(t, d.Categories, "article_usage")
}

func TestConceptsForTagsDedupes(t *testing.T) {
	ids := ConceptsForTags([]string{"past_tense", "past_tense", "article_usage", "unknown_tag"})

	assert.Equal(t, []string{"simple-past", "past-time-adverbs", "indefinite-articles"}, ids)
}
