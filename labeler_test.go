package topictree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicLabelerRepeatedWord(t *testing.T) {
	snippets := []string{
		"The rocket launched. Another rocket followed the first rocket.",
		"A rocket engine and a rocket stage; rocket fuel burns hot",
	}

	label := NewHeuristicLabeler().Label(context.Background(), snippets)

	assert.Contains(t, label.Label, "Rocket")
	assert.True(t, strings.HasPrefix(label.Rationale, "This topic is represented by recurring terms: rocket"))
}

func TestHeuristicLabelerEmpty(t *testing.T) {
	label := NewHeuristicLabeler().Label(context.Background(), nil)

	assert.Equal(t, "General Topic", label.Label)
	assert.Equal(t, "The snippets are broad, so this is a general topic.", label.Rationale)
}

func TestHeuristicLabelerOnlyStopWords(t *testing.T) {
	label := NewHeuristicLabeler().Label(context.Background(), []string{"it is what it is, and so on", "a b c 42"})
	assert.Equal(t, DefaultTopicLabel, label.Label)
}

func TestHeuristicLabelerTopTerms(t *testing.T) {
	snippets := []string{"hockey hockey hockey goalie goalie puck puck season"}

	label := NewHeuristicLabeler().Label(context.Background(), snippets)

	assert.Equal(t, "Hockey Goalie Puck", label.Label)
	assert.Equal(t, "This topic is represented by recurring terms: hockey, goalie, puck, season.", label.Rationale)
}

func TestHeuristicLabelerTruncates(t *testing.T) {
	snippets := []string{"electroencephalography electroencephalography magnetoencephalography photolithography"}

	label := NewHeuristicLabeler().Label(context.Background(), snippets)

	assert.Len(t, []rune(label.Label), 40)
	assert.True(t, strings.HasPrefix(label.Label, "Electroencephalography"))
}

func TestMostCommonTiesKeepFirstOccurrence(t *testing.T) {
	got := mostCommon([]string{"beta", "alpha", "gamma", "alpha", "beta", "delta", "epsilon"}, 4)
	assert.Equal(t, []string{"beta", "alpha", "gamma", "delta"}, got)
}

func TestNewLabelerSelection(t *testing.T) {
	assert.IsType(t, &HeuristicLabeler{}, NewLabeler(LabelerConfig{}))
	assert.IsType(t, &OpenAILabeler{}, NewLabeler(LabelerConfig{APIKey: "sk-test"}))
}

func TestTruncateStringRunes(t *testing.T) {
	assert.Equal(t, "çğı", truncateString("çğıöş", 3))
	assert.Equal(t, "short", truncateString("short", 10))
}
