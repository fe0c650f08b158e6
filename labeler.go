package topictree

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultTopicLabel = "General Topic"

	maxOpenAILabelLength    = 48
	maxHeuristicLabelLength = 40
)

// TopicLabel is a short cluster name and the reason for it
type TopicLabel struct {
	Label     string `json:"label" jsonschema:"description=Topic label of 2 to 6 words"`
	Rationale string `json:"rationale" jsonschema:"description=One sentence explaining the label"`
}

// Labeler names a cluster from its representative snippets. Implementations
// never fail: when they cannot produce a label they return a placeholder.
type Labeler interface {
	Label(ctx context.Context, snippets []string) TopicLabel
	Name() string
}

// LabelerConfig selects and configures the labeling backend
type LabelerConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewLabeler picks the labeling backend once per run. Without an API key the
// heuristic labeler is used.
func NewLabeler(cfg LabelerConfig) Labeler {
	if cfg.APIKey == "" {
		log.Printf("⚠️  OPENAI_API_KEY not found. Using heuristic labeler.")
		return NewHeuristicLabeler()
	}
	return NewOpenAILabeler(cfg)
}

var tokenPattern = regexp.MustCompile(`[A-Za-z]{3,}`)

// HeuristicLabeler labels clusters by their most frequent content words
type HeuristicLabeler struct{}

func NewHeuristicLabeler() *HeuristicLabeler {
	return &HeuristicLabeler{}
}

func (h *HeuristicLabeler) Name() string {
	return "heuristic"
}

func (h *HeuristicLabeler) Label(_ context.Context, snippets []string) TopicLabel {
	var tokens []string
	for _, snippet := range snippets {
		for _, word := range tokenPattern.FindAllString(strings.ToLower(snippet), -1) {
			if _, stop := englishStopWords[word]; !stop {
				tokens = append(tokens, word)
			}
		}
	}

	common := mostCommon(tokens, 4)
	if len(common) == 0 {
		return TopicLabel{
			Label:     DefaultTopicLabel,
			Rationale: "The snippets are broad, so this is a general topic.",
		}
	}

	caser := cases.Title(language.English)
	label := caser.String(strings.Join(common[:min(3, len(common))], " "))

	return TopicLabel{
		Label:     truncateString(label, maxHeuristicLabelLength),
		Rationale: fmt.Sprintf("This topic is represented by recurring terms: %s.", strings.Join(common, ", ")),
	}
}

// mostCommon returns up to n tokens by descending frequency. Equal counts
// keep the order in which tokens first appeared.
func mostCommon(tokens []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, token := range tokens {
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	return order[:min(n, len(order))]
}

// truncateString cuts s to at most maxLength characters
func truncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength])
}
