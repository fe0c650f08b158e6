package topictree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sosodev/duration"
)

const (
	SampleFile      = "sample.jsonl"
	SplitFile       = "split.json"
	EmbeddingsDB    = "embeddings.db"
	ElbowFile       = "elbow.json"
	TopClustersFile = "clusters_top_level.json"
	SubClustersFile = "clusters_sub_level.json"
	TreeFile        = "topic_tree.txt"
	RunFile         = "run.json"
	ReportFile      = "DEMO_REPORT.md"
	ReportHTMLFile  = "report.html"
)

// ElbowArtifact is the persisted inertia curve
type ElbowArtifact struct {
	Ks       []int     `json:"ks"`
	Inertias []float64 `json:"inertias"`
	ChosenK  int       `json:"chosen_k"`
}

func NewElbowArtifact(r *ElbowResult) ElbowArtifact {
	return ElbowArtifact{Ks: r.Ks, Inertias: r.Inertias, ChosenK: r.ChosenK}
}

// SplitArtifact records the stratified split of the sample. Indices point
// into sample.jsonl.
type SplitArtifact struct {
	Seed        int64    `json:"seed"`
	TestSize    float64  `json:"test_size"`
	LabelNames  []string `json:"label_names"`
	TrainIndex  []int    `json:"train_index"`
	TestIndex   []int    `json:"test_index"`
	TrainCounts []int    `json:"train_counts"`
	TestCounts  []int    `json:"test_counts"`
}

func NewSplitArtifact(s *SplitResult, seed int64, testSize float64) SplitArtifact {
	return SplitArtifact{
		Seed:        seed,
		TestSize:    testSize,
		LabelNames:  s.Train.LabelNames,
		TrainIndex:  s.TrainIndex,
		TestIndex:   s.TestIndex,
		TrainCounts: s.Train.LabelCounts(),
		TestCounts:  s.Test.LabelCounts(),
	}
}

// RunManifest describes one build-topic-tree run
type RunManifest struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	Elapsed        string    `json:"elapsed"`
	Seed           int64     `json:"seed"`
	Documents      int       `json:"documents"`
	EmbeddingModel string    `json:"embedding_model"`
	Labeler        string    `json:"labeler"`
	ChosenK        int       `json:"chosen_k"`
	DegradedLabels int64     `json:"degraded_labels"`
}

// NewRunManifest starts a manifest with a fresh sortable run id
func NewRunManifest(startedAt time.Time) *RunManifest {
	return &RunManifest{
		RunID:     ulid.Make().String(),
		StartedAt: startedAt.UTC(),
	}
}

// Finish stamps the elapsed time as an ISO 8601 duration
func (m *RunManifest) Finish(now time.Time) {
	m.Elapsed = duration.FromTimeDuration(now.Sub(m.StartedAt).Round(time.Millisecond)).String()
}

// SaveJSON writes v as indented JSON without HTML escaping, creating parent
// directories as needed
func SaveJSON(path string, v any) error {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
