package topictree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var topicVocabulary = map[string][]string{
	"rec.sport.hockey": {"hockey", "goalie", "puck", "playoffs", "skate", "rink"},
	"sci.space":        {"rocket", "orbit", "launch", "shuttle", "nasa", "satellite"},
	"comp.graphics":    {"pixel", "shader", "render", "polygon", "texture", "opengl"},
}

func writeTestCorpus(t *testing.T, root string, perLabel int) {
	t.Helper()
	for label, words := range topicVocabulary {
		for i := 0; i < perLabel; i++ {
			var parts []string
			for j := 0; j < 5; j++ {
				parts = append(parts, words[(i+j)%len(words)])
			}
			writeFile(t, filepath.Join(root, label, fmt.Sprint(i)), strings.Join(parts, " ")+"\n")
		}
	}
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	dir := t.TempDir()
	writeTestCorpus(t, filepath.Join(dir, "corpus"), 20)

	s := DefaultSettings()
	s.CorpusPath = filepath.Join(dir, "corpus")
	s.OutputsDir = filepath.Join(dir, "outputs")
	s.NSamples = 45
	s.MinK = 2
	s.MaxK = 5
	s.EmbeddingModel = HashingEmbeddingModel
	return s
}

func TestPipelineEndToEnd(t *testing.T) {
	s := testSettings(t)
	ctx := context.Background()

	require.NoError(t, sampleCorpus(s))

	var split SplitArtifact
	require.NoError(t, LoadJSON(s.OutputPath(SplitFile), &split))
	assert.Equal(t, 45, len(split.TrainIndex)+len(split.TestIndex))
	assert.Equal(t, []string{"comp.graphics", "rec.sport.hockey", "sci.space"}, split.LabelNames)

	sample, vectors, err := embedSample(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 45, sample.Len())
	require.Len(t, vectors, 45)

	labeler := NewHeuristicLabeler()
	tree, err := BuildTopicTree(ctx, sample, vectors, labeler, DefaultTreeOptions(s))
	require.NoError(t, err)

	manifest := NewRunManifest(time.Now())
	manifest.Labeler = labeler.Name()
	manifest.EmbeddingModel = s.EmbeddingModel
	manifest.ChosenK = tree.Elbow.ChosenK
	manifest.Finish(time.Now())
	require.NoError(t, saveTopicTree(s, tree, manifest))

	var elbow ElbowArtifact
	require.NoError(t, LoadJSON(s.OutputPath(ElbowFile), &elbow))
	assert.Equal(t, []int{2, 3, 4, 5}, elbow.Ks)
	assert.Equal(t, tree.Elbow.ChosenK, elbow.ChosenK)

	var top []map[string]any
	require.NoError(t, LoadJSON(s.OutputPath(TopClustersFile), &top))
	require.Len(t, top, tree.Elbow.ChosenK)
	assert.Contains(t, top[0], "cluster_id")
	assert.Contains(t, top[0], "representative_snippets")
	assert.NotContains(t, top[0], "Children")

	var sub []map[string]any
	require.NoError(t, LoadJSON(s.OutputPath(SubClustersFile), &sub))
	assert.Len(t, sub, 6)
	assert.Contains(t, sub[0], "parent_cluster_id")
	assert.Contains(t, sub[0], "subcluster_id")

	text, err := os.ReadFile(s.OutputPath(TreeFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "Topic Tree\n=========\n- [0] "))

	require.NoError(t, generateReport(s))

	report, err := os.ReadFile(s.OutputPath(ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Demo Report")
	assert.Contains(t, string(report), fmt.Sprintf("- Chosen K: **%d**", tree.Elbow.ChosenK))
	assert.Contains(t, string(report), "| Cluster | Label | Size |")
	assert.Contains(t, string(report), "```text\nTopic Tree")

	page, err := os.ReadFile(s.OutputPath(ReportHTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Topic Tree Demo Report</title>")
	assert.Contains(t, string(page), "<table>")
}

func TestSampleCorpusTooManySamples(t *testing.T) {
	s := testSettings(t)
	s.NSamples = 1000

	err := sampleCorpus(s)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMarkdownTable(t *testing.T) {
	got := markdownTable([]string{"K", "Inertia"}, [][]string{{"2", "10.0000"}, {"3", "4.0000"}})
	want := "| K | Inertia |\n| --- | --- |\n| 2 | 10.0000 |\n| 3 | 4.0000 |"
	assert.Equal(t, want, got)
}

func TestMarkdownTableEscapesCells(t *testing.T) {
	got := markdownTable([]string{"Cluster", "Label", "Size"}, [][]string{{"0", "Guns | Politics\nDebate", "12"}})
	want := "| Cluster | Label | Size |\n| --- | --- | --- |\n| 0 | Guns \\| Politics Debate | 12 |"
	assert.Equal(t, want, got)

	assert.Equal(t, "a b c", escapeTableCell("a\r\nb\rc"))

	page, err := generateCompleteHTML("# Demo Report\n\n"+got+"\n", time.Now())
	require.NoError(t, err)
	assert.Contains(t, page, "Guns | Politics Debate</td>")
}

func TestReportUsesRecordedSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.Seed = 7
	settings.NSamples = 999
	settings.TestSize = 0.5

	data := &reportData{
		Settings: settings,
		Run:      RunManifest{RunID: "run-1", Seed: 42, Documents: 45},
		Split:    SplitArtifact{Seed: 42, TestSize: 0.2},
		Elbow:    ElbowArtifact{ChosenK: 3},
	}

	report := renderReportMarkdown(data)
	assert.Contains(t, report, "- Seed: 42\n")
	assert.Contains(t, report, "- n_samples: 45\n")
	assert.Contains(t, report, "- test_size: 0.2\n")
	assert.NotContains(t, report, "- Seed: 7")
	assert.NotContains(t, report, "999")
}

func TestRunManifest(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewRunManifest(start)
	m.Finish(start.Add(90 * time.Second))

	assert.Len(t, m.RunID, 26)
	assert.Equal(t, start, m.StartedAt)
	assert.True(t, strings.HasPrefix(m.Elapsed, "PT"))
}
