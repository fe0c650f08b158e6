package topictree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadCorpusDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sci.space", "1"), "rocket launch")
	writeFile(t, filepath.Join(root, "sci.space", "2"), "orbital mechanics")
	writeFile(t, filepath.Join(root, "rec.autos", "1"), "engine oil")
	writeFile(t, filepath.Join(root, ".hidden", "1"), "ignored")

	c, err := LoadCorpus(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"rec.autos", "sci.space"}, c.LabelNames)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{1, 2}, c.LabelCounts())
	assert.Equal(t, Document{Text: "engine oil", Label: 0}, c.Docs[0])
}

func TestLoadCorpusJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	writeFile(t, path, `{"text":"café","label":"food"}

{"text":"goal","label":"hockey"}
{"text":"pasta","label":"food"}
`)

	c, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"food", "hockey"}, c.LabelNames)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "café", c.Docs[0].Text)
	assert.Equal(t, 1, c.Docs[1].Label)
}

func TestLoadCorpusJSONLInvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	writeFile(t, path, "{not json}\n")

	_, err := LoadCorpus(path)
	assert.Error(t, err)
}

func TestLoadCorpusMissing(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSaveCorpusJSONLRoundTrip(t *testing.T) {
	c := labeledCorpus(map[string]int{"alpha": 2, "beta": 1})
	path := filepath.Join(t.TempDir(), "sample.jsonl")

	require.NoError(t, SaveCorpusJSONL(path, c, []int{0, 7, 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index":0`)
	assert.Contains(t, string(data), `"index":7`)

	loaded, err := LoadCorpus(path)
	require.NoError(t, err)
	assert.Equal(t, c.Docs, loaded.Docs)
	assert.Equal(t, c.LabelNames, loaded.LabelNames)
}

func TestNewCorpusRejectsBadLabel(t *testing.T) {
	_, err := NewCorpus([]Document{{Text: "x", Label: 2}}, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCorpusSubset(t *testing.T) {
	c := labeledCorpus(map[string]int{"alpha": 2, "beta": 2})
	s := c.Subset([]int{3, 0})
	assert.Equal(t, []Document{c.Docs[3], c.Docs[0]}, s.Docs)
	assert.Equal(t, c.LabelNames, s.LabelNames)
}
