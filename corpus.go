package topictree

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Document is a single labeled text
type Document struct {
	Text  string
	Label int
}

// Corpus is an ordered set of documents plus the names of their labels.
// Label i is named LabelNames[i].
type Corpus struct {
	Docs       []Document
	LabelNames []string
}

// corpusLine is the JSONL representation of a document
type corpusLine struct {
	Index *int   `json:"index,omitempty"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

// NewCorpus validates that every label index is in range
func NewCorpus(docs []Document, labelNames []string) (*Corpus, error) {
	for i, doc := range docs {
		if doc.Label < 0 || doc.Label >= len(labelNames) {
			return nil, fmt.Errorf("%w: document %d has label %d, only %d label names",
				ErrConfiguration, i, doc.Label, len(labelNames))
		}
	}
	return &Corpus{Docs: docs, LabelNames: labelNames}, nil
}

// Len returns the number of documents
func (c *Corpus) Len() int {
	return len(c.Docs)
}

// Texts returns the document texts in corpus order
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.Docs))
	for i, doc := range c.Docs {
		texts[i] = doc.Text
	}
	return texts
}

// Subset returns the documents at the given indices, in that order
func (c *Corpus) Subset(indices []int) *Corpus {
	docs := make([]Document, len(indices))
	for i, idx := range indices {
		docs[i] = c.Docs[idx]
	}
	return &Corpus{Docs: docs, LabelNames: c.LabelNames}
}

// LabelCounts returns the number of documents per label index
func (c *Corpus) LabelCounts() []int {
	counts := make([]int, len(c.LabelNames))
	for _, doc := range c.Docs {
		counts[doc.Label]++
	}
	return counts
}

// LoadCorpus reads a corpus from a 20 Newsgroups style directory tree
// (one sub-directory per label) or from a JSONL file.
func LoadCorpus(path string) (*Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus: %w", err)
	}
	if info.IsDir() {
		return loadCorpusDir(path)
	}
	return loadCorpusJSONL(path)
}

func loadCorpusDir(root string) (*Corpus, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	var labelNames []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			labelNames = append(labelNames, entry.Name())
		}
	}
	sort.Strings(labelNames)

	var docs []Document
	for label, name := range labelNames {
		files, err := os.ReadDir(filepath.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read label directory %s: %w", name, err)
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(root, name, file.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read document %s/%s: %w", name, file.Name(), err)
			}
			docs = append(docs, Document{Text: normalizeText(string(data)), Label: label})
		}
	}

	log.Printf("Loaded %d documents across %d labels from %s", len(docs), len(labelNames), root)
	return NewCorpus(docs, labelNames)
}

func loadCorpusJSONL(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close corpus file: %v", err)
		}
	}()

	var lines []corpusLine
	nameSet := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line corpusLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("failed to parse corpus line %d: %w", lineNo, err)
		}
		line.Text = normalizeText(line.Text)
		lines = append(lines, line)
		nameSet[line.Label] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan corpus file: %w", err)
	}

	labelNames := make([]string, 0, len(nameSet))
	for name := range nameSet {
		labelNames = append(labelNames, name)
	}
	sort.Strings(labelNames)

	labelIndex := make(map[string]int, len(labelNames))
	for i, name := range labelNames {
		labelIndex[name] = i
	}

	docs := make([]Document, len(lines))
	for i, line := range lines {
		docs[i] = Document{Text: line.Text, Label: labelIndex[line.Label]}
	}

	log.Printf("Loaded %d documents across %d labels from %s", len(docs), len(labelNames), path)
	return NewCorpus(docs, labelNames)
}

// SaveCorpusJSONL writes the corpus as JSONL. origIndex, when non-nil, records
// each document's position in the corpus it was sampled from.
func SaveCorpusJSONL(path string, c *Corpus, origIndex []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create corpus file: %w", err)
	}

	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for i, doc := range c.Docs {
		line := corpusLine{Text: doc.Text, Label: c.LabelNames[doc.Label]}
		if origIndex != nil {
			line.Index = &origIndex[i]
		}
		if err := encoder.Encode(line); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode document %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush corpus file: %w", err)
	}
	return f.Close()
}

// normalizeText repairs invalid UTF-8 and applies NFC so that equal-looking
// texts embed and cache identically.
func normalizeText(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "�"))
}
