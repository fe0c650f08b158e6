package topictree

import (
	"io"
	"net/http"
	"strings"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

// blobs returns count points around each center, offset by a small
// deterministic jitter
func blobs(centers [][]float64, count int) [][]float64 {
	var points [][]float64
	for _, center := range centers {
		for i := 0; i < count; i++ {
			p := make([]float64, len(center))
			for d := range center {
				p[d] = center[d] + 0.01*float64((i*(d+3))%7-3)
			}
			points = append(points, p)
		}
	}
	return points
}

func labeledCorpus(counts map[string]int) *Corpus {
	var names []string
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		if _, ok := counts[name]; ok {
			names = append(names, name)
		}
	}
	var docs []Document
	for label, name := range names {
		for i := 0; i < counts[name]; i++ {
			docs = append(docs, Document{Text: name + " document", Label: label})
		}
	}
	return &Corpus{Docs: docs, LabelNames: names}
}
