package topictree

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(32)

	vectors, err := e.Embed(context.Background(), []string{"Rocket launch rocket", "rocket launch rocket", "", "the and of"})
	require.NoError(t, err)
	require.Len(t, vectors, 4)

	assert.Len(t, vectors[0], 32)
	assert.Equal(t, vectors[0], vectors[1])

	var norm float64
	for _, v := range vectors[0] {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	assert.Equal(t, make([]float64, 32), vectors[2])
	assert.Equal(t, make([]float64, 32), vectors[3])
	assert.Equal(t, HashingEmbeddingModel, e.Model())
}

func TestNewEmbedder(t *testing.T) {
	s := DefaultSettings()
	s.EmbeddingModel = HashingEmbeddingModel
	e, err := NewEmbedder(s)
	require.NoError(t, err)
	assert.IsType(t, &HashingEmbedder{}, e)

	s = DefaultSettings()
	_, err = NewEmbedder(s)
	assert.ErrorIs(t, err, ErrConfiguration)

	s.OpenAIAPIKey = "sk-test"
	e, err = NewEmbedder(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingModel, e.Model())
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	var inputs []string
	client := &http.Client{Transport: roundTrip(func(req *http.Request) *http.Response {
		body, _ := io.ReadAll(req.Body)
		var payload struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		_ = json.Unmarshal(body, &payload)
		inputs = payload.Input
		assert.Equal(t, "text-embedding-test", payload.Model)

		return jsonResponse(200, `{
			"object": "list",
			"model": "text-embedding-test",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`)
	})}

	e := NewOpenAIEmbedder("sk-test", "https://api.test/v1/", "text-embedding-test", client)
	vectors, err := e.Embed(context.Background(), []string{"first", ""})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, []string{"first", " "}, inputs)
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	client := &http.Client{Transport: roundTrip(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"object":"list","model":"m","data":[],"usage":{"prompt_tokens":0,"total_tokens":0}}`)
	})}

	e := NewOpenAIEmbedder("sk-test", "https://api.test/v1/", "m", client)
	_, err := e.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}
