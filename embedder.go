package topictree

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	HashingEmbeddingModel = "hashing"

	embeddingBatchSize     = 64
	maxEmbeddingInputRunes = 8000
	hashingDimensions      = 256
)

// Embedder maps texts to fixed-length vectors, index-aligned with the input
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// NewEmbedder returns the embedder named by settings.EmbeddingModel. The
// "hashing" model runs offline; every other model needs an API key.
func NewEmbedder(settings Settings) (Embedder, error) {
	if settings.EmbeddingModel == HashingEmbeddingModel {
		return NewHashingEmbedder(hashingDimensions), nil
	}
	if settings.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for embedding model %q", ErrConfiguration, settings.EmbeddingModel)
	}
	return NewOpenAIEmbedder(settings.OpenAIAPIKey, settings.OpenAIBaseURL, settings.EmbeddingModel, nil), nil
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint in batches
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Model() string {
	return e.model
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed documents %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, batch...)

		log.Printf("🧮 Embedded %d/%d documents", end, len(texts))
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	inputs := make([]string, len(texts))
	for i, text := range texts {
		// The API rejects empty input
		if strings.TrimSpace(text) == "" {
			text = " "
		}
		inputs[i] = truncateString(text, maxEmbeddingInputRunes)
	}

	embedding, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(embedding.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(embedding.Data))
	}

	data := embedding.Data
	sort.Slice(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	vectors := make([][]float64, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

var hashingTokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// HashingEmbedder projects token counts into a fixed number of buckets with
// a signed hash and L2-normalizes the result. It needs no network access.
type HashingEmbedder struct {
	dimensions int
}

func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	return &HashingEmbedder{dimensions: dimensions}
}

func (e *HashingEmbedder) Model() string {
	return HashingEmbeddingModel
}

func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashingEmbedder) embedOne(text string) []float64 {
	vector := make([]float64, e.dimensions)
	for _, token := range hashingTokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := englishStopWords[token]; stop {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dimensions))
		if sum>>63 == 1 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
