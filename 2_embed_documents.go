package topictree

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var EmbedDocumentsCmd = &cobra.Command{
	Use:   "embed-documents",
	Short: "Embed the sampled documents into the embedding cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := embedSample(cmd.Context(), Config); err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		log.Println("Document embedding complete.")
		return nil
	},
}

// embedSample loads sample.jsonl and returns it with its embedding matrix.
// Vectors already in the cache are not requested again.
func embedSample(ctx context.Context, settings Settings) (*Corpus, [][]float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sample, err := LoadCorpus(settings.OutputPath(SampleFile))
	if err != nil {
		return nil, nil, err
	}

	embedder, err := NewEmbedder(settings)
	if err != nil {
		return nil, nil, err
	}

	cache, err := OpenEmbeddingCache(settings.OutputPath(EmbeddingsDB))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	cached := &CachedEmbedder{Embedder: embedder, Cache: cache}
	vectors, err := cached.Embed(ctx, sample.Texts())
	if err != nil {
		return nil, nil, err
	}

	return sample, vectors, nil
}
