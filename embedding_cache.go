package topictree

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// EmbeddingCache stores vectors in SQLite keyed by model and text hash
type EmbeddingCache struct {
	db *sql.DB
}

// OpenEmbeddingCache opens or creates the cache database at path
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		embedding_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model, text_hash)
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
		return nil, err
	}

	return &EmbeddingCache{db: db}, nil
}

func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, or nil when there is none
func (c *EmbeddingCache) Get(model, text string) ([]float64, error) {
	var embeddingJSON string
	err := c.db.QueryRow(
		"SELECT embedding_json FROM embeddings WHERE model = ? AND text_hash = ?",
		model, textHash(text),
	).Scan(&embeddingJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return embedding, nil
}

// Put stores the vector for text, replacing any previous one
func (c *EmbeddingCache) Put(model, text string, embedding []float64) error {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	insertSQL := `
	INSERT OR REPLACE INTO embeddings (model, text_hash, embedding_json)
	VALUES (?, ?, ?)
	`

	if _, err := c.db.Exec(insertSQL, model, textHash(text), string(embeddingJSON)); err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// CachedEmbedder serves vectors from the cache and embeds only the misses
type CachedEmbedder struct {
	Embedder Embedder
	Cache    *EmbeddingCache
}

func (e *CachedEmbedder) Model() string {
	return e.Embedder.Model()
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	model := e.Embedder.Model()
	vectors := make([][]float64, len(texts))

	var missing []int
	for i, text := range texts {
		vector, err := e.Cache.Get(model, text)
		if err != nil {
			return nil, err
		}
		if vector == nil {
			missing = append(missing, i)
			continue
		}
		vectors[i] = vector
	}

	log.Printf("📦 %d/%d embeddings cached for model %s", len(texts)-len(missing), len(texts), model)
	if len(missing) == 0 {
		return vectors, nil
	}

	missingTexts := make([]string, len(missing))
	for i, idx := range missing {
		missingTexts[i] = texts[idx]
	}

	embedded, err := e.Embedder.Embed(ctx, missingTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missing {
		vectors[idx] = embedded[i]
		if err := e.Cache.Put(model, texts[idx], embedded[i]); err != nil {
			return nil, err
		}
	}

	return vectors, nil
}
