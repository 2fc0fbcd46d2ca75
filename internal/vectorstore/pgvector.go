package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkEmbedding pairs a stored chunk with its vector.
type ChunkEmbedding struct {
	ChunkID uuid.UUID
	Vector  []float32
}

// SimilarChunk is a nearest-neighbor hit, used by operators to spot
// near-duplicate passages during review.
type SimilarChunk struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
}

// PgVectorStore writes chunk embeddings onto the document_chunks rows the
// pipeline already owns. dims must match both the embedding model and the
// vector column width; mismatched vectors are rejected before they reach
// Postgres so a misconfigured model fails loudly instead of on every row.
type PgVectorStore struct {
	db   *pgxpool.Pool
	dims int
}

func NewPgVectorStore(db *pgxpool.Pool, dims int) *PgVectorStore {
	return &PgVectorStore{db: db, dims: dims}
}

// SetEmbeddings stamps vectors on existing chunks and marks them embedded.
func (s *PgVectorStore) SetEmbeddings(ctx context.Context, model string, embeddings []ChunkEmbedding) error {
	for _, e := range embeddings {
		if len(e.Vector) != s.dims {
			return fmt.Errorf("chunk %s: model %s produced a %d-dimensional vector, store expects %d",
				e.ChunkID, model, len(e.Vector), s.dims)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range embeddings {
		tag, err := tx.Exec(ctx,
			`UPDATE document_chunks
			 SET embedding = $2, is_embedded = TRUE, embedding_model = $3, updated_at = now()
			 WHERE id = $1`,
			e.ChunkID, pgvector.NewVector(e.Vector), model,
		)
		if err != nil {
			return fmt.Errorf("set embedding for chunk %s: %w", e.ChunkID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("chunk %s not found", e.ChunkID)
		}
	}

	return tx.Commit(ctx)
}

func similarChunksSQL(exclude bool) string {
	sql := `SELECT id, document_id, chunk_index, content, 1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE is_embedded`
	if exclude {
		return sql + ` AND document_id <> $2 ORDER BY embedding <=> $1 LIMIT $3`
	}
	return sql + ` ORDER BY embedding <=> $1 LIMIT $2`
}

// SimilarChunks returns the topK nearest embedded chunks by cosine distance,
// optionally excluding one document.
func (s *PgVectorStore) SimilarChunks(ctx context.Context, query []float32, topK int, excludeDocument *uuid.UUID) ([]SimilarChunk, error) {
	if len(query) != s.dims {
		return nil, fmt.Errorf("query vector has %d dimensions, store expects %d", len(query), s.dims)
	}
	if topK <= 0 {
		topK = 10
	}

	args := []any{pgvector.NewVector(query)}
	if excludeDocument != nil {
		args = append(args, *excludeDocument)
	}
	args = append(args, topK)

	rows, err := s.db.Query(ctx, similarChunksSQL(excludeDocument != nil), args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SimilarChunk
	for rows.Next() {
		var r SimilarChunk
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.ChunkIndex, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
