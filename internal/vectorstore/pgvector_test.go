package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSetEmbeddingsRejectsWrongDimensions(t *testing.T) {
	// nil pool: a dimension mismatch must be caught before any DB access.
	store := NewPgVectorStore(nil, 768)

	embeddings := []ChunkEmbedding{
		{ChunkID: uuid.New(), Vector: make([]float32, 768)},
		{ChunkID: uuid.New(), Vector: make([]float32, 1536)},
	}

	err := store.SetEmbeddings(context.Background(), "text-embedding-3-small", embeddings)
	if err == nil {
		t.Fatal("mismatched vector accepted")
	}
	if !strings.Contains(err.Error(), "1536") || !strings.Contains(err.Error(), "768") {
		t.Errorf("error does not name both dimensions: %v", err)
	}
}

func TestSimilarChunksRejectsWrongQueryDimensions(t *testing.T) {
	store := NewPgVectorStore(nil, 768)

	if _, err := store.SimilarChunks(context.Background(), make([]float32, 3), 5, nil); err == nil {
		t.Fatal("mismatched query vector accepted")
	}
}

func TestSimilarChunksSQLIsFullyParameterized(t *testing.T) {
	tests := []struct {
		exclude   bool
		wantLimit string
	}{
		{exclude: false, wantLimit: "LIMIT $2"},
		{exclude: true, wantLimit: "LIMIT $3"},
	}
	for _, tt := range tests {
		sql := similarChunksSQL(tt.exclude)
		if !strings.Contains(sql, tt.wantLimit) {
			t.Errorf("exclude=%v: query %q missing %q", tt.exclude, sql, tt.wantLimit)
		}
		if strings.Contains(sql, "%d") {
			t.Errorf("exclude=%v: query contains a format verb: %q", tt.exclude, sql)
		}
		if tt.exclude && !strings.Contains(sql, "document_id <> $2") {
			t.Errorf("exclude clause not parameterized: %q", sql)
		}
	}
}
