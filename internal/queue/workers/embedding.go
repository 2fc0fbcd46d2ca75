package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/legaldrishti/backend/internal/llm"
	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/vectorstore"
)

// embedBatchSize bounds one embedding request; provider APIs cap input size.
const embedBatchSize = 64

// EmbeddingWorker embeds the chunks of a document that have no vector yet.
// Runs after the chunking step completes and again whenever chunks change.
type EmbeddingWorker struct {
	docs         *pipeline.Service
	gateway      llm.Gateway
	vectors      *vectorstore.PgVectorStore
	defaultModel string
}

func NewEmbeddingWorker(docs *pipeline.Service, gateway llm.Gateway, vectors *vectorstore.PgVectorStore, defaultModel string) *EmbeddingWorker {
	return &EmbeddingWorker{
		docs:         docs,
		gateway:      gateway,
		vectors:      vectors,
		defaultModel: defaultModel,
	}
}

func (w *EmbeddingWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ChunksEmbedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	model := payload.Model
	if model == "" {
		model = w.defaultModel
	}

	chunks, err := w.docs.GetChunks(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}

	var pending []int
	for i, c := range chunks {
		if !c.IsEmbedded || c.EmbeddingModel != model {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		slog.Info("all chunks already embedded", "document_id", payload.DocumentID)
		return nil
	}

	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		input := make([]string, len(batch))
		for i, idx := range batch {
			input[i] = chunks[idx].Content
		}

		resp, err := w.gateway.Embed(ctx, llm.EmbeddingRequest{
			Model: model,
			Input: input,
		})
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return fmt.Errorf("embed batch: got %d vectors for %d inputs", len(resp.Embeddings), len(batch))
		}

		embeddings := make([]vectorstore.ChunkEmbedding, len(batch))
		for i, idx := range batch {
			embeddings[i] = vectorstore.ChunkEmbedding{
				ChunkID: chunks[idx].ID,
				Vector:  resp.Embeddings[i],
			}
		}
		if err := w.vectors.SetEmbeddings(ctx, resp.Model, embeddings); err != nil {
			return fmt.Errorf("store embeddings: %w", err)
		}
	}

	slog.Info("chunks embedded",
		"document_id", payload.DocumentID,
		"count", len(pending),
		"model", model,
	)
	return nil
}
