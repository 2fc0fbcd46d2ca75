package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/storage"
	"github.com/legaldrishti/backend/pkg/textextract"
)

// ExtractionWorker drafts the text extraction for a freshly uploaded
// document so the operator starts from machine output instead of a blank
// page. If an extraction already exists the job is a no-op.
type ExtractionWorker struct {
	docs  *pipeline.Service
	blobs storage.Storage
}

func NewExtractionWorker(docs *pipeline.Service, blobs storage.Storage) *ExtractionWorker {
	return &ExtractionWorker{
		docs:  docs,
		blobs: blobs,
	}
}

func (w *ExtractionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if _, err := w.docs.GetExtractedText(ctx, payload.DocumentID); err == nil {
		slog.Info("extraction already present, skipping", "document_id", payload.DocumentID)
		return nil
	} else if !errors.Is(err, pipeline.ErrNotFound) {
		return fmt.Errorf("check existing extraction: %w", err)
	}

	doc, err := w.docs.GetDocument(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	reader, err := w.blobs.Download(ctx, doc.FilePath)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	result, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), doc.FileType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	if _, err := w.docs.SaveExtractedText(ctx, pipeline.ExtractedTextInput{
		DocumentID:       payload.DocumentID,
		RawText:          result.Text,
		CleanedText:      textextract.Clean(result.Text),
		ExtractionMethod: result.Method,
		PageCount:        result.Pages,
		WordCount:        result.Words,
		UserID:           payload.RequestedBy,
	}); err != nil {
		return fmt.Errorf("save extracted text: %w", err)
	}

	slog.Info("extraction drafted",
		"document_id", payload.DocumentID,
		"pages", result.Pages,
		"words", result.Words,
	)
	return nil
}
