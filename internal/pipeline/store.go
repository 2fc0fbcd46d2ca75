package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

// DocumentFilter narrows document listings. Zero values mean "no filter".
type DocumentFilter struct {
	Status   models.DocumentStatus
	Step     models.Step
	Category string
	Page     int
	PageSize int
}

// Store is the transactional record store the pipeline runs against. The
// Postgres implementation lives in postgres.go; tests use an in-memory one.
//
// Mutating orchestrator operations run inside RunInTx so a failed write never
// leaves partial state behind.
type Store interface {
	// RunInTx executes fn against a transactional view of the store and
	// commits if fn returns nil. Errors from fn roll the transaction back
	// and propagate unchanged.
	RunInTx(ctx context.Context, fn func(Store) error) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, int, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// DeleteDocument removes the document and cascades to every dependent
	// record (tasks, chunks, extracted text, metadata, reviews, publication).
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	UpsertExtractedText(ctx context.Context, et *models.ExtractedText) error
	GetExtractedText(ctx context.Context, documentID uuid.UUID) (*models.ExtractedText, error)

	// ReplaceChunks deletes all existing chunks for the document and inserts
	// the given set. Chunks are never partially patched on save.
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []models.DocumentChunk) error
	GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error)
	GetChunk(ctx context.Context, id uuid.UUID) (*models.DocumentChunk, error)
	UpdateChunk(ctx context.Context, chunk *models.DocumentChunk) error

	UpsertMetadata(ctx context.Context, md *models.DocumentMetadata) error
	GetMetadata(ctx context.Context, documentID uuid.UUID) (*models.DocumentMetadata, error)

	CreateQAReview(ctx context.Context, review *models.QAReview) error
	ListQAReviews(ctx context.Context, documentID uuid.UUID) ([]models.QAReview, error)

	GetPublished(ctx context.Context, documentID uuid.UUID) (*models.PublishedDocument, error)
	UpsertPublished(ctx context.Context, pub *models.PublishedDocument) error

	CreateTask(ctx context.Context, task *models.PipelineTask) error
	GetTask(ctx context.Context, id uuid.UUID) (*models.PipelineTask, error)
	GetTaskByStep(ctx context.Context, documentID uuid.UUID, step models.Step) (*models.PipelineTask, error)
	UpdateTask(ctx context.Context, task *models.PipelineTask) error
	// ClaimTask assigns the task to userID only if it is currently
	// unassigned, as a single conditional update. Returns
	// ErrPreconditionFailed when someone else holds it.
	ClaimTask(ctx context.Context, taskID, userID uuid.UUID, at time.Time) (*models.PipelineTask, error)
	ListUserTasks(ctx context.Context, userID uuid.UUID, status models.TaskStatus, completedSince *time.Time) ([]models.PipelineTask, error)
	// ListUnassignedTasks returns PENDING tasks with no assignee, oldest
	// first, optionally filtered by step.
	ListUnassignedTasks(ctx context.Context, step *models.Step) ([]models.PipelineTask, error)

	CountDocuments(ctx context.Context) (int, error)
	CountDocumentsByStatus(ctx context.Context) (map[models.DocumentStatus]int, error)
	CountDocumentsByStep(ctx context.Context) (map[models.Step]int, error)
	CountTasks(ctx context.Context, status models.TaskStatus, completedSince *time.Time) (int, error)
	CountPublishedSince(ctx context.Context, since time.Time) (int, error)
}
