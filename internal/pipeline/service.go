package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

// BlobStore is the slice of the file store the orchestrator needs: removing
// the uploaded blob when its document is deleted.
type BlobStore interface {
	Delete(ctx context.Context, path string) error
}

// Service sequences document lifecycle operations: each step's save call
// upserts the step's payload, completes the step's task, advances the
// document, and materializes the next task, all in one transaction.
type Service struct {
	store Store
	tasks *Coordinator
	blobs BlobStore
	now   func() time.Time
}

func NewService(store Store, tasks *Coordinator, blobs BlobStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, tasks: tasks, blobs: blobs, now: now}
}

// Tasks exposes the coordinator for the task endpoints.
func (svc *Service) Tasks() *Coordinator {
	return svc.tasks
}

// recordStepOutput completes the step's task for the saving user and moves
// the document forward. A step whose task is already COMPLETED is a re-save:
// the payload upsert stands, but status and step never regress.
func (svc *Service) recordStepOutput(ctx context.Context, s Store, documentID uuid.UUID, step models.Step, userID uuid.UUID) error {
	task, err := svc.tasks.ensureTask(ctx, s, documentID, step)
	if err != nil {
		return err
	}
	if task.Status == models.TaskCompleted {
		return nil
	}

	if task.AssignedToID == nil {
		now := svc.now()
		task.AssignedToID = &userID
		task.AssignedByID = &userID
		task.AssignedAt = &now
	}
	if err := svc.tasks.completeTask(ctx, s, task, nil, "", 0); err != nil {
		return err
	}
	return svc.tasks.advanceDocument(ctx, s, documentID, step)
}

// ========== Documents ==========

type CreateDocumentInput struct {
	OriginalFilename string
	FilePath         string
	FileType         string
	FileSize         int64
	FileHash         string
	Title            string
	Description      string
	Category         string
	Subcategory      string
	Jurisdiction     string
	Year             int
	Language         string
	Priority         int
	UploadedByID     uuid.UUID
}

// CreateDocument registers an uploaded file and opens the pipeline for it:
// the UPLOAD task is recorded as done by the uploader and a PENDING
// TEXT_EXTRACTION task is waiting when the transaction commits.
func (svc *Service) CreateDocument(ctx context.Context, in CreateDocumentInput) (*models.Document, error) {
	if in.OriginalFilename == "" || in.FilePath == "" {
		return nil, fmt.Errorf("filename and path are required: %w", ErrValidation)
	}
	if in.Priority == 0 {
		in.Priority = 5
	}
	if in.Priority < 1 || in.Priority > 10 {
		return nil, fmt.Errorf("priority %d out of range 1-10: %w", in.Priority, ErrValidation)
	}

	now := svc.now()
	doc := &models.Document{
		ID:               uuid.New(),
		OriginalFilename: in.OriginalFilename,
		FilePath:         in.FilePath,
		FileType:         in.FileType,
		FileSize:         in.FileSize,
		FileHash:         in.FileHash,
		CurrentStep:      models.StepUpload,
		Status:           models.DocStatusUploaded,
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		Subcategory:      in.Subcategory,
		Jurisdiction:     in.Jurisdiction,
		Year:             in.Year,
		Language:         in.Language,
		Priority:         in.Priority,
		UploadedByID:     in.UploadedByID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := svc.store.RunInTx(ctx, func(s Store) error {
		if err := s.CreateDocument(ctx, doc); err != nil {
			return err
		}
		task, err := svc.tasks.ensureTask(ctx, s, doc.ID, models.StepUpload)
		if err != nil {
			return err
		}
		task.AssignedToID = &in.UploadedByID
		task.AssignedByID = &in.UploadedByID
		task.AssignedAt = &now
		if err := svc.tasks.completeTask(ctx, s, task, nil, "", 0); err != nil {
			return err
		}
		if err := svc.tasks.advanceDocument(ctx, s, doc.ID, models.StepUpload); err != nil {
			return err
		}
		fresh, err := s.GetDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		doc = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (svc *Service) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return svc.store.GetDocument(ctx, id)
}

func (svc *Service) ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, int, error) {
	return svc.store.ListDocuments(ctx, f)
}

type UpdateDocumentInput struct {
	Title        *string
	Description  *string
	Category     *string
	Subcategory  *string
	Jurisdiction *string
	Year         *int
	Language     *string
	Priority     *int
}

// UpdateDocument patches the descriptive fields. Pipeline position is owned
// by the step operations and cannot be set here.
func (svc *Service) UpdateDocument(ctx context.Context, id uuid.UUID, in UpdateDocumentInput) (*models.Document, error) {
	if in.Priority != nil && (*in.Priority < 1 || *in.Priority > 10) {
		return nil, fmt.Errorf("priority %d out of range 1-10: %w", *in.Priority, ErrValidation)
	}

	var doc *models.Document
	err := svc.store.RunInTx(ctx, func(s Store) error {
		d, err := s.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			d.Title = *in.Title
		}
		if in.Description != nil {
			d.Description = *in.Description
		}
		if in.Category != nil {
			d.Category = *in.Category
		}
		if in.Subcategory != nil {
			d.Subcategory = *in.Subcategory
		}
		if in.Jurisdiction != nil {
			d.Jurisdiction = *in.Jurisdiction
		}
		if in.Year != nil {
			d.Year = *in.Year
		}
		if in.Language != nil {
			d.Language = *in.Language
		}
		if in.Priority != nil {
			d.Priority = *in.Priority
		}
		d.UpdatedAt = svc.now()
		if err := s.UpdateDocument(ctx, d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	return doc, err
}

// DeleteDocument removes the document with everything hanging off it, then
// the blob. A blob that cannot be removed is logged, not surfaced; the
// records are already gone.
func (svc *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := svc.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if svc.blobs != nil && doc.FilePath != "" {
		if err := svc.blobs.Delete(ctx, doc.FilePath); err != nil {
			slog.Warn("document blob not removed", "document_id", id, "path", doc.FilePath, "error", err)
		}
	}
	return nil
}

// ========== Extracted text ==========

type ExtractedTextInput struct {
	DocumentID       uuid.UUID
	RawText          string
	CleanedText      string
	ExtractionMethod string
	ConfidenceScore  *float64
	PageCount        int
	WordCount        int
	UserID           uuid.UUID
}

func (svc *Service) SaveExtractedText(ctx context.Context, in ExtractedTextInput) (*models.ExtractedText, error) {
	if in.RawText == "" {
		return nil, fmt.Errorf("raw text is required: %w", ErrValidation)
	}

	var saved *models.ExtractedText
	err := svc.store.RunInTx(ctx, func(s Store) error {
		doc, err := s.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return err
		}

		now := svc.now()
		et := &models.ExtractedText{
			ID:         uuid.New(),
			DocumentID: in.DocumentID,
			CreatedAt:  now,
		}
		if existing, err := s.GetExtractedText(ctx, in.DocumentID); err == nil {
			et.ID = existing.ID
			et.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		et.RawText = in.RawText
		et.CleanedText = in.CleanedText
		et.ExtractionMethod = in.ExtractionMethod
		et.ConfidenceScore = in.ConfidenceScore
		et.ProcessedByID = &in.UserID
		et.ProcessedAt = &now
		et.UpdatedAt = now
		if err := s.UpsertExtractedText(ctx, et); err != nil {
			return err
		}

		if in.PageCount > 0 || in.WordCount > 0 {
			if in.PageCount > 0 {
				doc.PageCount = in.PageCount
			}
			if in.WordCount > 0 {
				doc.WordCount = in.WordCount
			}
			doc.UpdatedAt = now
			if err := s.UpdateDocument(ctx, doc); err != nil {
				return err
			}
		}

		if err := svc.recordStepOutput(ctx, s, in.DocumentID, models.StepTextExtraction, in.UserID); err != nil {
			return err
		}
		saved = et
		return nil
	})
	return saved, err
}

func (svc *Service) GetExtractedText(ctx context.Context, documentID uuid.UUID) (*models.ExtractedText, error) {
	return svc.store.GetExtractedText(ctx, documentID)
}

// ========== Chunks ==========

type ChunkInput struct {
	Content     string          `json:"content"`
	StartPage   int             `json:"start_page"`
	EndPage     int             `json:"end_page"`
	TokenCount  int             `json:"token_count"`
	Heading     string          `json:"heading"`
	SectionType string          `json:"section_type"`
	Metadata    json.RawMessage `json:"metadata"`
	Summary     string          `json:"summary"`
}

// SaveChunks replaces the document's full chunk set. Chunks are never
// partially patched on save; re-saving swaps the whole set again.
func (svc *Service) SaveChunks(ctx context.Context, documentID, userID uuid.UUID, inputs []ChunkInput) ([]models.DocumentChunk, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one chunk is required: %w", ErrValidation)
	}
	for i, in := range inputs {
		if in.Content == "" {
			return nil, fmt.Errorf("chunk %d has no content: %w", i, ErrValidation)
		}
	}

	var saved []models.DocumentChunk
	err := svc.store.RunInTx(ctx, func(s Store) error {
		doc, err := s.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}

		now := svc.now()
		chunks := make([]models.DocumentChunk, len(inputs))
		for i, in := range inputs {
			chunks[i] = models.DocumentChunk{
				ID:            uuid.New(),
				DocumentID:    documentID,
				ChunkIndex:    i,
				Content:       in.Content,
				StartPage:     in.StartPage,
				EndPage:       in.EndPage,
				TokenCount:    in.TokenCount,
				Heading:       in.Heading,
				SectionType:   in.SectionType,
				ChunkMetadata: in.Metadata,
				Summary:       in.Summary,
				ProcessedByID: &userID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
		}
		if err := s.ReplaceChunks(ctx, documentID, chunks); err != nil {
			return err
		}

		doc.ChunkCount = len(chunks)
		doc.UpdatedAt = now
		if err := s.UpdateDocument(ctx, doc); err != nil {
			return err
		}

		if err := svc.recordStepOutput(ctx, s, documentID, models.StepChunking, userID); err != nil {
			return err
		}
		saved = chunks
		return nil
	})
	return saved, err
}

func (svc *Service) GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error) {
	return svc.store.GetChunks(ctx, documentID)
}

type UpdateChunkInput struct {
	Content     *string
	Heading     *string
	SectionType *string
	Summary     *string
	Metadata    json.RawMessage
}

// UpdateChunk patches a single chunk in place, used for corrections after
// the chunking step completed. It does not touch pipeline state.
func (svc *Service) UpdateChunk(ctx context.Context, chunkID uuid.UUID, in UpdateChunkInput) (*models.DocumentChunk, error) {
	var chunk *models.DocumentChunk
	err := svc.store.RunInTx(ctx, func(s Store) error {
		c, err := s.GetChunk(ctx, chunkID)
		if err != nil {
			return err
		}
		if in.Content != nil {
			if *in.Content == "" {
				return fmt.Errorf("chunk content cannot be empty: %w", ErrValidation)
			}
			c.Content = *in.Content
		}
		if in.Heading != nil {
			c.Heading = *in.Heading
		}
		if in.SectionType != nil {
			c.SectionType = *in.SectionType
		}
		if in.Summary != nil {
			c.Summary = *in.Summary
		}
		if in.Metadata != nil {
			c.ChunkMetadata = in.Metadata
		}
		c.UpdatedAt = svc.now()
		if err := s.UpdateChunk(ctx, c); err != nil {
			return err
		}
		chunk = c
		return nil
	})
	return chunk, err
}

// ========== Metadata ==========

type MetadataInput struct {
	DocumentID        uuid.UUID
	CaseNumber        string
	CourtName         string
	Bench             string
	Parties           string
	Citation          string
	ParallelCitations string
	LegalTopics       json.RawMessage
	ActsReferred      json.RawMessage
	SectionsReferred  json.RawMessage
	Headnotes         string
	RatioDecidendi    string
	ObiterDicta       string
	UserID            uuid.UUID
}

func (svc *Service) SaveMetadata(ctx context.Context, in MetadataInput) (*models.DocumentMetadata, error) {
	var saved *models.DocumentMetadata
	err := svc.store.RunInTx(ctx, func(s Store) error {
		if _, err := s.GetDocument(ctx, in.DocumentID); err != nil {
			return err
		}

		now := svc.now()
		md, err := svc.metadataRecord(ctx, s, in.DocumentID, now)
		if err != nil {
			return err
		}
		md.CaseNumber = in.CaseNumber
		md.CourtName = in.CourtName
		md.Bench = in.Bench
		md.Parties = in.Parties
		md.Citation = in.Citation
		md.ParallelCitations = in.ParallelCitations
		md.LegalTopics = in.LegalTopics
		md.ActsReferred = in.ActsReferred
		md.SectionsReferred = in.SectionsReferred
		md.Headnotes = in.Headnotes
		md.RatioDecidendi = in.RatioDecidendi
		md.ObiterDicta = in.ObiterDicta
		md.ProcessedByID = &in.UserID
		md.UpdatedAt = now
		if err := s.UpsertMetadata(ctx, md); err != nil {
			return err
		}

		if err := svc.recordStepOutput(ctx, s, in.DocumentID, models.StepMetadata, in.UserID); err != nil {
			return err
		}
		saved = md
		return nil
	})
	return saved, err
}

// metadataRecord loads the document's metadata row or primes a fresh one.
// Summary and metadata both live on it, so either step may create it first.
func (svc *Service) metadataRecord(ctx context.Context, s Store, documentID uuid.UUID, now time.Time) (*models.DocumentMetadata, error) {
	md, err := s.GetMetadata(ctx, documentID)
	if err == nil {
		return md, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &models.DocumentMetadata{
		ID:         uuid.New(),
		DocumentID: documentID,
		CreatedAt:  now,
	}, nil
}

func (svc *Service) GetMetadata(ctx context.Context, documentID uuid.UUID) (*models.DocumentMetadata, error) {
	return svc.store.GetMetadata(ctx, documentID)
}

// ========== Summary ==========

type SummaryInput struct {
	DocumentID uuid.UUID
	Summary    string
	KeyPoints  json.RawMessage
	UserID     uuid.UUID
}

// SaveSummary records the summarization output on the document's metadata
// row and completes the summarization step.
func (svc *Service) SaveSummary(ctx context.Context, in SummaryInput) (*models.DocumentMetadata, error) {
	if in.Summary == "" {
		return nil, fmt.Errorf("summary is required: %w", ErrValidation)
	}

	var saved *models.DocumentMetadata
	err := svc.store.RunInTx(ctx, func(s Store) error {
		if _, err := s.GetDocument(ctx, in.DocumentID); err != nil {
			return err
		}

		now := svc.now()
		md, err := svc.metadataRecord(ctx, s, in.DocumentID, now)
		if err != nil {
			return err
		}
		md.Summary = in.Summary
		if in.KeyPoints != nil {
			md.KeyPoints = in.KeyPoints
		}
		md.ProcessedByID = &in.UserID
		md.UpdatedAt = now
		if err := s.UpsertMetadata(ctx, md); err != nil {
			return err
		}

		if err := svc.recordStepOutput(ctx, s, in.DocumentID, models.StepSummarization, in.UserID); err != nil {
			return err
		}
		saved = md
		return nil
	})
	return saved, err
}

// ========== QA reviews ==========

type QAReviewInput struct {
	DocumentID        uuid.UUID
	ReviewerID        uuid.UUID
	ReviewType        string
	AccuracyScore     int
	CompletenessScore int
	FormattingScore   int
	OverallScore      int
	IsApproved        bool
	RejectionReason   string
	Comments          string
	StepFeedback      json.RawMessage
	Checklist         json.RawMessage
}

// CreateQAReview records a review. Approval completes the QA step and moves
// the document to QA_APPROVED; rejection parks it at REJECTED without
// touching the QA task, so the reviewer can route rework through revision
// requests.
func (svc *Service) CreateQAReview(ctx context.Context, in QAReviewInput) (*models.QAReview, error) {
	for _, score := range []int{in.AccuracyScore, in.CompletenessScore, in.FormattingScore, in.OverallScore} {
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("score %d out of range 0-10: %w", score, ErrValidation)
		}
	}
	if !in.IsApproved && in.RejectionReason == "" {
		return nil, fmt.Errorf("rejection reason is required: %w", ErrValidation)
	}

	var saved *models.QAReview
	err := svc.store.RunInTx(ctx, func(s Store) error {
		doc, err := s.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return err
		}

		now := svc.now()
		review := &models.QAReview{
			ID:                uuid.New(),
			DocumentID:        in.DocumentID,
			ReviewerID:        in.ReviewerID,
			ReviewType:        in.ReviewType,
			AccuracyScore:     in.AccuracyScore,
			CompletenessScore: in.CompletenessScore,
			FormattingScore:   in.FormattingScore,
			OverallScore:      in.OverallScore,
			IsApproved:        in.IsApproved,
			RejectionReason:   in.RejectionReason,
			Comments:          in.Comments,
			StepFeedback:      in.StepFeedback,
			Checklist:         in.Checklist,
			CreatedAt:         now,
		}
		if err := s.CreateQAReview(ctx, review); err != nil {
			return err
		}

		if in.IsApproved {
			if err := svc.recordStepOutput(ctx, s, in.DocumentID, models.StepQualityAssurance, in.ReviewerID); err != nil {
				return err
			}
		} else {
			doc.Status = models.DocStatusRejected
			doc.UpdatedAt = now
			if err := s.UpdateDocument(ctx, doc); err != nil {
				return err
			}
		}
		saved = review
		return nil
	})
	return saved, err
}

func (svc *Service) ListQAReviews(ctx context.Context, documentID uuid.UUID) ([]models.QAReview, error) {
	return svc.store.ListQAReviews(ctx, documentID)
}

// ========== Publish ==========

type PublishInput struct {
	DocumentID     uuid.UUID
	PublishedByID  uuid.UUID
	SearchKeywords json.RawMessage
	SearchWeight   float64
}

// Publish makes the document live. The QA_APPROVED precondition is checked
// here, inside the transaction, so no caller can publish an unapproved
// document. Republishing bumps the version.
func (svc *Service) Publish(ctx context.Context, in PublishInput) (*models.PublishedDocument, error) {
	var published *models.PublishedDocument
	err := svc.store.RunInTx(ctx, func(s Store) error {
		doc, err := s.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		if doc.Status != models.DocStatusQAApproved && doc.Status != models.DocStatusPublished {
			return fmt.Errorf("document %s is %s, not qa_approved: %w", in.DocumentID, doc.Status, ErrPreconditionFailed)
		}

		now := svc.now()
		pub := &models.PublishedDocument{
			ID:         uuid.New(),
			DocumentID: in.DocumentID,
			Version:    1,
			CreatedAt:  now,
		}
		if existing, err := s.GetPublished(ctx, in.DocumentID); err == nil {
			pub.ID = existing.ID
			pub.Version = existing.Version + 1
			pub.ViewCount = existing.ViewCount
			pub.DownloadCount = existing.DownloadCount
			pub.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		pub.IsActive = true
		pub.PublishedByID = in.PublishedByID
		pub.PublishedAt = now
		pub.SearchKeywords = in.SearchKeywords
		if in.SearchWeight > 0 {
			pub.SearchWeight = in.SearchWeight
		} else if pub.SearchWeight == 0 {
			pub.SearchWeight = 1.0
		}
		pub.UpdatedAt = now
		if err := s.UpsertPublished(ctx, pub); err != nil {
			return err
		}

		task, err := svc.tasks.ensureTask(ctx, s, in.DocumentID, models.StepPublish)
		if err != nil {
			return err
		}
		if task.Status != models.TaskCompleted {
			if task.AssignedToID == nil {
				task.AssignedToID = &in.PublishedByID
				task.AssignedByID = &in.PublishedByID
				task.AssignedAt = &now
			}
			if err := svc.tasks.completeTask(ctx, s, task, nil, "", 0); err != nil {
				return err
			}
		}

		doc.Status = models.DocStatusPublished
		doc.CurrentStep = models.StepPublish
		doc.PublishedAt = &now
		doc.UpdatedAt = now
		if err := s.UpdateDocument(ctx, doc); err != nil {
			return err
		}
		published = pub
		return nil
	})
	return published, err
}

func (svc *Service) GetPublished(ctx context.Context, documentID uuid.UUID) (*models.PublishedDocument, error) {
	return svc.store.GetPublished(ctx, documentID)
}

// ========== Statistics ==========

// Stats is a point-in-time snapshot computed on demand.
type Stats struct {
	TotalDocuments     int                           `json:"total_documents"`
	ByStatus           map[models.DocumentStatus]int `json:"by_status"`
	ByStep             map[models.Step]int           `json:"by_step"`
	PendingTasks       int                           `json:"pending_tasks"`
	InProgressTasks    int                           `json:"in_progress_tasks"`
	CompletedToday     int                           `json:"completed_today"`
	PublishedThisWeek  int                           `json:"published_this_week"`
	GeneratedAt        time.Time                     `json:"generated_at"`
}

func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	now := svc.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	stats := &Stats{GeneratedAt: now}
	var err error
	if stats.TotalDocuments, err = svc.store.CountDocuments(ctx); err != nil {
		return nil, err
	}
	if stats.ByStatus, err = svc.store.CountDocumentsByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.ByStep, err = svc.store.CountDocumentsByStep(ctx); err != nil {
		return nil, err
	}
	if stats.PendingTasks, err = svc.store.CountTasks(ctx, models.TaskPending, nil); err != nil {
		return nil, err
	}
	if stats.InProgressTasks, err = svc.store.CountTasks(ctx, models.TaskInProgress, nil); err != nil {
		return nil, err
	}
	if stats.CompletedToday, err = svc.store.CountTasks(ctx, models.TaskCompleted, &midnight); err != nil {
		return nil, err
	}
	if stats.PublishedThisWeek, err = svc.store.CountPublishedSince(ctx, weekAgo); err != nil {
		return nil, err
	}
	return stats, nil
}
