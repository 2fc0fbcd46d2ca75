package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

type fakeBlobs struct {
	deleted []string
}

func (f *fakeBlobs) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

// runPipeline drives a document from upload to QA approval.
func runPipeline(t *testing.T, e *env, operator uuid.UUID) *models.Document {
	t.Helper()
	ctx := context.Background()
	doc := e.upload(t, operator)

	if _, err := e.svc.SaveExtractedText(ctx, ExtractedTextInput{
		DocumentID:       doc.ID,
		RawText:          "IN THE SUPREME COURT OF INDIA ...",
		CleanedText:      "In the Supreme Court of India ...",
		ExtractionMethod: "pdf",
		PageCount:        12,
		WordCount:        4800,
		UserID:           operator,
	}); err != nil {
		t.Fatalf("SaveExtractedText: %v", err)
	}

	chunks := []ChunkInput{
		{Content: "Headnote and parties.", Heading: "Headnote"},
		{Content: "Facts of the case.", Heading: "Facts"},
		{Content: "Held: appeal allowed.", Heading: "Judgment"},
	}
	if _, err := e.svc.SaveChunks(ctx, doc.ID, operator, chunks); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	if _, err := e.svc.SaveMetadata(ctx, MetadataInput{
		DocumentID: doc.ID,
		CaseNumber: "CA 1234/2024",
		CourtName:  "Supreme Court of India",
		Parties:    "State v. Sharma",
		Citation:   "2024 SCC 101",
		UserID:     operator,
	}); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	if _, err := e.svc.SaveSummary(ctx, SummaryInput{
		DocumentID: doc.ID,
		Summary:    "Appeal allowed; conviction set aside.",
		UserID:     operator,
	}); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	if _, err := e.svc.CreateQAReview(ctx, QAReviewInput{
		DocumentID:    doc.ID,
		ReviewerID:    operator,
		ReviewType:    "full",
		AccuracyScore: 9,
		OverallScore:  9,
		IsApproved:    true,
	}); err != nil {
		t.Fatalf("CreateQAReview: %v", err)
	}
	return doc
}

func TestFullPipelineScenario(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	doc := runPipeline(t, e, operator)

	// Status tracked every save.
	fresh, err := e.svc.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if fresh.Status != models.DocStatusQAApproved {
		t.Fatalf("status before publish = %s, want %s", fresh.Status, models.DocStatusQAApproved)
	}
	if fresh.ChunkCount != 3 {
		t.Errorf("chunk count = %d, want 3", fresh.ChunkCount)
	}
	if fresh.PageCount != 12 || fresh.WordCount != 4800 {
		t.Errorf("page/word counts = %d/%d, want 12/4800", fresh.PageCount, fresh.WordCount)
	}

	pub, err := e.svc.Publish(ctx, PublishInput{DocumentID: doc.ID, PublishedByID: operator})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if pub.Version != 1 {
		t.Errorf("first publish version = %d, want 1", pub.Version)
	}

	fresh, err = e.svc.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument after publish: %v", err)
	}
	if fresh.Status != models.DocStatusPublished {
		t.Errorf("status = %s, want %s", fresh.Status, models.DocStatusPublished)
	}
	if fresh.CurrentStep != models.StepPublish {
		t.Errorf("current step = %s, want %s", fresh.CurrentStep, models.StepPublish)
	}
	if fresh.PublishedAt == nil {
		t.Error("PublishedAt not stamped")
	}

	// Republish bumps the version, nothing else duplicates.
	pub, err = e.svc.Publish(ctx, PublishInput{DocumentID: doc.ID, PublishedByID: operator})
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if pub.Version != 2 {
		t.Errorf("republish version = %d, want 2", pub.Version)
	}

	// Every step's task is completed.
	for _, step := range Steps() {
		task := e.stepTask(t, doc.ID, step)
		if task.Status != models.TaskCompleted {
			t.Errorf("task for %s = %s, want %s", step, task.Status, models.TaskCompleted)
		}
	}
}

func TestPublishRequiresQAApproval(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	doc := e.upload(t, operator)
	if _, err := e.svc.Publish(ctx, PublishInput{DocumentID: doc.ID, PublishedByID: operator}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("publish of fresh upload err = %v, want ErrPreconditionFailed", err)
	}

	if _, err := e.svc.Publish(ctx, PublishInput{DocumentID: uuid.New(), PublishedByID: operator}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("publish of missing document err = %v, want ErrNotFound", err)
	}
}

func TestResaveDoesNotRegressStatus(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	doc := e.upload(t, operator)
	if _, err := e.svc.SaveExtractedText(ctx, ExtractedTextInput{
		DocumentID: doc.ID,
		RawText:    "first pass",
		UserID:     operator,
	}); err != nil {
		t.Fatalf("SaveExtractedText: %v", err)
	}
	if _, err := e.svc.SaveChunks(ctx, doc.ID, operator, []ChunkInput{{Content: "one"}}); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	// Correcting the extraction after chunking overwrites the record but
	// leaves the document where it is.
	if _, err := e.svc.SaveExtractedText(ctx, ExtractedTextInput{
		DocumentID: doc.ID,
		RawText:    "second pass",
		UserID:     operator,
	}); err != nil {
		t.Fatalf("re-save extracted text: %v", err)
	}

	et, err := e.svc.GetExtractedText(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetExtractedText: %v", err)
	}
	if et.RawText != "second pass" {
		t.Errorf("raw text = %q, want the re-saved value", et.RawText)
	}

	fresh, err := e.svc.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if fresh.Status != models.DocStatusChunked {
		t.Errorf("status = %s, want %s (no regression)", fresh.Status, models.DocStatusChunked)
	}
	if fresh.CurrentStep != models.StepMetadata {
		t.Errorf("current step = %s, want %s", fresh.CurrentStep, models.StepMetadata)
	}
}

func TestSaveChunksReplacesFullSet(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	doc := e.upload(t, operator)
	if _, err := e.svc.SaveExtractedText(ctx, ExtractedTextInput{DocumentID: doc.ID, RawText: "text", UserID: operator}); err != nil {
		t.Fatalf("SaveExtractedText: %v", err)
	}
	if _, err := e.svc.SaveChunks(ctx, doc.ID, operator, []ChunkInput{{Content: "a"}, {Content: "b"}, {Content: "c"}}); err != nil {
		t.Fatalf("first SaveChunks: %v", err)
	}
	if _, err := e.svc.SaveChunks(ctx, doc.ID, operator, []ChunkInput{{Content: "merged"}}); err != nil {
		t.Fatalf("second SaveChunks: %v", err)
	}

	chunks, err := e.svc.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "merged" {
		t.Fatalf("chunks = %+v, want single replaced chunk", chunks)
	}

	fresh, _ := e.svc.GetDocument(ctx, doc.ID)
	if fresh.ChunkCount != 1 {
		t.Errorf("chunk count = %d, want 1", fresh.ChunkCount)
	}

	if _, err := e.svc.SaveChunks(ctx, doc.ID, operator, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty chunk set err = %v, want ErrValidation", err)
	}
}

func TestQARejectionParksDocument(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	doc := e.upload(t, operator)

	if _, err := e.svc.CreateQAReview(ctx, QAReviewInput{
		DocumentID: doc.ID,
		ReviewerID: operator,
		IsApproved: false,
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("rejection without reason err = %v, want ErrValidation", err)
	}

	if _, err := e.svc.CreateQAReview(ctx, QAReviewInput{
		DocumentID:      doc.ID,
		ReviewerID:      operator,
		IsApproved:      false,
		RejectionReason: "summary does not match the judgment",
	}); err != nil {
		t.Fatalf("CreateQAReview: %v", err)
	}

	fresh, err := e.svc.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if fresh.Status != models.DocStatusRejected {
		t.Errorf("status = %s, want %s", fresh.Status, models.DocStatusRejected)
	}

	reviews, err := e.svc.ListQAReviews(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListQAReviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].IsApproved {
		t.Fatalf("reviews = %+v, want one rejection", reviews)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	e := newTestEnv()
	blobs := &fakeBlobs{}
	e.svc = NewService(e.store, e.co, blobs, func() time.Time { return e.now })
	ctx := context.Background()
	operator := uuid.New()

	doc := runPipeline(t, e, operator)
	if err := e.svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := e.svc.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("document still readable: %v", err)
	}
	if _, err := e.svc.GetExtractedText(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("extracted text survived delete: %v", err)
	}
	if chunks, _ := e.svc.GetChunks(ctx, doc.ID); len(chunks) != 0 {
		t.Fatalf("chunks survived delete: %d", len(chunks))
	}
	if _, err := e.svc.GetMetadata(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("metadata survived delete: %v", err)
	}
	if _, err := e.store.GetTaskByStep(ctx, doc.ID, models.StepUpload); !errors.Is(err, ErrNotFound) {
		t.Fatalf("tasks survived delete: %v", err)
	}

	if len(blobs.deleted) != 1 || blobs.deleted[0] != "uploads/judgment.pdf" {
		t.Errorf("blob delete calls = %v, want the document path", blobs.deleted)
	}

	if err := e.svc.DeleteDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestStatsSnapshot(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	operator := uuid.New()

	done := runPipeline(t, e, operator)
	if _, err := e.svc.Publish(ctx, PublishInput{DocumentID: done.ID, PublishedByID: operator}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	e.upload(t, operator) // one document still waiting on extraction

	stats, err := e.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 2 {
		t.Errorf("total documents = %d, want 2", stats.TotalDocuments)
	}
	if stats.ByStatus[models.DocStatusPublished] != 1 || stats.ByStatus[models.DocStatusUploaded] != 1 {
		t.Errorf("by-status = %v", stats.ByStatus)
	}
	if stats.ByStep[models.StepPublish] != 1 || stats.ByStep[models.StepTextExtraction] != 1 {
		t.Errorf("by-step = %v", stats.ByStep)
	}
	if stats.PendingTasks != 1 {
		t.Errorf("pending tasks = %d, want 1", stats.PendingTasks)
	}
	// Seven completed steps on the published document plus the second
	// document's upload task.
	if stats.CompletedToday != 8 {
		t.Errorf("completed today = %d, want 8", stats.CompletedToday)
	}
	if stats.PublishedThisWeek != 1 {
		t.Errorf("published this week = %d, want 1", stats.PublishedThisWeek)
	}
}
