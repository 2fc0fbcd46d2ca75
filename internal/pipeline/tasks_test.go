package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

// env wires the orchestrator and coordinator to the in-memory store with a
// controllable clock.
type env struct {
	store *memStore
	co    *Coordinator
	svc   *Service
	now   time.Time
}

func newTestEnv() *env {
	e := &env{
		store: newMemStore(),
		now:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }
	e.co = NewCoordinator(e.store, clock)
	e.svc = NewService(e.store, e.co, nil, clock)
	return e
}

func (e *env) upload(t *testing.T, uploader uuid.UUID) *models.Document {
	t.Helper()
	doc, err := e.svc.CreateDocument(context.Background(), CreateDocumentInput{
		OriginalFilename: "judgment.pdf",
		FilePath:         "uploads/judgment.pdf",
		FileType:         "application/pdf",
		FileSize:         2048,
		Title:            "State v. Sharma",
		Category:         "judgment",
		UploadedByID:     uploader,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	return doc
}

func (e *env) stepTask(t *testing.T, docID uuid.UUID, step models.Step) *models.PipelineTask {
	t.Helper()
	task, err := e.store.GetTaskByStep(context.Background(), docID, step)
	if err != nil {
		t.Fatalf("GetTaskByStep(%s): %v", step, err)
	}
	return task
}

func TestPickupConflict(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, alice, bob := uuid.New(), uuid.New(), uuid.New()

	doc := e.upload(t, uploader)
	task := e.stepTask(t, doc.ID, models.StepTextExtraction)

	claimed, err := e.co.Pickup(ctx, task.ID, alice)
	if err != nil {
		t.Fatalf("first pickup: %v", err)
	}
	if claimed.AssignedToID == nil || *claimed.AssignedToID != alice {
		t.Fatalf("task assigned to %v, want %s", claimed.AssignedToID, alice)
	}

	if _, err := e.co.Pickup(ctx, task.ID, bob); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("second pickup err = %v, want ErrPreconditionFailed", err)
	}
}

func TestStartRequiresAssignee(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, alice, bob := uuid.New(), uuid.New(), uuid.New()

	doc := e.upload(t, uploader)
	task := e.stepTask(t, doc.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, task.ID, alice); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	if _, err := e.co.Start(ctx, task.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("start by non-assignee err = %v, want ErrForbidden", err)
	}

	started, err := e.co.Start(ctx, task.ID, alice)
	if err != nil {
		t.Fatalf("start by assignee: %v", err)
	}
	if started.Status != models.TaskInProgress {
		t.Fatalf("status = %s, want %s", started.Status, models.TaskInProgress)
	}
	if started.StartedAt == nil {
		t.Fatal("StartedAt not stamped")
	}

	if _, err := e.co.Start(ctx, task.ID, alice); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("second start err = %v, want ErrPreconditionFailed", err)
	}
}

func TestCompleteCreatesSuccessorTask(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, alice := uuid.New(), uuid.New()

	doc := e.upload(t, uploader)
	task := e.stepTask(t, doc.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, task.ID, alice); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if _, err := e.co.Start(ctx, task.ID, alice); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.now = e.now.Add(30 * time.Minute)
	done, err := e.co.Complete(ctx, CompleteRequest{TaskID: task.ID, UserID: alice, Notes: "done"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.TaskCompleted || done.CompletedAt == nil {
		t.Fatalf("task not completed: %+v", done)
	}
	if done.ActualMinutes != 30 {
		t.Errorf("ActualMinutes = %d, want 30", done.ActualMinutes)
	}

	successor := e.stepTask(t, doc.ID, models.StepChunking)
	if successor.Status != models.TaskPending {
		t.Errorf("successor status = %s, want %s", successor.Status, models.TaskPending)
	}
	if successor.AssignedToID != nil {
		t.Error("successor should be unassigned")
	}

	fresh, err := e.store.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if fresh.Status != models.DocStatusTextExtracted {
		t.Errorf("document status = %s, want %s", fresh.Status, models.DocStatusTextExtracted)
	}
	if fresh.CurrentStep != models.StepChunking {
		t.Errorf("current step = %s, want %s", fresh.CurrentStep, models.StepChunking)
	}

	if _, err := e.co.Complete(ctx, CompleteRequest{TaskID: task.ID, UserID: alice}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("double complete err = %v, want ErrPreconditionFailed", err)
	}
}

func TestAssignReusesExistingTask(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, admin, alice, bob := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	doc := e.upload(t, uploader)

	first, err := e.co.Assign(ctx, AssignRequest{
		DocumentID: doc.ID,
		Step:       models.StepTextExtraction,
		AssigneeID: alice,
		AssignerID: admin,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	second, err := e.co.Assign(ctx, AssignRequest{
		DocumentID: doc.ID,
		Step:       models.StepTextExtraction,
		AssigneeID: bob,
		AssignerID: admin,
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("reassignment created a new task: %s vs %s", first.ID, second.ID)
	}
	if *second.AssignedToID != bob {
		t.Errorf("assignee = %s, want %s", *second.AssignedToID, bob)
	}

	// The completed UPLOAD task cannot be handed out again.
	if _, err := e.co.Assign(ctx, AssignRequest{
		DocumentID: doc.ID,
		Step:       models.StepUpload,
		AssigneeID: alice,
		AssignerID: admin,
	}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("assign of completed task err = %v, want ErrPreconditionFailed", err)
	}

	if _, err := e.co.Assign(ctx, AssignRequest{
		DocumentID: doc.ID,
		Step:       models.Step("ocr"),
		AssigneeID: alice,
		AssignerID: admin,
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("assign of unknown step err = %v, want ErrValidation", err)
	}
}

func TestRequestRevision(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, alice := uuid.New(), uuid.New()

	doc := e.upload(t, uploader)
	task := e.stepTask(t, doc.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, task.ID, alice); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if _, err := e.co.Start(ctx, task.ID, alice); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := e.co.RequestRevision(ctx, task.ID, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty reason err = %v, want ErrValidation", err)
	}

	revised, err := e.co.RequestRevision(ctx, task.ID, "missing page 4", "see comments")
	if err != nil {
		t.Fatalf("request revision: %v", err)
	}
	if revised.Status != models.TaskRevisionRequired {
		t.Fatalf("status = %s, want %s", revised.Status, models.TaskRevisionRequired)
	}
	if revised.RevisionCount != 1 || revised.LastRevisionReason != "missing page 4" {
		t.Errorf("revision bookkeeping wrong: count=%d reason=%q", revised.RevisionCount, revised.LastRevisionReason)
	}
	if revised.AssignedToID == nil || *revised.AssignedToID != alice {
		t.Error("revision dropped the assignment")
	}

	// Rework re-enters through Start.
	restarted, err := e.co.Start(ctx, task.ID, alice)
	if err != nil {
		t.Fatalf("restart after revision: %v", err)
	}
	if restarted.Status != models.TaskInProgress {
		t.Fatalf("status = %s, want %s", restarted.Status, models.TaskInProgress)
	}
}

func TestUserTaskBuckets(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader, alice := uuid.New(), uuid.New()

	docA := e.upload(t, uploader)
	docB := e.upload(t, uploader)
	docC := e.upload(t, uploader)

	// Pending assignment on A, in-progress on B, completed today on C.
	taskA := e.stepTask(t, docA.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, taskA.ID, alice); err != nil {
		t.Fatalf("pickup A: %v", err)
	}

	taskB := e.stepTask(t, docB.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, taskB.ID, alice); err != nil {
		t.Fatalf("pickup B: %v", err)
	}
	if _, err := e.co.Start(ctx, taskB.ID, alice); err != nil {
		t.Fatalf("start B: %v", err)
	}

	taskC := e.stepTask(t, docC.ID, models.StepTextExtraction)
	if _, err := e.co.Pickup(ctx, taskC.ID, alice); err != nil {
		t.Fatalf("pickup C: %v", err)
	}
	if _, err := e.co.Start(ctx, taskC.ID, alice); err != nil {
		t.Fatalf("start C: %v", err)
	}
	if _, err := e.co.Complete(ctx, CompleteRequest{TaskID: taskC.ID, UserID: alice}); err != nil {
		t.Fatalf("complete C: %v", err)
	}

	buckets, err := e.co.UserTasks(ctx, alice)
	if err != nil {
		t.Fatalf("UserTasks: %v", err)
	}
	if len(buckets.Pending) != 1 || buckets.Pending[0].ID != taskA.ID {
		t.Errorf("pending bucket = %+v, want task A only", buckets.Pending)
	}
	if len(buckets.InProgress) != 1 || buckets.InProgress[0].ID != taskB.ID {
		t.Errorf("in-progress bucket = %+v, want task B only", buckets.InProgress)
	}
	if len(buckets.CompletedToday) != 1 || buckets.CompletedToday[0].ID != taskC.ID {
		t.Errorf("completed-today bucket = %+v, want task C only", buckets.CompletedToday)
	}

	// A completion stamped yesterday drops out of the bucket.
	e.now = e.now.Add(24 * time.Hour)
	buckets, err = e.co.UserTasks(ctx, alice)
	if err != nil {
		t.Fatalf("UserTasks next day: %v", err)
	}
	if len(buckets.CompletedToday) != 0 {
		t.Errorf("completed-today next day = %d tasks, want 0", len(buckets.CompletedToday))
	}
}

func TestAvailableTasksFIFO(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	uploader := uuid.New()

	docA := e.upload(t, uploader)
	e.now = e.now.Add(time.Minute)
	docB := e.upload(t, uploader)

	all, err := e.co.AvailableTasks(ctx, nil)
	if err != nil {
		t.Fatalf("AvailableTasks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d available tasks, want 2", len(all))
	}
	if all[0].DocumentID != docA.ID || all[1].DocumentID != docB.ID {
		t.Error("available tasks not ordered oldest first")
	}

	step := models.StepTextExtraction
	filtered, err := e.co.AvailableTasks(ctx, &step)
	if err != nil {
		t.Fatalf("AvailableTasks filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("got %d extraction tasks, want 2", len(filtered))
	}

	bad := models.Step("ocr")
	if _, err := e.co.AvailableTasks(ctx, &bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown step err = %v, want ErrValidation", err)
	}
}
