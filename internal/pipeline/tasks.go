package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

// Coordinator owns the task lifecycle: one assignable work item per
// (document, step) pair, moving PENDING -> IN_PROGRESS -> COMPLETED with
// pickup, assignment and revision transitions in between.
type Coordinator struct {
	store Store
	now   func() time.Time
}

func NewCoordinator(store Store, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{store: store, now: now}
}

// ensureTask returns the task for (documentID, step), creating a PENDING one
// when none exists. There is never more than one task per pair.
func (c *Coordinator) ensureTask(ctx context.Context, s Store, documentID uuid.UUID, step models.Step) (*models.PipelineTask, error) {
	task, err := s.GetTaskByStep(ctx, documentID, step)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := c.now()
	task = &models.PipelineTask{
		ID:         uuid.New(),
		DocumentID: documentID,
		Step:       step,
		Status:     models.TaskPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// AssignRequest identifies the work item by (document, step) so an admin can
// assign a step that has no task row yet.
type AssignRequest struct {
	DocumentID       uuid.UUID
	Step             models.Step
	AssigneeID       uuid.UUID
	AssignerID       uuid.UUID
	Notes            string
	EstimatedMinutes int
}

// Assign hands the step's task to an operator. The existing task is reused;
// a terminal task cannot be reassigned.
func (c *Coordinator) Assign(ctx context.Context, req AssignRequest) (*models.PipelineTask, error) {
	if !ValidStep(req.Step) {
		return nil, fmt.Errorf("unknown step %q: %w", req.Step, ErrValidation)
	}

	var task *models.PipelineTask
	err := c.store.RunInTx(ctx, func(s Store) error {
		if _, err := s.GetDocument(ctx, req.DocumentID); err != nil {
			return err
		}
		t, err := c.ensureTask(ctx, s, req.DocumentID, req.Step)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return fmt.Errorf("task for step %s is already %s: %w", t.Step, t.Status, ErrPreconditionFailed)
		}

		now := c.now()
		t.AssignedToID = &req.AssigneeID
		t.AssignedByID = &req.AssignerID
		t.AssignedAt = &now
		if req.Notes != "" {
			t.Notes = req.Notes
		}
		if req.EstimatedMinutes > 0 {
			t.EstimatedMinutes = req.EstimatedMinutes
		}
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	return task, err
}

// Pickup is self-assignment of an unassigned task. The store performs the
// assignment as a conditional update, so two concurrent pickups cannot both
// succeed; the loser gets ErrPreconditionFailed.
func (c *Coordinator) Pickup(ctx context.Context, taskID, userID uuid.UUID) (*models.PipelineTask, error) {
	return c.store.ClaimTask(ctx, taskID, userID, c.now())
}

// Start moves the task to IN_PROGRESS. Only the current assignee may start
// it; PENDING and REVISION_REQUIRED tasks are both startable, so rework after
// a revision request goes through the same transition.
func (c *Coordinator) Start(ctx context.Context, taskID, userID uuid.UUID) (*models.PipelineTask, error) {
	var task *models.PipelineTask
	err := c.store.RunInTx(ctx, func(s Store) error {
		t, err := s.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.AssignedToID == nil || *t.AssignedToID != userID {
			return fmt.Errorf("task %s is not assigned to this user: %w", taskID, ErrForbidden)
		}
		if t.Status != models.TaskPending && t.Status != models.TaskRevisionRequired {
			return fmt.Errorf("task %s cannot start from %s: %w", taskID, t.Status, ErrPreconditionFailed)
		}

		now := c.now()
		t.Status = models.TaskInProgress
		t.StartedAt = &now
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	return task, err
}

// CompleteRequest carries the optional completion payload.
type CompleteRequest struct {
	TaskID        uuid.UUID
	UserID        uuid.UUID
	OutputData    json.RawMessage
	Notes         string
	ActualMinutes int
}

// Complete finishes the task, advances the document, and materializes the
// successor step's task. PUBLISH has no successor.
func (c *Coordinator) Complete(ctx context.Context, req CompleteRequest) (*models.PipelineTask, error) {
	var task *models.PipelineTask
	err := c.store.RunInTx(ctx, func(s Store) error {
		t, err := s.GetTask(ctx, req.TaskID)
		if err != nil {
			return err
		}
		if t.AssignedToID == nil || *t.AssignedToID != req.UserID {
			return fmt.Errorf("task %s is not assigned to this user: %w", req.TaskID, ErrForbidden)
		}
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is already %s: %w", req.TaskID, t.Status, ErrPreconditionFailed)
		}

		if err := c.completeTask(ctx, s, t, req.OutputData, req.Notes, req.ActualMinutes); err != nil {
			return err
		}
		if err := c.advanceDocument(ctx, s, t.DocumentID, t.Step); err != nil {
			return err
		}
		task = t
		return nil
	})
	return task, err
}

// completeTask marks t COMPLETED, stamping completion time and deriving the
// actual duration from the start stamp when the caller did not supply one.
func (c *Coordinator) completeTask(ctx context.Context, s Store, t *models.PipelineTask, output json.RawMessage, notes string, actualMinutes int) error {
	now := c.now()
	t.Status = models.TaskCompleted
	t.CompletedAt = &now
	if output != nil {
		t.OutputData = output
	}
	if notes != "" {
		t.Notes = notes
	}
	switch {
	case actualMinutes > 0:
		t.ActualMinutes = actualMinutes
	case t.StartedAt != nil:
		t.ActualMinutes = int(now.Sub(*t.StartedAt).Minutes())
	}
	t.UpdatedAt = now
	return s.UpdateTask(ctx, t)
}

// advanceDocument reflects a completed step on the document: status from the
// step table, current_step to the successor, and a fresh PENDING task for
// that successor.
func (c *Coordinator) advanceDocument(ctx context.Context, s Store, documentID uuid.UUID, completed models.Step) error {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	doc.Status = StatusForStep(completed)
	if next, ok := NextStep(completed); ok {
		doc.CurrentStep = next
		if _, err := c.ensureTask(ctx, s, documentID, next); err != nil {
			return err
		}
	} else {
		doc.CurrentStep = completed
	}
	doc.UpdatedAt = c.now()
	return s.UpdateDocument(ctx, doc)
}

// RequestRevision sends the task back to its assignee for rework. Assignment
// is kept so the same operator fixes their own output.
func (c *Coordinator) RequestRevision(ctx context.Context, taskID uuid.UUID, reason, notes string) (*models.PipelineTask, error) {
	if reason == "" {
		return nil, fmt.Errorf("revision reason is required: %w", ErrValidation)
	}

	var task *models.PipelineTask
	err := c.store.RunInTx(ctx, func(s Store) error {
		t, err := s.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status.Terminal() && t.Status != models.TaskCompleted {
			return fmt.Errorf("task %s cannot be revised from %s: %w", taskID, t.Status, ErrPreconditionFailed)
		}

		now := c.now()
		t.Status = models.TaskRevisionRequired
		t.RevisionCount++
		t.LastRevisionReason = reason
		if notes != "" {
			t.Notes = notes
		}
		t.StartedAt = nil
		t.CompletedAt = nil
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	return task, err
}

// UserTaskBuckets groups an operator's tasks the way the dashboard shows
// them.
type UserTaskBuckets struct {
	Pending          []models.PipelineTask `json:"pending"`
	InProgress       []models.PipelineTask `json:"in_progress"`
	CompletedToday   []models.PipelineTask `json:"completed_today"`
	RevisionRequired []models.PipelineTask `json:"revision_required"`
}

func (c *Coordinator) UserTasks(ctx context.Context, userID uuid.UUID) (*UserTaskBuckets, error) {
	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	buckets := &UserTaskBuckets{}
	var err error
	if buckets.Pending, err = c.store.ListUserTasks(ctx, userID, models.TaskPending, nil); err != nil {
		return nil, err
	}
	if buckets.InProgress, err = c.store.ListUserTasks(ctx, userID, models.TaskInProgress, nil); err != nil {
		return nil, err
	}
	if buckets.CompletedToday, err = c.store.ListUserTasks(ctx, userID, models.TaskCompleted, &midnight); err != nil {
		return nil, err
	}
	if buckets.RevisionRequired, err = c.store.ListUserTasks(ctx, userID, models.TaskRevisionRequired, nil); err != nil {
		return nil, err
	}
	return buckets, nil
}

// AvailableTasks lists unassigned PENDING tasks oldest first, optionally
// restricted to one step. FIFO pickup, no priority weighting.
func (c *Coordinator) AvailableTasks(ctx context.Context, step *models.Step) ([]models.PipelineTask, error) {
	if step != nil && !ValidStep(*step) {
		return nil, fmt.Errorf("unknown step %q: %w", *step, ErrValidation)
	}
	return c.store.ListUnassignedTasks(ctx, step)
}
