package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
	"github.com/legaldrishti/backend/internal/pipeline"
)

type TaskHandler struct {
	co *pipeline.Coordinator
}

func NewTaskHandler(co *pipeline.Coordinator) *TaskHandler {
	return &TaskHandler{co: co}
}

func taskIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	return id, err == nil
}

// MyTasks returns the caller's workload grouped by state.
func (h *TaskHandler) MyTasks(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.co.UserTasks(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Available lists unassigned tasks, oldest first, optionally for one step.
func (h *TaskHandler) Available(w http.ResponseWriter, r *http.Request) {
	var step *models.Step
	if raw := r.URL.Query().Get("step"); raw != "" {
		s := models.Step(raw)
		step = &s
	}

	tasks, err := h.co.AvailableTasks(r.Context(), step)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks, "count": len(tasks)})
}

// Assign gives a document's step task to an operator.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID       uuid.UUID `json:"document_id"`
		Step             string    `json:"step"`
		AssigneeID       uuid.UUID `json:"assignee_id"`
		Notes            string    `json:"notes"`
		EstimatedMinutes int       `json:"estimated_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	task, err := h.co.Assign(r.Context(), pipeline.AssignRequest{
		DocumentID:       req.DocumentID,
		Step:             models.Step(req.Step),
		AssigneeID:       req.AssigneeID,
		AssignerID:       currentUser(r).ID,
		Notes:            req.Notes,
		EstimatedMinutes: req.EstimatedMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Pickup claims an unassigned task for the caller. Losing a race for the
// task comes back as a conflict.
func (h *TaskHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		badRequest(w, "invalid task ID")
		return
	}

	task, err := h.co.Pickup(r.Context(), taskID, currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		badRequest(w, "invalid task ID")
		return
	}

	task, err := h.co.Start(r.Context(), taskID, currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		badRequest(w, "invalid task ID")
		return
	}

	var req struct {
		OutputData    json.RawMessage `json:"output_data"`
		Notes         string          `json:"notes"`
		ActualMinutes int             `json:"actual_minutes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	task, err := h.co.Complete(r.Context(), pipeline.CompleteRequest{
		TaskID:        taskID,
		UserID:        currentUser(r).ID,
		OutputData:    req.OutputData,
		Notes:         req.Notes,
		ActualMinutes: req.ActualMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		badRequest(w, "invalid task ID")
		return
	}

	var req struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	task, err := h.co.RequestRevision(r.Context(), taskID, req.Reason, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
