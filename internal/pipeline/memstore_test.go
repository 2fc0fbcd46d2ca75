package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
)

// memStore is an in-memory Store for exercising the coordinator and
// orchestrator without Postgres. RunInTx applies writes directly; rollback
// behavior is covered by the Postgres integration environment, not here.
type memStore struct {
	mu        sync.Mutex
	documents map[uuid.UUID]models.Document
	extracted map[uuid.UUID]models.ExtractedText
	chunks    map[uuid.UUID][]models.DocumentChunk
	metadata  map[uuid.UUID]models.DocumentMetadata
	reviews   map[uuid.UUID][]models.QAReview
	published map[uuid.UUID]models.PublishedDocument
	tasks     map[uuid.UUID]models.PipelineTask
}

func newMemStore() *memStore {
	return &memStore{
		documents: make(map[uuid.UUID]models.Document),
		extracted: make(map[uuid.UUID]models.ExtractedText),
		chunks:    make(map[uuid.UUID][]models.DocumentChunk),
		metadata:  make(map[uuid.UUID]models.DocumentMetadata),
		reviews:   make(map[uuid.UUID][]models.QAReview),
		published: make(map[uuid.UUID]models.PublishedDocument),
		tasks:     make(map[uuid.UUID]models.PipelineTask),
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *memStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = *doc
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &doc, nil
}

func (m *memStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []models.Document
	for _, d := range m.documents {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Step != "" && d.CurrentStep != f.Step {
			continue
		}
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, len(docs), nil
}

func (m *memStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	m.documents[doc.ID] = *doc
	return nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	delete(m.documents, id)
	delete(m.extracted, id)
	delete(m.chunks, id)
	delete(m.metadata, id)
	delete(m.reviews, id)
	delete(m.published, id)
	for tid, t := range m.tasks {
		if t.DocumentID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *memStore) UpsertExtractedText(ctx context.Context, et *models.ExtractedText) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracted[et.DocumentID] = *et
	return nil
}

func (m *memStore) GetExtractedText(ctx context.Context, documentID uuid.UUID) (*models.ExtractedText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	et, ok := m.extracted[documentID]
	if !ok {
		return nil, fmt.Errorf("extracted text for document %s: %w", documentID, ErrNotFound)
	}
	return &et, nil
}

func (m *memStore) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[documentID] = append([]models.DocumentChunk(nil), chunks...)
	return nil
}

func (m *memStore) GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.DocumentChunk(nil), m.chunks[documentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *memStore) GetChunk(ctx context.Context, id uuid.UUID) (*models.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunks := range m.chunks {
		for _, c := range chunks {
			if c.ID == id {
				return &c, nil
			}
		}
	}
	return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
}

func (m *memStore) UpdateChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := m.chunks[chunk.DocumentID]
	for i, c := range chunks {
		if c.ID == chunk.ID {
			chunks[i] = *chunk
			return nil
		}
	}
	return fmt.Errorf("chunk %s: %w", chunk.ID, ErrNotFound)
}

func (m *memStore) UpsertMetadata(ctx context.Context, md *models.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[md.DocumentID] = *md
	return nil
}

func (m *memStore) GetMetadata(ctx context.Context, documentID uuid.UUID) (*models.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.metadata[documentID]
	if !ok {
		return nil, fmt.Errorf("metadata for document %s: %w", documentID, ErrNotFound)
	}
	return &md, nil
}

func (m *memStore) CreateQAReview(ctx context.Context, review *models.QAReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[review.DocumentID] = append(m.reviews[review.DocumentID], *review)
	return nil
}

func (m *memStore) ListQAReviews(ctx context.Context, documentID uuid.UUID) ([]models.QAReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.QAReview(nil), m.reviews[documentID]...), nil
}

func (m *memStore) GetPublished(ctx context.Context, documentID uuid.UUID) (*models.PublishedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.published[documentID]
	if !ok {
		return nil, fmt.Errorf("published document %s: %w", documentID, ErrNotFound)
	}
	return &p, nil
}

func (m *memStore) UpsertPublished(ctx context.Context, pub *models.PublishedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[pub.DocumentID] = *pub
	return nil
}

func (m *memStore) CreateTask(ctx context.Context, task *models.PipelineTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
	return nil
}

func (m *memStore) GetTask(ctx context.Context, id uuid.UUID) (*models.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (m *memStore) GetTaskByStep(ctx context.Context, documentID uuid.UUID, step models.Step) (*models.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.DocumentID == documentID && t.Step == step {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("task for document %s step %s: %w", documentID, step, ErrNotFound)
}

func (m *memStore) UpdateTask(ctx context.Context, task *models.PipelineTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memStore) ClaimTask(ctx context.Context, taskID, userID uuid.UUID, at time.Time) (*models.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if t.AssignedToID != nil {
		return nil, fmt.Errorf("task %s is already assigned: %w", taskID, ErrPreconditionFailed)
	}
	t.AssignedToID = &userID
	t.AssignedByID = &userID
	t.AssignedAt = &at
	t.UpdatedAt = at
	m.tasks[taskID] = t
	return &t, nil
}

func (m *memStore) ListUserTasks(ctx context.Context, userID uuid.UUID, status models.TaskStatus, completedSince *time.Time) ([]models.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PipelineTask
	for _, t := range m.tasks {
		if t.AssignedToID == nil || *t.AssignedToID != userID || t.Status != status {
			continue
		}
		if completedSince != nil && (t.CompletedAt == nil || t.CompletedAt.Before(*completedSince)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListUnassignedTasks(ctx context.Context, step *models.Step) ([]models.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PipelineTask
	for _, t := range m.tasks {
		if t.Status != models.TaskPending || t.AssignedToID != nil {
			continue
		}
		if step != nil && t.Step != *step {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CountDocuments(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

func (m *memStore) CountDocumentsByStatus(ctx context.Context) (map[models.DocumentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.DocumentStatus]int)
	for _, d := range m.documents {
		counts[d.Status]++
	}
	return counts, nil
}

func (m *memStore) CountDocumentsByStep(ctx context.Context) (map[models.Step]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.Step]int)
	for _, d := range m.documents {
		counts[d.CurrentStep]++
	}
	return counts, nil
}

func (m *memStore) CountTasks(ctx context.Context, status models.TaskStatus, completedSince *time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.Status != status {
			continue
		}
		if completedSince != nil && (t.CompletedAt == nil || t.CompletedAt.Before(*completedSince)) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memStore) CountPublishedSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.published {
		if !p.PublishedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
