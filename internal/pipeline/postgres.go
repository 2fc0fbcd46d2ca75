package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legaldrishti/backend/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same store
// code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool // nil when this store wraps a transaction
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already transactional; nested calls reuse the outer transaction.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ========== Documents ==========

const documentColumns = `id, original_filename, file_path, file_type, file_size, file_hash,
	current_step, status, title, description, category, subcategory, jurisdiction, year, language,
	page_count, word_count, chunk_count, priority, uploaded_by_id, created_at, updated_at, published_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID, &d.OriginalFilename, &d.FilePath, &d.FileType, &d.FileSize, &d.FileHash,
		&d.CurrentStep, &d.Status, &d.Title, &d.Description, &d.Category, &d.Subcategory,
		&d.Jurisdiction, &d.Year, &d.Language, &d.PageCount, &d.WordCount, &d.ChunkCount,
		&d.Priority, &d.UploadedByID, &d.CreatedAt, &d.UpdatedAt, &d.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, original_filename, file_path, file_type, file_size, file_hash,
			current_step, status, title, description, category, subcategory, jurisdiction, year, language,
			page_count, word_count, chunk_count, priority, uploaded_by_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		doc.ID, doc.OriginalFilename, doc.FilePath, doc.FileType, doc.FileSize, doc.FileHash,
		doc.CurrentStep, doc.Status, doc.Title, doc.Description, doc.Category, doc.Subcategory,
		doc.Jurisdiction, doc.Year, doc.Language, doc.PageCount, doc.WordCount, doc.ChunkCount,
		doc.Priority, doc.UploadedByID, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where += " AND status = " + arg(f.Status)
	}
	if f.Step != "" {
		where += " AND current_step = " + arg(f.Step)
	}
	if f.Category != "" {
		where += " AND category = " + arg(f.Category)
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM documents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	query := `SELECT ` + documentColumns + ` FROM documents` + where +
		` ORDER BY priority DESC, created_at DESC LIMIT ` + arg(pageSize) + ` OFFSET ` + arg((page-1)*pageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, total, rows.Err()
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents SET original_filename=$2, file_path=$3, file_type=$4, file_size=$5, file_hash=$6,
			current_step=$7, status=$8, title=$9, description=$10, category=$11, subcategory=$12,
			jurisdiction=$13, year=$14, language=$15, page_count=$16, word_count=$17, chunk_count=$18,
			priority=$19, updated_at=$20, published_at=$21
		 WHERE id = $1`,
		doc.ID, doc.OriginalFilename, doc.FilePath, doc.FileType, doc.FileSize, doc.FileHash,
		doc.CurrentStep, doc.Status, doc.Title, doc.Description, doc.Category, doc.Subcategory,
		doc.Jurisdiction, doc.Year, doc.Language, doc.PageCount, doc.WordCount, doc.ChunkCount,
		doc.Priority, doc.UpdatedAt, doc.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	// Dependent rows go with it via ON DELETE CASCADE.
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// ========== Extracted text ==========

func (s *PostgresStore) UpsertExtractedText(ctx context.Context, et *models.ExtractedText) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO extracted_texts (id, document_id, raw_text, cleaned_text, extraction_method,
			confidence_score, processed_by_id, processed_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (document_id) DO UPDATE SET
			raw_text = EXCLUDED.raw_text,
			cleaned_text = EXCLUDED.cleaned_text,
			extraction_method = EXCLUDED.extraction_method,
			confidence_score = EXCLUDED.confidence_score,
			processed_by_id = EXCLUDED.processed_by_id,
			processed_at = EXCLUDED.processed_at,
			updated_at = EXCLUDED.updated_at`,
		et.ID, et.DocumentID, et.RawText, et.CleanedText, et.ExtractionMethod,
		et.ConfidenceScore, et.ProcessedByID, et.ProcessedAt, et.CreatedAt, et.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert extracted text: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetExtractedText(ctx context.Context, documentID uuid.UUID) (*models.ExtractedText, error) {
	var et models.ExtractedText
	err := s.db.QueryRow(ctx,
		`SELECT id, document_id, raw_text, cleaned_text, extraction_method, confidence_score,
			processed_by_id, processed_at, created_at, updated_at
		 FROM extracted_texts WHERE document_id = $1`, documentID,
	).Scan(&et.ID, &et.DocumentID, &et.RawText, &et.CleanedText, &et.ExtractionMethod,
		&et.ConfidenceScore, &et.ProcessedByID, &et.ProcessedAt, &et.CreatedAt, &et.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("extracted text for document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get extracted text: %w", err)
	}
	return &et, nil
}

// ========== Chunks ==========

func (s *PostgresStore) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []models.DocumentChunk) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	for i := range chunks {
		c := &chunks[i]
		_, err := s.db.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_index, content, start_page, end_page,
				token_count, heading, section_type, chunk_metadata, summary, processed_by_id,
				is_embedded, embedding_model, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.StartPage, c.EndPage,
			c.TokenCount, c.Heading, c.SectionType, c.ChunkMetadata, c.Summary, c.ProcessedByID,
			c.IsEmbedded, c.EmbeddingModel, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

const chunkColumns = `id, document_id, chunk_index, content, start_page, end_page, token_count,
	heading, section_type, chunk_metadata, summary, processed_by_id, is_embedded, embedding_model,
	created_at, updated_at`

func scanChunk(row pgx.Row) (*models.DocumentChunk, error) {
	var c models.DocumentChunk
	err := row.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.StartPage, &c.EndPage,
		&c.TokenCount, &c.Heading, &c.SectionType, &c.ChunkMetadata, &c.Summary, &c.ProcessedByID,
		&c.IsEmbedded, &c.EmbeddingModel, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) GetChunk(ctx context.Context, id uuid.UUID) (*models.DocumentChunk, error) {
	c, err := scanChunk(s.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateChunk(ctx context.Context, c *models.DocumentChunk) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE document_chunks SET content=$2, start_page=$3, end_page=$4, token_count=$5,
			heading=$6, section_type=$7, chunk_metadata=$8, summary=$9,
			is_embedded=$10, embedding_model=$11, updated_at=$12
		 WHERE id = $1`,
		c.ID, c.Content, c.StartPage, c.EndPage, c.TokenCount,
		c.Heading, c.SectionType, c.ChunkMetadata, c.Summary,
		c.IsEmbedded, c.EmbeddingModel, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update chunk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

// ========== Metadata ==========

func (s *PostgresStore) UpsertMetadata(ctx context.Context, md *models.DocumentMetadata) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO document_metadata (id, document_id, case_number, court_name, bench, parties,
			citation, parallel_citations, legal_topics, acts_referred, sections_referred,
			headnotes, ratio_decidendi, obiter_dicta, summary, key_points, processed_by_id,
			created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		 ON CONFLICT (document_id) DO UPDATE SET
			case_number = EXCLUDED.case_number,
			court_name = EXCLUDED.court_name,
			bench = EXCLUDED.bench,
			parties = EXCLUDED.parties,
			citation = EXCLUDED.citation,
			parallel_citations = EXCLUDED.parallel_citations,
			legal_topics = EXCLUDED.legal_topics,
			acts_referred = EXCLUDED.acts_referred,
			sections_referred = EXCLUDED.sections_referred,
			headnotes = EXCLUDED.headnotes,
			ratio_decidendi = EXCLUDED.ratio_decidendi,
			obiter_dicta = EXCLUDED.obiter_dicta,
			summary = EXCLUDED.summary,
			key_points = EXCLUDED.key_points,
			processed_by_id = EXCLUDED.processed_by_id,
			updated_at = EXCLUDED.updated_at`,
		md.ID, md.DocumentID, md.CaseNumber, md.CourtName, md.Bench, md.Parties,
		md.Citation, md.ParallelCitations, md.LegalTopics, md.ActsReferred, md.SectionsReferred,
		md.Headnotes, md.RatioDecidendi, md.ObiterDicta, md.Summary, md.KeyPoints, md.ProcessedByID,
		md.CreatedAt, md.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMetadata(ctx context.Context, documentID uuid.UUID) (*models.DocumentMetadata, error) {
	var md models.DocumentMetadata
	err := s.db.QueryRow(ctx,
		`SELECT id, document_id, case_number, court_name, bench, parties, citation, parallel_citations,
			legal_topics, acts_referred, sections_referred, headnotes, ratio_decidendi, obiter_dicta,
			summary, key_points, processed_by_id, created_at, updated_at
		 FROM document_metadata WHERE document_id = $1`, documentID,
	).Scan(&md.ID, &md.DocumentID, &md.CaseNumber, &md.CourtName, &md.Bench, &md.Parties,
		&md.Citation, &md.ParallelCitations, &md.LegalTopics, &md.ActsReferred, &md.SectionsReferred,
		&md.Headnotes, &md.RatioDecidendi, &md.ObiterDicta, &md.Summary, &md.KeyPoints,
		&md.ProcessedByID, &md.CreatedAt, &md.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("metadata for document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return &md, nil
}

// ========== QA reviews ==========

func (s *PostgresStore) CreateQAReview(ctx context.Context, r *models.QAReview) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO qa_reviews (id, document_id, reviewer_id, review_type, accuracy_score,
			completeness_score, formatting_score, overall_score, is_approved, rejection_reason,
			comments, step_feedback, checklist, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.DocumentID, r.ReviewerID, r.ReviewType, r.AccuracyScore,
		r.CompletenessScore, r.FormattingScore, r.OverallScore, r.IsApproved, r.RejectionReason,
		r.Comments, r.StepFeedback, r.Checklist, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert qa review: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListQAReviews(ctx context.Context, documentID uuid.UUID) ([]models.QAReview, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, document_id, reviewer_id, review_type, accuracy_score, completeness_score,
			formatting_score, overall_score, is_approved, rejection_reason, comments,
			step_feedback, checklist, created_at
		 FROM qa_reviews WHERE document_id = $1 ORDER BY created_at DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list qa reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.QAReview
	for rows.Next() {
		var r models.QAReview
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ReviewerID, &r.ReviewType, &r.AccuracyScore,
			&r.CompletenessScore, &r.FormattingScore, &r.OverallScore, &r.IsApproved,
			&r.RejectionReason, &r.Comments, &r.StepFeedback, &r.Checklist, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan qa review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ========== Published documents ==========

func (s *PostgresStore) GetPublished(ctx context.Context, documentID uuid.UUID) (*models.PublishedDocument, error) {
	var p models.PublishedDocument
	err := s.db.QueryRow(ctx,
		`SELECT id, document_id, version, is_active, published_by_id, published_at,
			search_keywords, search_weight, view_count, download_count, created_at, updated_at
		 FROM published_documents WHERE document_id = $1`, documentID,
	).Scan(&p.ID, &p.DocumentID, &p.Version, &p.IsActive, &p.PublishedByID, &p.PublishedAt,
		&p.SearchKeywords, &p.SearchWeight, &p.ViewCount, &p.DownloadCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("published document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get published document: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertPublished(ctx context.Context, p *models.PublishedDocument) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO published_documents (id, document_id, version, is_active, published_by_id,
			published_at, search_keywords, search_weight, view_count, download_count, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (document_id) DO UPDATE SET
			version = EXCLUDED.version,
			is_active = EXCLUDED.is_active,
			published_by_id = EXCLUDED.published_by_id,
			published_at = EXCLUDED.published_at,
			search_keywords = EXCLUDED.search_keywords,
			search_weight = EXCLUDED.search_weight,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.DocumentID, p.Version, p.IsActive, p.PublishedByID,
		p.PublishedAt, p.SearchKeywords, p.SearchWeight, p.ViewCount, p.DownloadCount,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert published document: %w", err)
	}
	return nil
}

// ========== Tasks ==========

const taskColumns = `id, document_id, step, status, assigned_to_id, assigned_by_id, assigned_at,
	started_at, completed_at, notes, output_data, revision_count, last_revision_reason,
	estimated_time_minutes, actual_time_minutes, created_at, updated_at`

func scanTask(row pgx.Row) (*models.PipelineTask, error) {
	var t models.PipelineTask
	err := row.Scan(&t.ID, &t.DocumentID, &t.Step, &t.Status, &t.AssignedToID, &t.AssignedByID,
		&t.AssignedAt, &t.StartedAt, &t.CompletedAt, &t.Notes, &t.OutputData, &t.RevisionCount,
		&t.LastRevisionReason, &t.EstimatedMinutes, &t.ActualMinutes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *models.PipelineTask) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO pipeline_tasks (id, document_id, step, status, assigned_to_id, assigned_by_id,
			assigned_at, started_at, completed_at, notes, output_data, revision_count,
			last_revision_reason, estimated_time_minutes, actual_time_minutes, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		t.ID, t.DocumentID, t.Step, t.Status, t.AssignedToID, t.AssignedByID,
		t.AssignedAt, t.StartedAt, t.CompletedAt, t.Notes, t.OutputData, t.RevisionCount,
		t.LastRevisionReason, t.EstimatedMinutes, t.ActualMinutes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*models.PipelineTask, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM pipeline_tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTaskByStep(ctx context.Context, documentID uuid.UUID, step models.Step) (*models.PipelineTask, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM pipeline_tasks WHERE document_id = $1 AND step = $2`,
		documentID, step))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task for document %s step %s: %w", documentID, step, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task by step: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.PipelineTask) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE pipeline_tasks SET status=$2, assigned_to_id=$3, assigned_by_id=$4, assigned_at=$5,
			started_at=$6, completed_at=$7, notes=$8, output_data=$9, revision_count=$10,
			last_revision_reason=$11, estimated_time_minutes=$12, actual_time_minutes=$13, updated_at=$14
		 WHERE id = $1`,
		t.ID, t.Status, t.AssignedToID, t.AssignedByID, t.AssignedAt,
		t.StartedAt, t.CompletedAt, t.Notes, t.OutputData, t.RevisionCount,
		t.LastRevisionReason, t.EstimatedMinutes, t.ActualMinutes, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ClaimTask(ctx context.Context, taskID, userID uuid.UUID, at time.Time) (*models.PipelineTask, error) {
	// Conditional update so two concurrent pickups cannot both win.
	tag, err := s.db.Exec(ctx,
		`UPDATE pipeline_tasks
		 SET assigned_to_id=$2, assigned_by_id=$2, assigned_at=$3, updated_at=$3
		 WHERE id = $1 AND assigned_to_id IS NULL`,
		taskID, userID, at,
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetTask(ctx, taskID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("task %s is already assigned: %w", taskID, ErrPreconditionFailed)
	}
	return s.GetTask(ctx, taskID)
}

func (s *PostgresStore) ListUserTasks(ctx context.Context, userID uuid.UUID, status models.TaskStatus, completedSince *time.Time) ([]models.PipelineTask, error) {
	query := `SELECT ` + taskColumns + ` FROM pipeline_tasks WHERE assigned_to_id = $1 AND status = $2`
	args := []any{userID, status}
	if completedSince != nil {
		query += ` AND completed_at >= $3 ORDER BY completed_at DESC`
		args = append(args, *completedSince)
	} else {
		query += ` ORDER BY created_at`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.PipelineTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) ListUnassignedTasks(ctx context.Context, step *models.Step) ([]models.PipelineTask, error) {
	query := `SELECT ` + taskColumns + ` FROM pipeline_tasks WHERE status = $1 AND assigned_to_id IS NULL`
	args := []any{models.TaskPending}
	if step != nil {
		query += ` AND step = $2`
		args = append(args, *step)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unassigned tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.PipelineTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ========== Aggregates ==========

func (s *PostgresStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountDocumentsByStatus(ctx context.Context) (map[models.DocumentStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, count(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count documents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DocumentStatus]int)
	for rows.Next() {
		var status models.DocumentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) CountDocumentsByStep(ctx context.Context) (map[models.Step]int, error) {
	rows, err := s.db.Query(ctx, `SELECT current_step, count(*) FROM documents GROUP BY current_step`)
	if err != nil {
		return nil, fmt.Errorf("count documents by step: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Step]int)
	for rows.Next() {
		var step models.Step
		var n int
		if err := rows.Scan(&step, &n); err != nil {
			return nil, fmt.Errorf("scan step count: %w", err)
		}
		counts[step] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) CountTasks(ctx context.Context, status models.TaskStatus, completedSince *time.Time) (int, error) {
	query := `SELECT count(*) FROM pipeline_tasks WHERE status = $1`
	args := []any{status}
	if completedSince != nil {
		query += ` AND completed_at >= $2`
		args = append(args, *completedSince)
	}
	var n int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountPublishedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM published_documents WHERE published_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count published: %w", err)
	}
	return n, nil
}
