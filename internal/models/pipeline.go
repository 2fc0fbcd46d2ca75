package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Step is one of the seven ordered stages a document passes through.
type Step string

const (
	StepUpload           Step = "upload"
	StepTextExtraction   Step = "text_extraction"
	StepChunking         Step = "chunking"
	StepMetadata         Step = "metadata"
	StepSummarization    Step = "summarization"
	StepQualityAssurance Step = "quality_assurance"
	StepPublish          Step = "publish"
)

// DocumentStatus is the document-level view of pipeline progress.
type DocumentStatus string

const (
	DocStatusUploaded      DocumentStatus = "uploaded"
	DocStatusTextExtracted DocumentStatus = "text_extracted"
	DocStatusChunked       DocumentStatus = "chunked"
	DocStatusMetadataAdded DocumentStatus = "metadata_added"
	DocStatusSummarized    DocumentStatus = "summarized"
	DocStatusQAApproved    DocumentStatus = "qa_approved"
	DocStatusPublished     DocumentStatus = "published"
	DocStatusRejected      DocumentStatus = "rejected"
)

// TaskStatus is the state of a single pipeline task.
type TaskStatus string

const (
	TaskPending          TaskStatus = "pending"
	TaskInProgress       TaskStatus = "in_progress"
	TaskCompleted        TaskStatus = "completed"
	TaskFailed           TaskStatus = "failed"
	TaskRevisionRequired TaskStatus = "revision_required"
)

// Terminal reports whether a task in this status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

type Document struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	OriginalFilename string         `json:"original_filename" db:"original_filename"`
	FilePath         string         `json:"file_path" db:"file_path"`
	FileType         string         `json:"file_type" db:"file_type"`
	FileSize         int64          `json:"file_size" db:"file_size"`
	FileHash         string         `json:"file_hash,omitempty" db:"file_hash"`
	CurrentStep      Step           `json:"current_step" db:"current_step"`
	Status           DocumentStatus `json:"status" db:"status"`
	Title            string         `json:"title,omitempty" db:"title"`
	Description      string         `json:"description,omitempty" db:"description"`
	Category         string         `json:"category,omitempty" db:"category"`
	Subcategory      string         `json:"subcategory,omitempty" db:"subcategory"`
	Jurisdiction     string         `json:"jurisdiction,omitempty" db:"jurisdiction"`
	Year             int            `json:"year,omitempty" db:"year"`
	Language         string         `json:"language,omitempty" db:"language"`
	PageCount        int            `json:"page_count,omitempty" db:"page_count"`
	WordCount        int            `json:"word_count,omitempty" db:"word_count"`
	ChunkCount       int            `json:"chunk_count,omitempty" db:"chunk_count"`
	Priority         int            `json:"priority" db:"priority"`
	UploadedByID     uuid.UUID      `json:"uploaded_by_id" db:"uploaded_by_id"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
	PublishedAt      *time.Time     `json:"published_at,omitempty" db:"published_at"`
}

type ExtractedText struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	DocumentID       uuid.UUID  `json:"document_id" db:"document_id"`
	RawText          string     `json:"raw_text" db:"raw_text"`
	CleanedText      string     `json:"cleaned_text,omitempty" db:"cleaned_text"`
	ExtractionMethod string     `json:"extraction_method,omitempty" db:"extraction_method"`
	ConfidenceScore  *float64   `json:"confidence_score,omitempty" db:"confidence_score"`
	ProcessedByID    *uuid.UUID `json:"processed_by_id,omitempty" db:"processed_by_id"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type DocumentChunk struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	DocumentID     uuid.UUID       `json:"document_id" db:"document_id"`
	ChunkIndex     int             `json:"chunk_index" db:"chunk_index"`
	Content        string          `json:"content" db:"content"`
	StartPage      int             `json:"start_page,omitempty" db:"start_page"`
	EndPage        int             `json:"end_page,omitempty" db:"end_page"`
	TokenCount     int             `json:"token_count,omitempty" db:"token_count"`
	Heading        string          `json:"heading,omitempty" db:"heading"`
	SectionType    string          `json:"section_type,omitempty" db:"section_type"`
	ChunkMetadata  json.RawMessage `json:"chunk_metadata,omitempty" db:"chunk_metadata"`
	Summary        string          `json:"summary,omitempty" db:"summary"`
	ProcessedByID  *uuid.UUID      `json:"processed_by_id,omitempty" db:"processed_by_id"`
	IsEmbedded     bool            `json:"is_embedded" db:"is_embedded"`
	EmbeddingModel string          `json:"embedding_model,omitempty" db:"embedding_model"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

type PipelineTask struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	DocumentID         uuid.UUID       `json:"document_id" db:"document_id"`
	Step               Step            `json:"step" db:"step"`
	Status             TaskStatus      `json:"status" db:"status"`
	AssignedToID       *uuid.UUID      `json:"assigned_to_id,omitempty" db:"assigned_to_id"`
	AssignedByID       *uuid.UUID      `json:"assigned_by_id,omitempty" db:"assigned_by_id"`
	AssignedAt         *time.Time      `json:"assigned_at,omitempty" db:"assigned_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	Notes              string          `json:"notes,omitempty" db:"notes"`
	OutputData         json.RawMessage `json:"output_data,omitempty" db:"output_data"`
	RevisionCount      int             `json:"revision_count" db:"revision_count"`
	LastRevisionReason string          `json:"last_revision_reason,omitempty" db:"last_revision_reason"`
	EstimatedMinutes   int             `json:"estimated_time_minutes,omitempty" db:"estimated_time_minutes"`
	ActualMinutes      int             `json:"actual_time_minutes,omitempty" db:"actual_time_minutes"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

type QAReview struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	DocumentID        uuid.UUID       `json:"document_id" db:"document_id"`
	ReviewerID        uuid.UUID       `json:"reviewer_id" db:"reviewer_id"`
	ReviewType        string          `json:"review_type" db:"review_type"`
	AccuracyScore     int             `json:"accuracy_score,omitempty" db:"accuracy_score"`
	CompletenessScore int             `json:"completeness_score,omitempty" db:"completeness_score"`
	FormattingScore   int             `json:"formatting_score,omitempty" db:"formatting_score"`
	OverallScore      int             `json:"overall_score,omitempty" db:"overall_score"`
	IsApproved        bool            `json:"is_approved" db:"is_approved"`
	RejectionReason   string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Comments          string          `json:"comments,omitempty" db:"comments"`
	StepFeedback      json.RawMessage `json:"step_feedback,omitempty" db:"step_feedback"`
	Checklist         json.RawMessage `json:"checklist,omitempty" db:"checklist"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

type DocumentMetadata struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	DocumentID        uuid.UUID       `json:"document_id" db:"document_id"`
	CaseNumber        string          `json:"case_number,omitempty" db:"case_number"`
	CourtName         string          `json:"court_name,omitempty" db:"court_name"`
	Bench             string          `json:"bench,omitempty" db:"bench"`
	Parties           string          `json:"parties,omitempty" db:"parties"`
	Citation          string          `json:"citation,omitempty" db:"citation"`
	ParallelCitations string          `json:"parallel_citations,omitempty" db:"parallel_citations"`
	LegalTopics       json.RawMessage `json:"legal_topics,omitempty" db:"legal_topics"`
	ActsReferred      json.RawMessage `json:"acts_referred,omitempty" db:"acts_referred"`
	SectionsReferred  json.RawMessage `json:"sections_referred,omitempty" db:"sections_referred"`
	Headnotes         string          `json:"headnotes,omitempty" db:"headnotes"`
	RatioDecidendi    string          `json:"ratio_decidendi,omitempty" db:"ratio_decidendi"`
	ObiterDicta       string          `json:"obiter_dicta,omitempty" db:"obiter_dicta"`
	Summary           string          `json:"summary,omitempty" db:"summary"`
	KeyPoints         json.RawMessage `json:"key_points,omitempty" db:"key_points"`
	ProcessedByID     *uuid.UUID      `json:"processed_by_id,omitempty" db:"processed_by_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type PublishedDocument struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	DocumentID     uuid.UUID       `json:"document_id" db:"document_id"`
	Version        int             `json:"version" db:"version"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	PublishedByID  uuid.UUID       `json:"published_by_id" db:"published_by_id"`
	PublishedAt    time.Time       `json:"published_at" db:"published_at"`
	SearchKeywords json.RawMessage `json:"search_keywords,omitempty" db:"search_keywords"`
	SearchWeight   float64         `json:"search_weight" db:"search_weight"`
	ViewCount      int             `json:"view_count" db:"view_count"`
	DownloadCount  int             `json:"download_count" db:"download_count"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
