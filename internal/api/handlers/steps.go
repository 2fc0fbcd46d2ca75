package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/llm"
	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/vectorstore"
	"github.com/legaldrishti/backend/pkg/chunker"
)

// StepHandler exposes the per-step outputs of the pipeline: extraction,
// chunking, metadata, summarization, QA and publish.
type StepHandler struct {
	svc        *pipeline.Service
	queue      *queue.Client
	gateway    llm.Gateway
	vectors    *vectorstore.PgVectorStore
	embedModel string
}

func NewStepHandler(svc *pipeline.Service, qc *queue.Client, gateway llm.Gateway, vectors *vectorstore.PgVectorStore, embedModel string) *StepHandler {
	return &StepHandler{
		svc:        svc,
		queue:      qc,
		gateway:    gateway,
		vectors:    vectors,
		embedModel: embedModel,
	}
}

func documentIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// ========== Extraction ==========

func (h *StepHandler) SaveExtraction(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		RawText          string   `json:"raw_text"`
		CleanedText      string   `json:"cleaned_text"`
		ExtractionMethod string   `json:"extraction_method"`
		ConfidenceScore  *float64 `json:"confidence_score"`
		PageCount        int      `json:"page_count"`
		WordCount        int      `json:"word_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	et, err := h.svc.SaveExtractedText(r.Context(), pipeline.ExtractedTextInput{
		DocumentID:       docID,
		RawText:          req.RawText,
		CleanedText:      req.CleanedText,
		ExtractionMethod: req.ExtractionMethod,
		ConfidenceScore:  req.ConfidenceScore,
		PageCount:        req.PageCount,
		WordCount:        req.WordCount,
		UserID:           currentUser(r).ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, et)
}

func (h *StepHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	et, err := h.svc.GetExtractedText(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, et)
}

// AutoExtract re-enqueues the extraction draft job, used when the upload-time
// job failed or the file was replaced.
func (h *StepHandler) AutoExtract(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	if _, err := h.svc.GetDocument(r.Context(), docID); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentExtract(queue.DocumentExtractPayload{
		DocumentID:  docID,
		RequestedBy: currentUser(r).ID,
	}); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ========== Chunks ==========

func (h *StepHandler) SaveChunks(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		Chunks []pipeline.ChunkInput `json:"chunks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	chunks, err := h.svc.SaveChunks(r.Context(), docID, currentUser(r).ID, req.Chunks)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.queue.EnqueueChunksEmbed(queue.ChunksEmbedPayload{DocumentID: docID}); err != nil {
		slog.Error("failed to enqueue embedding", "document_id", docID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks, "count": len(chunks)})
}

func (h *StepHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	chunks, err := h.svc.GetChunks(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks, "count": len(chunks)})
}

func (h *StepHandler) UpdateChunk(w http.ResponseWriter, r *http.Request) {
	chunkID, err := uuid.Parse(chi.URLParam(r, "chunkID"))
	if err != nil {
		badRequest(w, "invalid chunk ID")
		return
	}

	var req struct {
		Content     *string         `json:"content"`
		Heading     *string         `json:"heading"`
		SectionType *string         `json:"section_type"`
		Summary     *string         `json:"summary"`
		Metadata    json.RawMessage `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	chunk, err := h.svc.UpdateChunk(r.Context(), chunkID, pipeline.UpdateChunkInput{
		Content:     req.Content,
		Heading:     req.Heading,
		SectionType: req.SectionType,
		Summary:     req.Summary,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

// SuggestChunks runs the splitter over the stored cleaned text so the
// operator starts from a machine proposal. Nothing is saved.
func (h *StepHandler) SuggestChunks(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		Size     int    `json:"size"`
		Overlap  int    `json:"overlap"`
		Strategy string `json:"strategy"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	et, err := h.svc.GetExtractedText(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	text := et.CleanedText
	if text == "" {
		text = et.RawText
	}

	opts := chunker.DefaultOptions()
	if req.Size > 0 {
		opts.Size = req.Size
	}
	if req.Overlap > 0 {
		opts.Overlap = req.Overlap
	}
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}

	chunks := chunker.Split(text, opts)
	writeJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks, "count": len(chunks)})
}

// EmbedChunks re-enqueues the embedding job for a document.
func (h *StepHandler) EmbedChunks(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	if _, err := h.svc.GetDocument(r.Context(), docID); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.queue.EnqueueChunksEmbed(queue.ChunksEmbedPayload{DocumentID: docID}); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// SimilarChunks embeds the query and returns the nearest stored chunks,
// a duplicate-detection aid for reviewers.
func (h *StepHandler) SimilarChunks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		badRequest(w, "query parameter q is required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	var exclude *uuid.UUID
	if raw := r.URL.Query().Get("exclude_document"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid exclude_document")
			return
		}
		exclude = &id
	}

	resp, err := h.gateway.Embed(r.Context(), llm.EmbeddingRequest{
		Model: h.embedModel,
		Input: []string{q},
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if len(resp.Embeddings) == 0 {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "embedding provider returned no vectors"})
		return
	}

	results, err := h.vectors.SimilarChunks(r.Context(), resp.Embeddings[0], topK, exclude)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

// ========== Metadata and summary ==========

func (h *StepHandler) SaveMetadata(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		CaseNumber        string          `json:"case_number"`
		CourtName         string          `json:"court_name"`
		Bench             string          `json:"bench"`
		Parties           string          `json:"parties"`
		Citation          string          `json:"citation"`
		ParallelCitations string          `json:"parallel_citations"`
		LegalTopics       json.RawMessage `json:"legal_topics"`
		ActsReferred      json.RawMessage `json:"acts_referred"`
		SectionsReferred  json.RawMessage `json:"sections_referred"`
		Headnotes         string          `json:"headnotes"`
		RatioDecidendi    string          `json:"ratio_decidendi"`
		ObiterDicta       string          `json:"obiter_dicta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	md, err := h.svc.SaveMetadata(r.Context(), pipeline.MetadataInput{
		DocumentID:        docID,
		CaseNumber:        req.CaseNumber,
		CourtName:         req.CourtName,
		Bench:             req.Bench,
		Parties:           req.Parties,
		Citation:          req.Citation,
		ParallelCitations: req.ParallelCitations,
		LegalTopics:       req.LegalTopics,
		ActsReferred:      req.ActsReferred,
		SectionsReferred:  req.SectionsReferred,
		Headnotes:         req.Headnotes,
		RatioDecidendi:    req.RatioDecidendi,
		ObiterDicta:       req.ObiterDicta,
		UserID:            currentUser(r).ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (h *StepHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	md, err := h.svc.GetMetadata(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (h *StepHandler) SaveSummary(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		Summary   string          `json:"summary"`
		KeyPoints json.RawMessage `json:"key_points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	md, err := h.svc.SaveSummary(r.Context(), pipeline.SummaryInput{
		DocumentID: docID,
		Summary:    req.Summary,
		KeyPoints:  req.KeyPoints,
		UserID:     currentUser(r).ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// ========== QA ==========

func (h *StepHandler) CreateQAReview(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		ReviewType        string          `json:"review_type"`
		AccuracyScore     int             `json:"accuracy_score"`
		CompletenessScore int             `json:"completeness_score"`
		FormattingScore   int             `json:"formatting_score"`
		OverallScore      int             `json:"overall_score"`
		IsApproved        bool            `json:"is_approved"`
		RejectionReason   string          `json:"rejection_reason"`
		Comments          string          `json:"comments"`
		StepFeedback      json.RawMessage `json:"step_feedback"`
		Checklist         json.RawMessage `json:"checklist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	review, err := h.svc.CreateQAReview(r.Context(), pipeline.QAReviewInput{
		DocumentID:        docID,
		ReviewerID:        currentUser(r).ID,
		ReviewType:        req.ReviewType,
		AccuracyScore:     req.AccuracyScore,
		CompletenessScore: req.CompletenessScore,
		FormattingScore:   req.FormattingScore,
		OverallScore:      req.OverallScore,
		IsApproved:        req.IsApproved,
		RejectionReason:   req.RejectionReason,
		Comments:          req.Comments,
		StepFeedback:      req.StepFeedback,
		Checklist:         req.Checklist,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *StepHandler) ListQAReviews(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	reviews, err := h.svc.ListQAReviews(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews, "count": len(reviews)})
}

// ========== Publish ==========

func (h *StepHandler) Publish(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		SearchKeywords json.RawMessage `json:"search_keywords"`
		SearchWeight   float64         `json:"search_weight"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	pub, err := h.svc.Publish(r.Context(), pipeline.PublishInput{
		DocumentID:     docID,
		PublishedByID:  currentUser(r).ID,
		SearchKeywords: req.SearchKeywords,
		SearchWeight:   req.SearchWeight,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

func (h *StepHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	docID, ok := documentIDParam(r)
	if !ok {
		badRequest(w, "invalid document ID")
		return
	}

	pub, err := h.svc.GetPublished(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pub)
}
