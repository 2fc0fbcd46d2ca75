package queue

import "github.com/google/uuid"

const (
	TypeDocumentExtract = "document:extract"
	TypeChunksEmbed     = "chunks:embed"
)

// DocumentExtractPayload asks the worker to pull the uploaded file and draft
// the text extraction for an operator to review.
type DocumentExtractPayload struct {
	DocumentID  uuid.UUID `json:"document_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

// ChunksEmbedPayload asks the worker to embed every chunk of a document that
// does not have a vector yet.
type ChunksEmbedPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Model      string    `json:"model,omitempty"`
}
