package model

import "time"

// Comment is immutable after creation except for the moderation
// Flagged toggle. DocumentVersion records the document version live at
// the instant the comment was created; a racing edit may land right
// after, which is accepted.
type Comment struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	AnchorID        string    `json:"anchor_id"`
	AuthorName      string    `json:"author_name"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
	DocumentVersion int       `json:"document_version_at_creation"`
	Flagged         bool      `json:"flagged"`
}

type CreateRequest struct {
	DocID      string `json:"document_id"`
	AnchorID   string `json:"anchor_id"`
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

type FlagResponse struct {
	ID      string `json:"id"`
	Flagged bool   `json:"flagged"`
}
