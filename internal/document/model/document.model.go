package model

import (
	"time"

	"marginalia/internal/anchor"
)

// Document is the published-document row. Content bytes live in the
// blob store; ContentRef names the live blob key.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	CurrentVersion int       `json:"current_version"`
	ContentRef     string    `json:"content_ref"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VersionSnapshot archives a superseded document state. Rows are
// immutable once written and form an append-only chain from version 1.
type VersionSnapshot struct {
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	ContentRef    string    `json:"content_ref"`
	CreatedAt     time.Time `json:"created_at"`
}

type PublishRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PublishResponse struct {
	DocID   string `json:"document_id"`
	Version int    `json:"version"`
}

type SaveRequest struct {
	DocID   string `json:"document_id"`
	Content string `json:"content"`
}

type SaveResponse struct {
	Version int `json:"version"`
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// ViewResponse is what the presentation layer needs to lay out a
// document: the current version plus the freshly assigned anchor set.
type ViewResponse struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Version int             `json:"version"`
	Anchors []anchor.Anchor `json:"anchors"`
}

type SnapshotResponse struct {
	DocID   string `json:"document_id"`
	Version int    `json:"version"`
	Content string `json:"content"`
}
