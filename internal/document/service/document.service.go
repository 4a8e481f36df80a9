package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"marginalia/internal/anchor"
	"marginalia/internal/apperr"
	"marginalia/internal/blob"
	"marginalia/internal/document/model"
	"marginalia/internal/render"
	"marginalia/socket"
)

// maxCommitRetries bounds the compare-and-swap retry loop before an
// edit surfaces as Conflict.
const maxCommitRetries = 3

// Repository is the document persistence contract, implemented by
// repository.DocumentRepository.
type Repository interface {
	Create(ctx context.Context, doc model.Document, content []byte) error
	Get(ctx context.Context, docID string) (model.Document, error)
	GetCurrent(ctx context.Context, docID string) (version int, contentRef string, err error)
	CommitEdit(ctx context.Context, docID string, expected int, oldContent, newContent []byte) (bool, error)
	GetSnapshotRef(ctx context.Context, docID string, version int) (string, error)
	UpdateTitle(ctx context.Context, docID, title string) (int64, error)
	Delete(ctx context.Context, docID string) error
}

type DocumentService struct {
	Repo     Repository
	Blobs    blob.Store
	Renderer render.Renderer
	Hub      *socket.Hub
}

func NewDocumentService(repo Repository, blobs blob.Store, renderer render.Renderer, hub *socket.Hub) *DocumentService {
	return &DocumentService{Repo: repo, Blobs: blobs, Renderer: renderer, Hub: hub}
}

// Publish creates a document at version 1. The first version needs no
// snapshot; there is nothing superseded to archive yet.
func (s *DocumentService) Publish(ctx context.Context, title, content string) (*model.PublishResponse, error) {
	if title == "" {
		title = "Untitled Document"
	}
	docID := uuid.NewString()
	doc := model.Document{
		ID:             docID,
		Title:          title,
		CurrentVersion: 1,
		ContentRef:     blob.LiveKey(docID),
	}
	if err := s.Repo.Create(ctx, doc, []byte(content)); err != nil {
		return nil, err
	}
	return &model.PublishResponse{DocID: docID, Version: 1}, nil
}

// CommitEdit archives the live content as a snapshot under the current
// version and bumps the version by exactly one. Concurrent edits
// serialize through the repository's conditional bump: a lost race
// re-reads and retries, bounded, then surfaces Conflict.
func (s *DocumentService) CommitEdit(ctx context.Context, docID, newContent string) (int, error) {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		version, ref, err := s.Repo.GetCurrent(ctx, docID)
		if err != nil {
			return 0, err
		}
		oldContent, err := s.Blobs.Get(ctx, ref)
		if err != nil {
			return 0, err
		}
		ok, err := s.Repo.CommitEdit(ctx, docID, version, oldContent, []byte(newContent))
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		newVersion := version + 1
		s.notifyEdit(docID, newVersion)
		return newVersion, nil
	}
	return 0, &apperr.ConflictError{Message: fmt.Sprintf("document %s is contended, retry the edit", docID)}
}

// View renders the live content and assigns a fresh anchor set.
func (s *DocumentService) View(ctx context.Context, docID string) (*model.ViewResponse, error) {
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	content, err := s.Blobs.Get(ctx, doc.ContentRef)
	if err != nil {
		return nil, err
	}
	anchors := anchor.Assign(s.Renderer.Render(string(content)))
	return &model.ViewResponse{
		ID:      doc.ID,
		Title:   doc.Title,
		Version: doc.CurrentVersion,
		Anchors: anchors,
	}, nil
}

// RenderCurrent returns the current version together with its anchor
// set, for reconciliation.
func (s *DocumentService) RenderCurrent(ctx context.Context, docID string) (int, []anchor.Anchor, error) {
	version, ref, err := s.Repo.GetCurrent(ctx, docID)
	if err != nil {
		return 0, nil, err
	}
	content, err := s.Blobs.Get(ctx, ref)
	if err != nil {
		return 0, nil, err
	}
	return version, anchor.Assign(s.Renderer.Render(string(content))), nil
}

// CurrentVersion reads the version live at this instant. Callers
// stamping comments accept that a concurrent edit may land right after.
func (s *DocumentService) CurrentVersion(ctx context.Context, docID string) (int, error) {
	version, _, err := s.Repo.GetCurrent(ctx, docID)
	return version, err
}

// GetSnapshot returns the content archived for a past version. The
// live version has no snapshot and reports not found.
func (s *DocumentService) GetSnapshot(ctx context.Context, docID string, version int) (*model.SnapshotResponse, error) {
	ref, err := s.Repo.GetSnapshotRef(ctx, docID, version)
	if err != nil {
		return nil, err
	}
	content, err := s.Blobs.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &model.SnapshotResponse{DocID: docID, Version: version, Content: string(content)}, nil
}

func (s *DocumentService) UpdateTitle(ctx context.Context, docID, title string) error {
	affected, err := s.Repo.UpdateTitle(ctx, docID, title)
	if err != nil {
		return err
	}
	if affected == 0 {
		return &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	return nil
}

// Delete removes the document and cascades to its comments, snapshots
// and blobs, then disconnects any readers still viewing it.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	if err := s.Repo.Delete(ctx, docID); err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.RemoveDocument(docID)
	}
	return nil
}

func (s *DocumentService) notifyEdit(docID string, version int) {
	if s.Hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]int{"version": version})
	s.Hub.Broadcast <- socket.Event{Type: socket.EventEdit, DocID: docID, Payload: payload}
}
