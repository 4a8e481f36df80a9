package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"marginalia/internal/apperr"
	"marginalia/internal/comment/model"
	docservice "marginalia/internal/document/service"
	"marginalia/internal/reconcile"
	"marginalia/socket"
)

// anchorPattern accepts slug-shaped anchor ids, including the fixed
// "general" root anchor.
var anchorPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Repository is the comment persistence contract, implemented by
// repository.CommentRepository.
type Repository interface {
	Insert(ctx context.Context, c model.Comment) error
	ListVisible(ctx context.Context, docID string) ([]model.Comment, error)
	ToggleFlag(ctx context.Context, commentID string) (docID string, flagged bool, err error)
}

type CommentService struct {
	Repo Repository
	Docs *docservice.DocumentService
	Hub  *socket.Hub
}

func NewCommentService(repo Repository, docs *docservice.DocumentService, hub *socket.Hub) *CommentService {
	return &CommentService{Repo: repo, Docs: docs, Hub: hub}
}

// Create validates and persists a reader comment. The version stamp is
// whatever is current at the read; a concurrent edit landing right
// after is accepted and not retroactively corrected.
func (s *CommentService) Create(ctx context.Context, req model.CreateRequest) (*model.Comment, error) {
	name := strings.TrimSpace(req.AuthorName)
	if err := (validation.Errors{
		"author_name": validation.Validate(name, validation.Required, validation.RuneLength(1, 50)),
		"body":        validation.Validate(req.Body, validation.Required, validation.RuneLength(1, 2000)),
		"anchor_id":   validation.Validate(req.AnchorID, validation.Required, validation.Match(anchorPattern)),
	}).Filter(); err != nil {
		return nil, &apperr.ValidationError{Message: err.Error()}
	}

	version, err := s.Docs.CurrentVersion(ctx, req.DocID)
	if err != nil {
		return nil, err
	}

	c := model.Comment{
		ID:              uuid.NewString(),
		DocumentID:      req.DocID,
		AnchorID:        req.AnchorID,
		AuthorName:      name,
		Body:            req.Body,
		CreatedAt:       time.Now().UTC(),
		DocumentVersion: version,
	}
	if err := s.Repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.notify(socket.EventComment, c.DocumentID, c)
	return &c, nil
}

// List returns the document's visible comments in creation order.
func (s *CommentService) List(ctx context.Context, docID string) ([]model.Comment, error) {
	return s.Repo.ListVisible(ctx, docID)
}

// Reconcile renders the document, assigns a fresh anchor set and
// returns the grouped comment view. Anchor membership is always checked
// against that fresh set.
func (s *CommentService) Reconcile(ctx context.Context, docID string) (reconcile.View, error) {
	version, anchors, err := s.Docs.RenderCurrent(ctx, docID)
	if err != nil {
		return reconcile.View{}, err
	}
	comments, err := s.Repo.ListVisible(ctx, docID)
	if err != nil {
		return reconcile.View{}, err
	}
	return reconcile.Reconcile(version, anchors, comments), nil
}

// ToggleFlag flips a comment's moderation flag.
func (s *CommentService) ToggleFlag(ctx context.Context, commentID string) (*model.FlagResponse, error) {
	docID, flagged, err := s.Repo.ToggleFlag(ctx, commentID)
	if err != nil {
		return nil, err
	}
	resp := &model.FlagResponse{ID: commentID, Flagged: flagged}
	s.notify(socket.EventCommentFlag, docID, resp)
	return resp, nil
}

func (s *CommentService) notify(eventType, docID string, payload any) {
	if s.Hub == nil {
		return
	}
	data, _ := json.Marshal(payload)
	s.Hub.Broadcast <- socket.Event{Type: eventType, DocID: docID, Payload: data}
}
