package handler

import (
	"encoding/json"
	"net/http"

	"marginalia/internal/apperr"
	"marginalia/internal/comment/model"
	"marginalia/internal/comment/service"
	"marginalia/pkg/logger"
)

type CommentHandler struct {
	Service *service.CommentService
}

func NewCommentHandler(service *service.CommentService) *CommentHandler {
	return &CommentHandler{Service: service}
}

func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DocID == "" {
		http.Error(w, "Missing document_id", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.Create(r.Context(), req)
	if err != nil {
		logger.Sugar.Errorf("Failed to add comment: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *CommentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	comments, err := h.Service.List(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching comments: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

func (h *CommentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	view, err := h.Service.Reconcile(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to reconcile comments for doc %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func (h *CommentHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	commentID := r.URL.Query().Get("commentId")
	if commentID == "" {
		http.Error(w, "Missing commentId parameter", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.ToggleFlag(r.Context(), commentID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to flag comment %s: %v", commentID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
