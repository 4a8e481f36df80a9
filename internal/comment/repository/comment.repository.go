package repository

import (
	"context"
	"database/sql"

	"marginalia/internal/apperr"
	"marginalia/internal/comment/model"
	"marginalia/pkg/logger"
)

type CommentRepository struct {
	DB *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Insert(ctx context.Context, c model.Comment) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO comments (id, document_id, anchor_id, author_name, body, created_at, document_version, flagged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`,
		c.ID, c.DocumentID, c.AnchorID, c.AuthorName, c.Body, c.CreatedAt, c.DocumentVersion)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert comment on doc %s: %v", c.DocumentID, err)
		return apperr.Unavailable("insert comment", err)
	}
	return nil
}

// ListVisible returns non-flagged comments in creation order. Flagged
// rows stay in the table for moderation but never reach this path.
func (r *CommentRepository) ListVisible(ctx context.Context, docID string) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, document_id, anchor_id, author_name, body, created_at, document_version, flagged
		FROM comments WHERE document_id = $1 AND NOT flagged ORDER BY created_at ASC`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list comments for doc %s: %v", docID, err)
		return nil, apperr.Unavailable("list comments", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.AnchorID, &c.AuthorName, &c.Body,
			&c.CreatedAt, &c.DocumentVersion, &c.Flagged); err != nil {
			logger.Sugar.Errorf("Failed to scan comment row: %v", err)
			return nil, apperr.Unavailable("list comments", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list comments", err)
	}
	return comments, nil
}

// ToggleFlag flips the moderation flag, the only mutation a comment
// ever sees, and reports the new state.
func (r *CommentRepository) ToggleFlag(ctx context.Context, commentID string) (docID string, flagged bool, err error) {
	err = r.DB.QueryRowContext(ctx, `
		UPDATE comments SET flagged = NOT flagged
		WHERE id = $1
		RETURNING document_id, flagged`, commentID).Scan(&docID, &flagged)
	if err == sql.ErrNoRows {
		return "", false, &apperr.NotFoundError{Resource: "comment", ID: commentID}
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to toggle flag on comment %s: %v", commentID, err)
		return "", false, apperr.Unavailable("flag comment", err)
	}
	return docID, flagged, nil
}
