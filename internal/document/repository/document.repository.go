package repository

import (
	"context"
	"database/sql"

	"marginalia/internal/apperr"
	"marginalia/internal/blob"
	"marginalia/internal/document/model"
	"marginalia/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// Create inserts the document row and its live content blob in one
// transaction. New documents start at version 1 with no snapshot.
func (r *DocumentRepository) Create(ctx context.Context, doc model.Document, content []byte) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Unavailable("create document", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		doc.ContentRef, content); err != nil {
		logger.Sugar.Errorf("Failed to write live blob for doc %s: %v", doc.ID, err)
		return apperr.Unavailable("create document", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (id, title, current_version, content_ref, updated_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		doc.ID, doc.Title, doc.CurrentVersion, doc.ContentRef); err != nil {
		logger.Sugar.Errorf("Failed to create document %s: %v", doc.ID, err)
		return apperr.Unavailable("create document", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Unavailable("create document", err)
	}
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, docID string) (model.Document, error) {
	var doc model.Document
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, title, current_version, content_ref, updated_at FROM documents WHERE id = $1", docID).
		Scan(&doc.ID, &doc.Title, &doc.CurrentVersion, &doc.ContentRef, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Document{}, &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get document %s: %v", docID, err)
		return model.Document{}, apperr.Unavailable("get document", err)
	}
	return doc, nil
}

// GetCurrent returns the document's current version and live content ref.
func (r *DocumentRepository) GetCurrent(ctx context.Context, docID string) (int, string, error) {
	var version int
	var ref string
	err := r.DB.QueryRowContext(ctx,
		"SELECT current_version, content_ref FROM documents WHERE id = $1", docID).
		Scan(&version, &ref)
	if err == sql.ErrNoRows {
		return 0, "", &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get current version for doc %s: %v", docID, err)
		return 0, "", apperr.Unavailable("get current version", err)
	}
	return version, ref, nil
}

// CommitEdit performs the archive-and-bump unit for one edit attempt in
// a single transaction: the conditional version bump keyed on the
// expected prior version, the snapshot row for that version, the
// archived content blob, and the new live content blob. Returns false
// without side effects when another edit won the race.
func (r *DocumentRepository) CommitEdit(ctx context.Context, docID string, expected int, oldContent, newContent []byte) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, apperr.Unavailable("commit edit", err)
	}
	defer tx.Rollback()

	// The bump goes first: if the expected version is no longer
	// current, nothing else must be written.
	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET current_version = current_version + 1, updated_at = NOW()
		 WHERE id = $1 AND current_version = $2`, docID, expected)
	if err != nil {
		logger.Sugar.Errorf("Failed to bump version for doc %s: %v", docID, err)
		return false, apperr.Unavailable("commit edit", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Unavailable("commit edit", err)
	}
	if affected == 0 {
		return false, nil
	}

	snapKey := blob.SnapshotKey(docID, expected)
	if _, err := tx.ExecContext(ctx, `INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		snapKey, oldContent); err != nil {
		logger.Sugar.Errorf("Failed to archive blob for doc %s v%d: %v", docID, expected, err)
		return false, apperr.Unavailable("commit edit", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO version_snapshots (document_id, version_number, content_ref, created_at)
		VALUES ($1, $2, $3, NOW())`, docID, expected, snapKey); err != nil {
		logger.Sugar.Errorf("Failed to insert snapshot row for doc %s v%d: %v", docID, expected, err)
		return false, apperr.Unavailable("commit edit", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		blob.LiveKey(docID), newContent); err != nil {
		logger.Sugar.Errorf("Failed to write live blob for doc %s: %v", docID, err)
		return false, apperr.Unavailable("commit edit", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperr.Unavailable("commit edit", err)
	}
	return true, nil
}

// GetSnapshotRef returns the content ref archived for a version.
// The live version has no snapshot and reports not found.
func (r *DocumentRepository) GetSnapshotRef(ctx context.Context, docID string, version int) (string, error) {
	var ref string
	err := r.DB.QueryRowContext(ctx,
		"SELECT content_ref FROM version_snapshots WHERE document_id = $1 AND version_number = $2",
		docID, version).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", &apperr.NotFoundError{Resource: "snapshot", ID: blob.SnapshotKey(docID, version)}
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get snapshot ref for doc %s v%d: %v", docID, version, err)
		return "", apperr.Unavailable("get snapshot", err)
	}
	return ref, nil
}

func (r *DocumentRepository) UpdateTitle(ctx context.Context, docID, title string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE documents SET title = $1, updated_at = NOW() WHERE id = $2", title, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update title for doc %s: %v", docID, err)
		return 0, apperr.Unavailable("update title", err)
	}
	return res.RowsAffected()
}

// Delete cascades: comments, snapshot rows, all content blobs, then the
// document row itself.
func (r *DocumentRepository) Delete(ctx context.Context, docID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Unavailable("delete document", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM comments WHERE document_id = $1",
		"DELETE FROM version_snapshots WHERE document_id = $1",
		"DELETE FROM blobs WHERE key = $1 OR key LIKE $1 || '_v%'",
	} {
		if _, err := tx.ExecContext(ctx, q, docID); err != nil {
			logger.Sugar.Errorf("Failed cascade delete for doc %s: %v", docID, err)
			return apperr.Unavailable("delete document", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", docID, err)
		return apperr.Unavailable("delete document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable("delete document", err)
	}
	if affected == 0 {
		return &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	return tx.Commit()
}
