package blob

import (
	"context"
	"database/sql"

	"marginalia/internal/apperr"
	"marginalia/pkg/logger"
)

// Postgres stores blobs in a single keyed table, sharing the service's
// relational connection. The edit path writes its blob rows inside the
// document repository's transaction; this type serves every other path.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

func (s *Postgres) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, key, data)
	if err != nil {
		logger.Sugar.Errorf("Failed to put blob %s: %v", key, err)
		return apperr.Unavailable("put blob", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = $1", key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &apperr.NotFoundError{Resource: "blob", ID: key}
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get blob %s: %v", key, err)
		return nil, apperr.Unavailable("get blob", err)
	}
	return data, nil
}
