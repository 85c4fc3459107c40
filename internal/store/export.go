package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fintrack/apiserver/types"
	"github.com/google/uuid"
)

// ExportRepository handles persistence for CSV export jobs.
type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

func (r *ExportRepository) Create(ctx context.Context, export types.Export) (types.Export, error) {
	if _, err := uuid.Parse(export.UserID); err != nil {
		return types.Export{}, ErrNotFound
	}

	now := time.Now().UTC()
	export.ID = uuid.NewString()
	export.CreatedAt = now
	export.UpdatedAt = now

	const query = `
		INSERT INTO exports (id, user_id, status, object_key, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		export.ID,
		export.UserID,
		export.Status,
		export.ObjectKey,
		export.Error,
		export.CreatedAt,
		export.UpdatedAt,
	); err != nil {
		if isForeignKeyViolation(err) {
			return types.Export{}, ErrNotFound
		}
		return types.Export{}, err
	}
	return export, nil
}

func (r *ExportRepository) Get(ctx context.Context, userID, id string) (types.Export, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Export{}, ErrNotFound
	}
	if _, err := uuid.Parse(userID); err != nil {
		return types.Export{}, ErrNotFound
	}

	const query = `
		SELECT id, user_id, status, object_key, error, created_at, updated_at
		FROM exports
		WHERE id = $1 AND user_id = $2`
	var export types.Export
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&export.ID,
		&export.UserID,
		&export.Status,
		&export.ObjectKey,
		&export.Error,
		&export.CreatedAt,
		&export.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Export{}, ErrNotFound
		}
		return types.Export{}, err
	}
	return export, nil
}

func (r *ExportRepository) Update(ctx context.Context, export types.Export) (types.Export, error) {
	export.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE exports
		SET status = $1,
			object_key = $2,
			error = $3,
			updated_at = $4
		WHERE id = $5 AND user_id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		export.Status,
		export.ObjectKey,
		export.Error,
		export.UpdatedAt,
		export.ID,
		export.UserID,
	)
	if err != nil {
		return types.Export{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Export{}, err
	}
	if affected == 0 {
		return types.Export{}, ErrNotFound
	}
	return export, nil
}
