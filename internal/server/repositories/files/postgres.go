package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/dbx"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). Rows are never updated after insert.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, user_id, storage_key, display_name, mime_type, size, geohash, created_at`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	f := &models.File{}
	var geohash sql.NullString
	if err := row.Scan(&f.ID, &f.UserID, &f.StorageKey, &f.DisplayName, &f.MimeType, &f.Size, &geohash, &f.CreatedAt); err != nil {
		return nil, err
	}
	if geohash.Valid {
		g := geohash.String
		f.Geohash = &g
	}
	return f, nil
}

// Create inserts file and fills in its ID and CreatedAt. A reused storage
// key yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, storage_key, display_name, mime_type, size, geohash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	var geohash sql.NullString
	if file.Geohash != nil {
		geohash = sql.NullString{String: *file.Geohash, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.StorageKey, file.DisplayName, file.MimeType, file.Size, geohash).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// GetByID returns the file with the given id or common.ErrorNotFound.
// An id that is not a valid uuid cannot name a file and is also NotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListByUser returns userID's files, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the row for id. Exactly one row must be affected;
// zero means common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		if dbx.IsInvalidInput(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch ra {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
}
