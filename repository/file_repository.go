package repository

import (
	"context"
	"errors"

	"filevault/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record does not exist or is not visible
// to the requesting user.
var ErrNotFound = errors.New("record not found")

// PageSize is the fixed number of records returned per listing page.
const PageSize = 20

// FileRepository handles database operations for file records
type FileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

// Create creates a new file record
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (
			user_id, name, type, parent_id, is_public, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		file.UserID,
		file.Name,
		file.Type,
		file.ParentID,
		file.IsPublic,
		file.StoragePath,
	).Scan(&file.ID, &file.CreatedAt)

	return err
}

// GetByID retrieves a file record by ID
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	file := &models.File{}
	query := `
		SELECT id, user_id, name, type, parent_id, is_public, storage_path, created_at
		FROM files
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.Type,
		&file.ParentID,
		&file.IsPublic,
		&file.StoragePath,
		&file.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// GetByIDAndUser retrieves a file record only if it belongs to the given
// user. Ownership misses surface as ErrNotFound, never as a distinct
// "forbidden" condition.
func (r *FileRepository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.File, error) {
	file := &models.File{}
	query := `
		SELECT id, user_id, name, type, parent_id, is_public, storage_path, created_at
		FROM files
		WHERE id = $1 AND user_id = $2`

	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.Type,
		&file.ParentID,
		&file.IsPublic,
		&file.StoragePath,
		&file.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// ListByParent retrieves one page of a user's records under the given
// parent (nil parent means root). Pages are zero-indexed with a fixed
// size of PageSize; skip/limit pagination offers no cursor stability
// under concurrent inserts.
func (r *FileRepository) ListByParent(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, page int) ([]*models.File, error) {
	if page < 0 {
		page = 0
	}

	query := `
		SELECT id, user_id, name, type, parent_id, is_public, storage_path, created_at
		FROM files
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, userID, parentID, PageSize, page*PageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		file := &models.File{}
		err := rows.Scan(
			&file.ID,
			&file.UserID,
			&file.Name,
			&file.Type,
			&file.ParentID,
			&file.IsPublic,
			&file.StoragePath,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// SetPublic updates the visibility flag of a user's record and returns the
// updated row. Setting the current value again is a no-op success.
func (r *FileRepository) SetPublic(ctx context.Context, id, userID uuid.UUID, isPublic bool) (*models.File, error) {
	file := &models.File{}
	query := `
		UPDATE files SET is_public = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, type, parent_id, is_public, storage_path, created_at`

	err := r.db.QueryRow(ctx, query, id, userID, isPublic).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.Type,
		&file.ParentID,
		&file.IsPublic,
		&file.StoragePath,
		&file.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Count returns the total number of file records
func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n)
	return n, err
}
