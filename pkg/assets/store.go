package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

// Store handles image, upload and address persistence
type Store struct {
	db sqlx.ExtContext
}

// NewStore creates a new assets store
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{db: db}
}

// ImagesByIDs returns the images with the given ids, keyed by id
func (s *Store) ImagesByIDs(ctx context.Context, ids []string) (map[string]*Image, error) {
	var rows []*Image
	if err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT id, url, created_at FROM images WHERE id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out := make(map[string]*Image, len(rows))
	for _, img := range rows {
		out[img.ID] = img
	}
	return out, nil
}

// AddressesByIDs returns the addresses with the given ids, keyed by id
func (s *Store) AddressesByIDs(ctx context.Context, ids []string) (map[string]*Address, error) {
	var rows []*Address
	if err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT id, street, city, state, zip FROM addresses WHERE id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	out := make(map[string]*Address, len(rows))
	for _, a := range rows {
		out[a.ID] = a
	}
	return out, nil
}

// GetUpload returns the upload with id
func (s *Store) GetUpload(ctx context.Context, id string) (*Upload, error) {
	var upload Upload
	err := sqlx.GetContext(ctx, s.db, &upload,
		`SELECT id, user_id, blob_name, content_type, created_at FROM uploads WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("upload", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &upload, nil
}

// StaleUploads returns up to limit uploads created before cutoff, oldest first
func (s *Store) StaleUploads(ctx context.Context, cutoff time.Time, limit int) ([]Upload, error) {
	var uploads []Upload
	if err := sqlx.SelectContext(ctx, s.db, &uploads, `
		SELECT id, user_id, blob_name, content_type, created_at FROM uploads
		WHERE created_at < $1 ORDER BY created_at LIMIT $2`,
		cutoff, limit,
	); err != nil {
		return nil, fmt.Errorf("failed to list stale uploads: %w", err)
	}
	return uploads, nil
}

// DeleteUpload removes the upload row with id. A missing row is NotFound so
// a promotion racing another cannot succeed twice.
func DeleteUpload(ctx context.Context, ext sqlx.ExtContext, id string) error {
	res, err := ext.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", apperrors.FromDB(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("upload", id)
	}
	return nil
}

// CreateImage inserts an image for url and returns it
func CreateImage(ctx context.Context, ext sqlx.ExtContext, url string) (*Image, error) {
	img := &Image{ID: uuid.NewString(), URL: url}
	if err := ext.QueryRowxContext(ctx,
		`INSERT INTO images (id, url) VALUES ($1, $2) RETURNING created_at`, img.ID, img.URL,
	).Scan(&img.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create image: %w", apperrors.FromDB(err))
	}
	return img, nil
}
