package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

// MediaRepository stores uploaded media metadata.
type MediaRepository struct {
	db dbProvider
}

// NewMediaRepository constructs the repository.
func NewMediaRepository(db dbProvider) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create stores metadata for an uploaded file.
func (r *MediaRepository) Create(ctx context.Context, asset *models.MediaAsset) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.UploadedAt.IsZero() {
		asset.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO media_assets (id, file_path, original_name, mime_type, size_bytes, uploaded_by, uploaded_at)
	VALUES (:id, :file_path, :original_name, :mime_type, :size_bytes, :uploaded_by, :uploaded_at)`
	if _, err := db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create media asset: %w", err)
	}
	return nil
}

// GetByID retrieves one media row.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, file_path, original_name, mime_type, size_bytes, uploaded_by, uploaded_at FROM media_assets WHERE id = $1`
	var asset models.MediaAsset
	if err := db.GetContext(ctx, &asset, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get media asset: %w", err)
	}
	return &asset, nil
}
