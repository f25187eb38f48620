package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

func TestMediaRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMediaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO media_assets")).WillReturnResult(sqlmock.NewResult(1, 1))
	asset := &models.MediaAsset{FilePath: "2024/01/x.png", MimeType: "image/png", SizeBytes: 10}
	require.NoError(t, repo.Create(context.Background(), asset))
	require.NotEmpty(t, asset.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM media_assets WHERE id = $1")).
		WithArgs(asset.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_path", "original_name", "mime_type", "size_bytes", "uploaded_by", "uploaded_at"}).
			AddRow(asset.ID, asset.FilePath, "x.png", "image/png", 10, nil, time.Now()))

	found, err := repo.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024/01/x.png", found.FilePath)
	assert.Nil(t, found.UploadedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
