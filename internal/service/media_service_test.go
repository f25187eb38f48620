package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type memMediaRepo struct {
	assets    map[string]*models.MediaAsset
	createErr error
}

func (m *memMediaRepo) Create(ctx context.Context, asset *models.MediaAsset) error {
	if m.createErr != nil {
		return m.createErr
	}
	asset.ID = uuid.NewString()
	clone := *asset
	m.assets[asset.ID] = &clone
	return nil
}

func (m *memMediaRepo) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	asset, ok := m.assets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *asset
	return &clone, nil
}

type memStorage struct {
	objects map[string][]byte
	deleted []string
}

func (s *memStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memStorage) Open(ctx context.Context, key string) (*storage.Object, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

type presigningStorage struct {
	*memStorage
}

func (p presigningStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://bucket.example.org/" + key + "?sig=abc", nil
}

func newTestMediaService(store mediaStorage) (*MediaService, *memMediaRepo) {
	repo := &memMediaRepo{assets: map[string]*models.MediaAsset{}}
	return NewMediaService(repo, store, nil, NewMetricsService(), zap.NewNop(), MediaServiceConfig{MaxFileSize: 1024, PublicBaseURL: "https://archive.example.org/"}), repo
}

func TestMediaServiceUploadAndOpen(t *testing.T) {
	store := &memStorage{objects: map[string][]byte{}}
	svc, _ := newTestMediaService(store)
	ctx := context.Background()

	asset, err := svc.Upload(ctx, staffActor, MediaUpload{Filename: "../Old Bridge.PNG", Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.MimeType)
	assert.Equal(t, "Old Bridge.PNG", asset.OriginalName)
	assert.Equal(t, "https://archive.example.org/api/media/"+asset.ID, asset.URL)
	assert.True(t, strings.HasSuffix(asset.FilePath, ".png"))
	assert.Contains(t, asset.FilePath, "old_bridge_")
	assert.Equal(t, pngHeader, store.objects[asset.FilePath])

	download, err := svc.Open(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, download.Object)
	assert.Equal(t, "image/png", download.Object.ContentType)
	body, err := io.ReadAll(download.Object.Body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, body)
}

func TestMediaServiceUploadRejections(t *testing.T) {
	svc, _ := newTestMediaService(&memStorage{objects: map[string][]byte{}})
	ctx := context.Background()

	_, err := svc.Upload(ctx, plainActor, MediaUpload{Filename: "a.png", Size: 10, Content: bytes.NewReader(pngHeader)}, AuditMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	_, err = svc.Upload(ctx, staffActor, MediaUpload{Filename: "a.png", Size: 4096, Content: bytes.NewReader(pngHeader)}, AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	script := []byte("<html><script>alert(1)</script></html>")
	_, err = svc.Upload(ctx, staffActor, MediaUpload{Filename: "photo.png", Size: int64(len(script)), Content: bytes.NewReader(script)}, AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = svc.Upload(ctx, staffActor, MediaUpload{Filename: "a.png"}, AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestMediaServiceRemovesFileWhenMetadataFails(t *testing.T) {
	store := &memStorage{objects: map[string][]byte{}}
	svc, repo := newTestMediaService(store)
	repo.createErr = errors.New("db down")

	_, err := svc.Upload(context.Background(), staffActor, MediaUpload{Filename: "a.png", Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}, AuditMeta{})
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(t, err))
	assert.Empty(t, store.objects)
	assert.Len(t, store.deleted, 1)
}

func TestMediaServicePresignedRedirect(t *testing.T) {
	store := presigningStorage{&memStorage{objects: map[string][]byte{}}}
	svc, _ := newTestMediaService(store)
	ctx := context.Background()

	asset, err := svc.Upload(ctx, staffActor, MediaUpload{Filename: "scan.png", Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}, AuditMeta{})
	require.NoError(t, err)

	download, err := svc.Open(ctx, asset.ID)
	require.NoError(t, err)
	assert.Nil(t, download.Object)
	assert.True(t, strings.HasPrefix(download.RedirectURL, "https://bucket.example.org/"))
}

func TestMediaServiceOpenMissing(t *testing.T) {
	svc, _ := newTestMediaService(&memStorage{objects: map[string][]byte{}})
	_, err := svc.Open(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
	_, err = svc.Open(context.Background(), uuid.NewString())
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestGenerateMediaKey(t *testing.T) {
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	key := generateMediaKey("দলিল.pdf", "application/pdf", now)
	assert.True(t, strings.HasPrefix(key, "2024/02/upload_1706933106_"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
}
