package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/storage"
)

type mediaStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

type mediaPresigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

type mediaRepository interface {
	Create(ctx context.Context, asset *models.MediaAsset) error
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
}

// MediaUpload carries upload metadata and stream reader.
type MediaUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// MediaDownload is either a stream or a redirect to a presigned URL.
type MediaDownload struct {
	Asset       *models.MediaAsset
	Object      *storage.Object
	RedirectURL string
}

// MediaServiceConfig holds validation parameters and the public URL prefix.
type MediaServiceConfig struct {
	MaxFileSize   int64
	AllowedMIMEs  []string
	PublicBaseURL string
	APIPrefix     string
}

// MediaService stores staff uploads and serves them back.
type MediaService struct {
	repo    mediaRepository
	storage mediaStorage
	audit   auditWriter
	metrics *MetricsService
	logger  *zap.Logger
	cfg     MediaServiceConfig
	mimeSet map[string]struct{}
}

// NewMediaService constructs the service with defaults.
func NewMediaService(repo mediaRepository, store mediaStorage, audit auditWriter, metrics *MetricsService, logger *zap.Logger, cfg MediaServiceConfig) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &MediaService{repo: repo, storage: store, audit: audit, metrics: metrics, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// Upload validates and stores a file, returning its metadata and public URL.
func (s *MediaService) Upload(ctx context.Context, actor *models.JWTClaims, upload MediaUpload, meta AuditMeta) (*models.MediaAsset, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload.Content)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mimeType))
	}

	key := generateMediaKey(upload.Filename, mimeType, time.Now().UTC())
	if err := s.storage.Put(ctx, key, upload.Content, upload.Size, mimeType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	uploader := actor.UserID
	asset := &models.MediaAsset{
		FilePath:     key,
		OriginalName: filepath.Base(strings.TrimSpace(upload.Filename)),
		MimeType:     mimeType,
		SizeBytes:    upload.Size,
		UploadedBy:   &uploader,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record upload")
	}
	asset.URL = s.publicURL(asset.ID)

	s.metrics.RecordMediaUpload(upload.Size)
	recordAudit(ctx, s.audit, s.logger, &uploader, models.AuditActionMediaUpload, "media", asset.ID,
		map[string]interface{}{"name": asset.OriginalName, "mime": mimeType, "size": upload.Size}, meta)
	return asset, nil
}

// Open locates an uploaded file. Storage that can presign returns a redirect.
func (s *MediaService) Open(ctx context.Context, id string) (*MediaDownload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "media not found")
	}
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "media not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media")
	}
	asset.URL = s.publicURL(asset.ID)

	if presigner, ok := s.storage.(mediaPresigner); ok {
		url, err := presigner.PresignGet(ctx, asset.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign media url")
		}
		return &MediaDownload{Asset: asset, RedirectURL: url}, nil
	}

	obj, err := s.storage.Open(ctx, asset.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "media file missing")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media")
	}
	if obj.ContentType == "" {
		obj.ContentType = asset.MimeType
	}
	return &MediaDownload{Asset: asset, Object: obj}, nil
}

func (s *MediaService) publicURL(id string) string {
	return fmt.Sprintf("%s%s/media/%s", s.cfg.PublicBaseURL, strings.TrimRight(s.cfg.APIPrefix, "/"), id)
}

// detectMime sniffs the content rather than trusting the client header.
func detectMime(content io.ReadSeeker) (string, error) {
	header := make([]byte, 512)
	n, err := content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	mimeType := http.DetectContentType(header[:n])
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType)), nil
}

func generateMediaKey(original, mimeType string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	name := sanitize(base)
	if name == "" {
		name = "upload"
	}
	if len(name) > 60 {
		name = name[:60]
	}
	ext := mimeExtension(mimeType)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(original))
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s_%d_%s%s", now.Format("2006/01"), name, now.Unix(), randomSuffix(), ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
