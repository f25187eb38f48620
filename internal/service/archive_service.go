package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/dto"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/repository"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/media"
)

const (
	archiveCachePattern = "archive:*"
	contentPageSize     = 10
)

type archiveRepository interface {
	Create(ctx context.Context, item *models.ArchiveItem) error
	Update(ctx context.Context, item *models.ArchiveItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.ArchiveItem, error)
	GetBySlug(ctx context.Context, slug string) (*models.ArchiveItem, error)
	ListByAuthor(ctx context.Context, filter models.ContentFilter) ([]models.ArchiveItem, int, error)
	ListByCategory(ctx context.Context, category string) ([]models.ArchiveItem, error)
	DistinctAttributeValues(ctx context.Context, category, field string) ([]string, error)
	ListBySubType(ctx context.Context, category, subType string) ([]models.ArchiveSummary, error)
}

type archiveCache interface {
	readThroughCache
	Invalidate(ctx context.Context, pattern string) error
}

// ArchiveServiceConfig tunes archive reads.
type ArchiveServiceConfig struct {
	CacheTTL time.Duration
}

// ArchiveService manages archive items for staff and serves public browsing.
type ArchiveService struct {
	repo    archiveRepository
	cache   archiveCache
	audit   auditWriter
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ArchiveServiceConfig
}

// NewArchiveService constructs the service with defaults.
func NewArchiveService(repo archiveRepository, cache archiveCache, audit auditWriter, metrics *MetricsService, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ArchiveService{repo: repo, cache: cache, audit: audit, metrics: metrics, logger: logger, cfg: cfg}
}

// Categories returns the taxonomy used by the entry form.
func (s *ArchiveService) Categories() []models.CategorySpec {
	return models.Categories()
}

// Create stores a new item authored by actor. Sub-type and status values
// must come from their enumerations.
func (s *ArchiveService) Create(ctx context.Context, actor *models.JWTClaims, payload *dto.ArchivePayload, meta AuditMeta) (*dto.ArchiveWriteResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	item, err := s.buildItem(payload, true)
	if err != nil {
		return nil, err
	}
	authorID := actor.UserID
	item.AuthorID = &authorID

	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an entry with this slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create archive item")
	}

	s.afterWrite(ctx, actor, models.AuditActionArchiveCreate, item, meta)
	return &dto.ArchiveWriteResult{ID: item.ID, Slug: item.Slug}, nil
}

// Get returns one item for the edit form.
func (s *ArchiveService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ArchiveItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	normalizeForRead(item)
	return item, nil
}

// Update replaces an item. The category may change, in which case the
// attributes are rebuilt for the new variant. Enumeration mismatches are
// logged rather than rejected so legacy values stay editable.
func (s *ArchiveService) Update(ctx context.Context, actor *models.JWTClaims, id string, payload *dto.ArchivePayload, meta AuditMeta) (*dto.ArchiveWriteResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := s.buildItem(payload, false)
	if err != nil {
		return nil, err
	}
	item.ID = existing.ID
	item.AuthorID = existing.AuthorID
	item.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, item); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive item not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "an entry with this slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update archive item")
	}

	s.afterWrite(ctx, actor, models.AuditActionArchiveUpdate, item, meta)
	return &dto.ArchiveWriteResult{ID: item.ID, Slug: item.Slug}, nil
}

// Delete removes an item.
func (s *ArchiveService) Delete(ctx context.Context, actor *models.JWTClaims, id string, meta AuditMeta) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "archive item not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archive item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete archive item")
	}
	s.afterWrite(ctx, actor, models.AuditActionArchiveDelete, &models.ArchiveItem{ID: id}, meta)
	return nil
}

// ListContent returns one page of the actor's own items.
func (s *ArchiveService) ListContent(ctx context.Context, actor *models.JWTClaims, filter dto.ContentFilter) ([]models.ArchiveItem, *models.Pagination, error) {
	if err := requireStaff(actor); err != nil {
		return nil, nil, err
	}
	page := models.ClampPage(filter.Page, contentPageSize)
	items, total, err := s.repo.ListByAuthor(ctx, models.ContentFilter{
		AuthorID: actor.UserID,
		Query:    strings.TrimSpace(filter.Query),
		Page:     page,
		PageSize: contentPageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archive items")
	}
	for i := range items {
		normalizeForRead(&items[i])
	}
	if items == nil {
		items = []models.ArchiveItem{}
	}
	return items, models.NewPagination(page, contentPageSize, total), nil
}

// ResolveCategoryView decides whether a category is browsed through its
// sub-types or as a flat list.
func (s *ArchiveService) ResolveCategoryView(ctx context.Context, category string) (*dto.CategoryView, bool, error) {
	display := models.DisplayCategory(category)
	if display == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "category is required")
	}
	key := "archive:category:" + cacheSegment(display)
	return readThrough(ctx, s.cache, s.logger, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.CategoryView, error) {
		return s.composeCategoryView(ctx, display)
	})
}

func (s *ArchiveService) composeCategoryView(ctx context.Context, display string) (*dto.CategoryView, error) {
	queryCategory := display
	candidates := models.SubTypeFieldNames
	var declared []string
	if row, ok := models.LookupCategory(display); ok {
		queryCategory = string(row.Key)
		if row.SubTypeField != "" {
			candidates = []string{row.SubTypeField}
			declared = row.SubTypeValues
		}
	}

	var subTypes []string
	for _, field := range candidates {
		values, err := s.repo.DistinctAttributeValues(ctx, queryCategory, field)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve sub-types")
		}
		if len(values) > 0 {
			subTypes = orderSubTypes(values, declared)
			break
		}
	}

	if len(subTypes) > 0 {
		return &dto.CategoryView{
			Type:     dto.CategoryViewSubCategories,
			Category: queryCategory,
			Title:    "Explore " + display,
			SubTypes: subTypes,
		}, nil
	}

	items, err := s.repo.ListByCategory(ctx, queryCategory)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archive items")
	}
	for i := range items {
		normalizeForRead(&items[i])
	}
	if items == nil {
		items = []models.ArchiveItem{}
	}
	return &dto.CategoryView{
		Type:     dto.CategoryViewList,
		Category: queryCategory,
		Title:    display,
		Items:    items,
	}, nil
}

// orderSubTypes lists stored values in declared order, then any others
// alphabetically.
func orderSubTypes(stored, declared []string) []string {
	present := make(map[string]bool, len(stored))
	for _, v := range stored {
		if v = strings.TrimSpace(v); v != "" {
			present[v] = true
		}
	}
	out := make([]string, 0, len(present))
	for _, v := range declared {
		if present[v] {
			out = append(out, v)
			delete(present, v)
		}
	}
	extra := make([]string, 0, len(present))
	for v := range present {
		extra = append(extra, v)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// ListBySubType returns the summaries of one sub-type of a category.
func (s *ArchiveService) ListBySubType(ctx context.Context, category, subType string) (*dto.SubTypeListing, bool, error) {
	display := models.DisplayCategory(category)
	subType = strings.TrimSpace(subType)
	if display == "" || subType == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "category and sub-type are required")
	}
	queryCategory := display
	if resolved, ok := models.ResolveCategory(display); ok {
		queryCategory = string(resolved)
	}
	key := fmt.Sprintf("archive:subtype:%s:%s", cacheSegment(display), cacheSegment(subType))
	return readThrough(ctx, s.cache, s.logger, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.SubTypeListing, error) {
		items, err := s.repo.ListBySubType(ctx, queryCategory, subType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archive items")
		}
		if items == nil {
			items = []models.ArchiveSummary{}
		}
		for i := range items {
			items[i].Thumbnail = media.NormalizeImageURL(items[i].Thumbnail)
		}
		return &dto.SubTypeListing{
			Category: queryCategory,
			SubType:  subType,
			Title:    fmt.Sprintf("%s %s", subType, display),
			Items:    items,
		}, nil
	})
}

// GetEntryBySlug returns a public entry with media normalized and blocks in order.
func (s *ArchiveService) GetEntryBySlug(ctx context.Context, slug string) (*models.ArchiveItem, bool, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
	}
	return readThrough(ctx, s.cache, s.logger, "archive:entry:"+cacheSegment(slug), s.cfg.CacheTTL, func(ctx context.Context) (*models.ArchiveItem, error) {
		item, err := s.repo.GetBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
		}
		normalizeForRead(item)
		return item, nil
	})
}

func (s *ArchiveService) load(ctx context.Context, id string) (*models.ArchiveItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archive item not found")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load archive item")
	}
	return item, nil
}

func (s *ArchiveService) buildItem(payload *dto.ArchivePayload, strictEnums bool) (*models.ArchiveItem, error) {
	if payload == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload is required")
	}
	if payload.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	slug := strings.TrimSpace(payload.Slug)
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug is required")
	}
	if strings.ContainsAny(slug, " /?#\t\n") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug may not contain spaces, slashes, '?' or '#'")
	}
	row, ok := models.LookupCategory(payload.Category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid category %q", payload.Category))
	}

	rawAttrs, err := payload.AttributesJSON(row)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attributes")
	}
	attrs, err := models.DecodeAttributes(row.Key, rawAttrs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if violations := attrs.EnumViolations(); len(violations) > 0 {
		if strictEnums {
			return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(violations, "; "))
		}
		s.logger.Warn("archive item keeps value outside enumeration", zap.String("slug", slug), zap.Strings("violations", violations))
	}

	body := payload.BodyContent
	if err := body.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	return &models.ArchiveItem{
		Title:       strings.TrimSpace(payload.Title),
		Slug:        slug,
		Thumbnail:   media.NormalizeImageURL(payload.Thumbnail),
		Category:    row.Key,
		Attributes:  attrs,
		BodyContent: body.Normalized(),
		Tags:        cleanTags(payload.Tags),
	}, nil
}

func (s *ArchiveService) afterWrite(ctx context.Context, actor *models.JWTClaims, action string, item *models.ArchiveItem, meta AuditMeta) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, archiveCachePattern); err != nil {
			s.logger.Warn("failed to invalidate archive cache", zap.Error(err))
		}
	}
	s.metrics.RecordArchiveWrite(strings.ToLower(strings.TrimPrefix(action, "ARCHIVE_")), string(item.Category))

	var values map[string]interface{}
	if item.Slug != "" {
		values = map[string]interface{}{"title": item.Title, "slug": item.Slug, "category": item.Category}
	}
	userID := actor.UserID
	recordAudit(ctx, s.audit, s.logger, &userID, action, "archive", item.ID, values, meta)
}

func normalizeForRead(item *models.ArchiveItem) {
	item.Thumbnail = media.NormalizeImageURL(item.Thumbnail)
	item.BodyContent = item.BodyContent.Normalized()
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func cacheSegment(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "-")
}

func requireStaff(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return appErrors.ErrForbidden
	}
	return nil
}
