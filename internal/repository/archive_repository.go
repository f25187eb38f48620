package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

const (
	archiveColumns = `a.id, a.title, a.slug, a.thumbnail, a.author_id, u.username AS author_username, a.category, a.attributes, a.body_content, a.tags, a.created_at, a.updated_at`
	archiveFrom    = `FROM archive_items a LEFT JOIN users u ON u.id = a.author_id`
	subTypeExpr    = `COALESCE(NULLIF(a.attributes->>'subType', ''), NULLIF(a.attributes->>'transportType', ''), NULLIF(a.attributes->>'serviceType', ''), '')`
)

// ArchiveRepository handles archive item persistence.
type ArchiveRepository struct {
	db dbProvider
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db dbProvider) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create stores a new item. A taken slug yields ErrDuplicate.
func (r *ArchiveRepository) Create(ctx context.Context, item *models.ArchiveItem) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if err := prepareWrite(item); err != nil {
		return err
	}
	const query = `INSERT INTO archive_items
	(id, title, slug, thumbnail, author_id, category, attributes, body_content, tags, created_at, updated_at)
	VALUES (:id, :title, :slug, :thumbnail, :author_id, :category, :attributes, :body_content, :tags, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, query, item); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create archive item: %w", ErrDuplicate)
		}
		return fmt.Errorf("create archive item: %w", err)
	}
	return nil
}

// Update replaces every mutable field of an item, category included.
func (r *ArchiveRepository) Update(ctx context.Context, item *models.ArchiveItem) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()
	if err := prepareWrite(item); err != nil {
		return err
	}
	const query = `UPDATE archive_items SET title = :title, slug = :slug, thumbnail = :thumbnail, category = :category,
	attributes = :attributes, body_content = :body_content, tags = :tags, updated_at = :updated_at WHERE id = :id`
	res, err := db.NamedExecContext(ctx, query, item)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update archive item: %w", ErrDuplicate)
		}
		return fmt.Errorf("update archive item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareWrite(item *models.ArchiveItem) error {
	if item.Tags == nil {
		item.Tags = pq.StringArray{}
	}
	if item.BodyContent == nil {
		item.BodyContent = models.BodyContent{}
	}
	return item.EncodeAttributes()
}

// Delete removes an item.
func (r *ArchiveRepository) Delete(ctx context.Context, id string) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM archive_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete archive item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID retrieves one item with its author's username.
func (r *ArchiveRepository) GetByID(ctx context.Context, id string) (*models.ArchiveItem, error) {
	return r.getOne(ctx, "get archive item", `SELECT `+archiveColumns+` `+archiveFrom+` WHERE a.id = $1`, id)
}

// GetBySlug retrieves one item by its public key.
func (r *ArchiveRepository) GetBySlug(ctx context.Context, slug string) (*models.ArchiveItem, error) {
	return r.getOne(ctx, "get archive item by slug", `SELECT `+archiveColumns+` `+archiveFrom+` WHERE a.slug = $1`, slug)
}

func (r *ArchiveRepository) getOne(ctx context.Context, label, query string, arg interface{}) (*models.ArchiveItem, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	var item models.ArchiveItem
	if err := db.GetContext(ctx, &item, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	if err := item.DecodeAttributes(); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &item, nil
}

func (r *ArchiveRepository) selectItems(ctx context.Context, label, query string, args ...interface{}) ([]models.ArchiveItem, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	var items []models.ArchiveItem
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	for i := range items {
		if err := items[i].DecodeAttributes(); err != nil {
			return nil, fmt.Errorf("%s: item %s: %w", label, items[i].ID, err)
		}
	}
	return items, nil
}

// ListByAuthor returns one page of an author's items, newest first, filtered
// by title, slug, category or sub-type.
func (r *ArchiveRepository) ListByAuthor(ctx context.Context, filter models.ContentFilter) ([]models.ArchiveItem, int, error) {
	where := ` WHERE a.author_id = $1`
	args := []interface{}{filter.AuthorID}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, containsPattern(q))
		where += fmt.Sprintf(` AND (a.title ILIKE $2 ESCAPE '\' OR a.slug ILIKE $2 ESCAPE '\' OR a.category ILIKE $2 ESCAPE '\' OR %s ILIKE $2 ESCAPE '\')`, subTypeExpr)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := models.ClampPage(filter.Page, pageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT %s %s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, archiveColumns, archiveFrom, where, pageSize, offset)
	items, err := r.selectItems(ctx, "list archive items by author", listQuery, args...)
	if err != nil {
		return nil, 0, err
	}

	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM archive_items a`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count archive items by author: %w", err)
	}
	return items, total, nil
}

// ListAllByAuthor returns every item of an author, newest first.
func (r *ArchiveRepository) ListAllByAuthor(ctx context.Context, authorID string) ([]models.ArchiveItem, error) {
	query := `SELECT ` + archiveColumns + ` ` + archiveFrom + ` WHERE a.author_id = $1 ORDER BY a.created_at DESC`
	return r.selectItems(ctx, "list all archive items by author", query, authorID)
}

// ListByCategory returns the items of a category, matched case-insensitively.
func (r *ArchiveRepository) ListByCategory(ctx context.Context, category string) ([]models.ArchiveItem, error) {
	query := `SELECT ` + archiveColumns + ` ` + archiveFrom + ` WHERE LOWER(a.category) = LOWER($1) ORDER BY a.created_at DESC`
	return r.selectItems(ctx, "list archive items by category", query, category)
}

// DistinctAttributeValues returns the distinct non-empty values stored under
// one attribute of a category's items.
func (r *ArchiveRepository) DistinctAttributeValues(ctx context.Context, category, field string) ([]string, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT DISTINCT a.attributes->>($2::text) AS value FROM archive_items a
	WHERE LOWER(a.category) = LOWER($1) AND COALESCE(TRIM(a.attributes->>($2::text)), '') <> ''`
	var values []string
	if err := db.SelectContext(ctx, &values, query, category, field); err != nil {
		return nil, fmt.Errorf("distinct %s values: %w", field, err)
	}
	return values, nil
}

// ListBySubType returns summaries of a category's items whose sub-type
// field, whichever it is, equals subType.
func (r *ArchiveRepository) ListBySubType(ctx context.Context, category, subType string) ([]models.ArchiveSummary, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT a.id, a.title, a.slug, a.thumbnail, a.category, ` + subTypeExpr + ` AS sub_type, a.created_at
	FROM archive_items a
	WHERE LOWER(a.category) = LOWER($1)
	AND (a.attributes->>'subType' = $2 OR a.attributes->>'transportType' = $2 OR a.attributes->>'serviceType' = $2)
	ORDER BY a.title ASC`
	var items []models.ArchiveSummary
	if err := db.SelectContext(ctx, &items, query, category, subType); err != nil {
		return nil, fmt.Errorf("list archive items by sub-type: %w", err)
	}
	return items, nil
}

// Search returns every item whose title, slug, tags, category, text
// attributes or text blocks contain q, ignoring case. Ranking is left to the
// caller.
func (r *ArchiveRepository) Search(ctx context.Context, q string) ([]models.ArchiveItem, error) {
	conditions := []string{
		`a.title ILIKE $1 ESCAPE '\'`,
		`a.slug ILIKE $1 ESCAPE '\'`,
		`a.category ILIKE $1 ESCAPE '\'`,
		`EXISTS (SELECT 1 FROM unnest(a.tags) AS tag WHERE tag ILIKE $1 ESCAPE '\')`,
		fmt.Sprintf(`EXISTS (SELECT 1 FROM jsonb_array_elements(a.body_content) AS block
			WHERE block->>'type' IN (%s) AND block->>'content' ILIKE $1 ESCAPE '\')`, textBlockList()),
	}
	for _, field := range models.SearchableAttributeFields() {
		conditions = append(conditions, fmt.Sprintf(`a.attributes->>'%s' ILIKE $1 ESCAPE '\'`, field))
	}
	query := `SELECT ` + archiveColumns + ` ` + archiveFrom + ` WHERE ` + strings.Join(conditions, " OR ")
	return r.selectItems(ctx, "search archive items", query, containsPattern(q))
}

func textBlockList() string {
	quoted := make([]string, len(models.TextBlockTypes))
	for i, t := range models.TextBlockTypes {
		quoted[i] = "'" + string(t) + "'"
	}
	return strings.Join(quoted, ", ")
}
