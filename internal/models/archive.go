package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/chilahati-archive-api/pkg/media"
)

// BlockType enumerates content block kinds.
type BlockType string

// Content block kinds.
const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockImage     BlockType = "image"
	BlockList      BlockType = "list"
	BlockPDF       BlockType = "pdf"
	BlockVideo     BlockType = "video"
	BlockQuote     BlockType = "quote"
	BlockLink      BlockType = "link"
)

// TextBlockTypes are the block kinds whose content is searchable text.
var TextBlockTypes = []BlockType{BlockParagraph, BlockHeading, BlockList, BlockQuote}

// Valid reports whether t is a known block kind.
func (t BlockType) Valid() bool {
	switch t {
	case BlockParagraph, BlockHeading, BlockImage, BlockList, BlockPDF, BlockVideo, BlockQuote, BlockLink:
		return true
	}
	return false
}

// ContentBlock is one ordered element of an entry body.
type ContentBlock struct {
	Type    BlockType       `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	Order   int             `json:"order"`
}

// Text returns the content when it is a JSON string, otherwise the raw JSON.
func (b ContentBlock) Text() string {
	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}
	return string(b.Content)
}

// NormalizeMedia rewrites image, video and pdf links into renderable URLs.
func (b ContentBlock) NormalizeMedia() ContentBlock {
	switch b.Type {
	case BlockImage:
		var s string
		if err := json.Unmarshal(b.Content, &s); err == nil {
			b.Content = mustJSON(media.NormalizeImageContent(s))
			return b
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(b.Content, &obj); err == nil {
			if url, ok := obj["url"].(string); ok {
				obj["url"] = media.NormalizeImageURL(url)
				b.Content = mustJSON(obj)
			}
		}
	case BlockVideo, BlockPDF:
		var s string
		if err := json.Unmarshal(b.Content, &s); err == nil {
			b.Content = mustJSON(media.EmbedURL(s))
		}
	}
	return b
}

func mustJSON(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

// BodyContent is the ordered block list stored as JSONB.
type BodyContent []ContentBlock

// Sorted returns the blocks ordered by their order value. Gaps are allowed.
func (bc BodyContent) Sorted() BodyContent {
	out := make(BodyContent, len(bc))
	copy(out, bc)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Normalized sorts the blocks and rewrites their media links.
func (bc BodyContent) Normalized() BodyContent {
	out := bc.Sorted()
	for i := range out {
		out[i] = out[i].NormalizeMedia()
	}
	return out
}

// Validate rejects unknown block kinds.
func (bc BodyContent) Validate() error {
	for i, b := range bc {
		if !b.Type.Valid() {
			return fmt.Errorf("block %d has unknown type %q", i, b.Type)
		}
	}
	return nil
}

// Value implements driver.Valuer.
func (bc BodyContent) Value() (driver.Value, error) {
	if bc == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(bc)
}

// Scan implements sql.Scanner.
func (bc *BodyContent) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*bc = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported body content type %T", src)
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("decode body content: %w", err)
	}
	*bc = blocks
	return nil
}

// AuthorRef is the public view of an item's author.
type AuthorRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ArchiveItem is one archive entry. Variant attributes are persisted as a
// JSON object and rendered flat alongside the base fields.
type ArchiveItem struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Slug           string         `db:"slug"`
	Thumbnail      string         `db:"thumbnail"`
	AuthorID       *string        `db:"author_id"`
	AuthorUsername *string        `db:"author_username"`
	Category       Category       `db:"category"`
	RawAttributes  types.JSONText `db:"attributes"`
	Attributes     Attributes     `db:"-"`
	BodyContent    BodyContent    `db:"body_content"`
	Tags           pq.StringArray `db:"tags"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// DecodeAttributes populates Attributes from RawAttributes.
func (a *ArchiveItem) DecodeAttributes() error {
	attrs, err := DecodeAttributes(a.Category, a.RawAttributes)
	if err != nil {
		return err
	}
	a.Attributes = attrs
	return nil
}

// EncodeAttributes serialises Attributes into RawAttributes.
func (a *ArchiveItem) EncodeAttributes() error {
	if a.Attributes == nil {
		a.RawAttributes = types.JSONText("{}")
		return nil
	}
	raw, err := json.Marshal(a.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	a.RawAttributes = raw
	return nil
}

// SubType returns the item's sub-type value, whatever field holds it.
func (a *ArchiveItem) SubType() string {
	if a.Attributes == nil {
		return ""
	}
	return a.Attributes.SubType()
}

type archiveItemJSON struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Thumbnail   string      `json:"thumbnail"`
	Author      *AuthorRef  `json:"author"`
	Category    Category    `json:"category"`
	SubType     string      `json:"subType"`
	BodyContent BodyContent `json:"bodyContent"`
	Tags        []string    `json:"tags"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

var baseItemKeys = []string{"id", "title", "slug", "thumbnail", "author", "category", "subType", "bodyContent", "tags", "createdAt", "updatedAt"}

// MarshalJSON renders base fields and the variant's attributes in one object.
func (a ArchiveItem) MarshalJSON() ([]byte, error) {
	out, err := AttributeMap(a.Attributes)
	if err != nil {
		return nil, err
	}
	base := archiveItemJSON{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Thumbnail:   a.Thumbnail,
		Category:    a.Category,
		SubType:     a.SubType(),
		BodyContent: a.BodyContent,
		Tags:        a.Tags,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if base.BodyContent == nil {
		base.BodyContent = BodyContent{}
	}
	if base.Tags == nil {
		base.Tags = []string{}
	}
	if a.AuthorID != nil {
		ref := &AuthorRef{ID: *a.AuthorID}
		if a.AuthorUsername != nil {
			ref.Username = *a.AuthorUsername
		}
		base.Author = ref
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]interface{}
	if err := json.Unmarshal(raw, &baseMap); err != nil {
		return nil, err
	}
	for k, v := range baseMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (a *ArchiveItem) UnmarshalJSON(data []byte) error {
	var base archiveItemJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range baseItemKeys {
		if k != "subType" {
			delete(fields, k)
		}
	}
	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	*a = ArchiveItem{
		ID:          base.ID,
		Title:       base.Title,
		Slug:        base.Slug,
		Thumbnail:   base.Thumbnail,
		Category:    base.Category,
		BodyContent: base.BodyContent,
		Tags:        base.Tags,
		CreatedAt:   base.CreatedAt,
		UpdatedAt:   base.UpdatedAt,
	}
	if base.Author != nil {
		id, name := base.Author.ID, base.Author.Username
		a.AuthorID, a.AuthorUsername = &id, &name
	}
	a.RawAttributes = rest
	if _, ok := LookupCategory(string(a.Category)); !ok {
		return nil
	}
	return a.DecodeAttributes()
}

// ArchiveSummary is the compact row used by listings and search results.
type ArchiveSummary struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Slug      string    `db:"slug" json:"slug"`
	Thumbnail string    `db:"thumbnail" json:"thumbnail"`
	Category  Category  `db:"category" json:"category"`
	SubType   string    `db:"sub_type" json:"subType"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ContentFilter narrows the content-management listing.
type ContentFilter struct {
	AuthorID string
	Query    string
	Page     int
	PageSize int
}
