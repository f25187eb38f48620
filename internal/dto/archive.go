package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

// ArchivePayload is the flat create/edit body posted by the entry form.
type ArchivePayload struct {
	Title       string
	Slug        string
	Category    string
	SubType     string
	Thumbnail   string
	Tags        []string
	BodyContent models.BodyContent
	// Fields holds every remaining key; the variant picks what it owns.
	Fields map[string]json.RawMessage
}

var payloadBaseKeys = []string{"title", "slug", "category", "subType", "thumbnail", "tags", "bodyContent", "bodyContentJSON", "author", "id", "createdAt", "updatedAt"}

// ParseArchivePayload decodes the flat form body.
func ParseArchivePayload(raw []byte) (*ArchivePayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	p := &ArchivePayload{}
	for key, dest := range map[string]*string{
		"title":     &p.Title,
		"slug":      &p.Slug,
		"category":  &p.Category,
		"subType":   &p.SubType,
		"thumbnail": &p.Thumbnail,
	} {
		value, err := stringField(fields, key)
		if err != nil {
			return nil, err
		}
		*dest = strings.TrimSpace(value)
	}

	if rawTags, ok := fields["tags"]; ok {
		var tags models.StringList
		if err := json.Unmarshal(rawTags, &tags); err != nil {
			return nil, fmt.Errorf("tags: %w", err)
		}
		p.Tags = tags
	}

	body, err := parseBody(fields)
	if err != nil {
		return nil, err
	}
	p.BodyContent = body

	for _, k := range payloadBaseKeys {
		delete(fields, k)
	}
	p.Fields = fields
	return p, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return value, nil
}

func parseBody(fields map[string]json.RawMessage) (models.BodyContent, error) {
	if raw, ok := fields["bodyContent"]; ok && string(raw) != "null" {
		var blocks models.BodyContent
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return nil, fmt.Errorf("bodyContent: %w", err)
		}
		return blocks, nil
	}
	encoded, err := stringField(fields, "bodyContentJSON")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(encoded) == "" {
		return models.BodyContent{}, nil
	}
	var blocks models.BodyContent
	if err := json.Unmarshal([]byte(encoded), &blocks); err != nil {
		return nil, fmt.Errorf("bodyContentJSON: %w", err)
	}
	return blocks, nil
}

// AttributesJSON applies form aliases for the category's variant and returns
// the attribute object: subType lands in the variant's sub-type field,
// lat/lng become coordinates and eventDate becomes dateOfIncident.
func (p *ArchivePayload) AttributesJSON(row models.CategorySpec) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	delete(out, "lat")
	delete(out, "lng")
	delete(out, "eventDate")

	if row.SubTypeField != "" && p.SubType != "" {
		if _, explicit := p.Fields[row.SubTypeField]; !explicit || row.SubTypeField == "subType" {
			encoded, _ := json.Marshal(p.SubType)
			out[row.SubTypeField] = encoded
		}
	}

	lat, latOK := numberField(p.Fields, "lat")
	lng, lngOK := numberField(p.Fields, "lng")
	if latOK && lngOK {
		encoded, _ := json.Marshal(models.Coordinates{Lat: lat, Lng: lng})
		out["coordinates"] = encoded
	}

	if eventDate, ok := p.Fields["eventDate"]; ok && string(eventDate) != `""` && string(eventDate) != "null" {
		out["dateOfIncident"] = eventDate
	}

	return json.Marshal(out)
}

func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ArchiveWriteResult is returned by create and edit.
type ArchiveWriteResult struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// CategoryView types.
const (
	CategoryViewSubCategories = "sub-categories"
	CategoryViewList          = "list"
)

// CategoryView is the browse response for one category.
type CategoryView struct {
	Type     string               `json:"type"`
	Category string               `json:"category"`
	Title    string               `json:"title"`
	SubTypes []string             `json:"subTypes,omitempty"`
	Items    []models.ArchiveItem `json:"items,omitempty"`
}

// MarshalJSON always emits items for list views, even when the category is
// empty, and omits them for sub-category views.
func (v CategoryView) MarshalJSON() ([]byte, error) {
	type view CategoryView
	if v.Type != CategoryViewList {
		return json.Marshal(view(v))
	}
	items := v.Items
	if items == nil {
		items = []models.ArchiveItem{}
	}
	return json.Marshal(struct {
		view
		Items []models.ArchiveItem `json:"items"`
	}{view: view(v), Items: items})
}

// SubTypeListing is the browse response for one sub-type.
type SubTypeListing struct {
	Category string                  `json:"category"`
	SubType  string                  `json:"subType"`
	Title    string                  `json:"title"`
	Items    []models.ArchiveSummary `json:"items"`
}

// SearchResult is one page of ranked search hits.
type SearchResult struct {
	Query   string               `json:"query"`
	Results []models.ArchiveItem `json:"results"`
}

// ContentFilter captures content-management query parameters.
type ContentFilter struct {
	Query string
	Page  int
}
