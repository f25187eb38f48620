package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyContentSortedAllowsGaps(t *testing.T) {
	bc := BodyContent{
		{Type: BlockParagraph, Content: json.RawMessage(`"c"`), Order: 10},
		{Type: BlockHeading, Content: json.RawMessage(`"a"`), Order: 1},
		{Type: BlockQuote, Content: json.RawMessage(`"b"`), Order: 4},
	}
	sorted := bc.Sorted()
	assert.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].Text(), sorted[1].Text(), sorted[2].Text()})
	assert.Equal(t, 10, bc[0].Order, "input untouched")
}

func TestBodyContentValidate(t *testing.T) {
	assert.NoError(t, BodyContent{{Type: BlockLink}}.Validate())
	assert.Error(t, BodyContent{{Type: "table"}}.Validate())
}

func TestBodyContentNormalizedMedia(t *testing.T) {
	bc := BodyContent{
		{Type: BlockImage, Content: json.RawMessage(`"{\"url\":\"https://drive.google.com/file/d/IMG1/view\",\"caption\":\"x\"}"`), Order: 2},
		{Type: BlockVideo, Content: json.RawMessage(`"https://youtu.be/VID1"`), Order: 1},
		{Type: BlockImage, Content: json.RawMessage(`{"url":"https://drive.google.com/open?id=IMG2"}`), Order: 3},
	}
	out := bc.Normalized()
	assert.Equal(t, "https://www.youtube.com/embed/VID1", out[0].Text())
	assert.Contains(t, out[1].Text(), "https://lh3.googleusercontent.com/d/IMG1")
	assert.JSONEq(t, `{"url":"https://lh3.googleusercontent.com/d/IMG2"}`, string(out[2].Content))
}

func TestBodyContentScanValue(t *testing.T) {
	var bc BodyContent
	require.NoError(t, bc.Scan([]byte(`[{"type":"paragraph","content":"hi","order":0}]`)))
	require.Len(t, bc, 1)
	v, err := bc.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"paragraph","content":"hi","order":0}]`, string(v.([]byte)))

	var empty BodyContent
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestArchiveItemJSONFlattensAttributes(t *testing.T) {
	author, name := "u-1", "rahim"
	item := ArchiveItem{
		ID:             "a-1",
		Title:          "Chilahati Station",
		Slug:           "chilahati-station",
		Category:       CategoryTransport,
		AuthorID:       &author,
		AuthorUsername: &name,
		Attributes:     TransportAttributes{TransportType: "train", Destinations: StringList{"Dhaka"}},
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "train", fields["transportType"])
	assert.Equal(t, "train", fields["subType"])
	assert.Equal(t, map[string]interface{}{"id": "u-1", "username": "rahim"}, fields["author"])

	var decoded ArchiveItem
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, item.Attributes, decoded.Attributes)
	assert.Equal(t, "rahim", *decoded.AuthorUsername)
	assert.Equal(t, "train", decoded.SubType())
}

func TestArchiveItemJSONNullAuthor(t *testing.T) {
	item := ArchiveItem{ID: "a-2", Category: CategoryHistory, Attributes: HeritageAttributes{Period: "1971"}}
	raw, err := json.Marshal(item)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Nil(t, fields["author"])
	assert.Equal(t, "1971", fields["period"])
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 21)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0, 10))
	assert.Equal(t, 1, ClampPage(-4, 10))
	assert.Equal(t, 7, ClampPage(7, 10))
	assert.Equal(t, math.MaxInt/10, ClampPage(922337203685477581, 10))
	assert.GreaterOrEqual(t, (ClampPage(math.MaxInt, 10)-1)*10, 0)
}
