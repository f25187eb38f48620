package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

func TestParseArchivePayloadBodyContentJSON(t *testing.T) {
	p, err := ParseArchivePayload([]byte(`{
		"title":" Chilahati Station ","slug":"chilahati-station","category":"transport",
		"subType":"train","tags":"rail, history",
		"bodyContentJSON":"[{\"type\":\"paragraph\",\"content\":\"Opened 1874\",\"order\":1}]",
		"destinations":["Dhaka","Khulna"],"lat":"26.1","lng":"88.9"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Chilahati Station", p.Title)
	assert.Equal(t, []string{"rail", "history"}, p.Tags)
	require.Len(t, p.BodyContent, 1)
	assert.Equal(t, "Opened 1874", p.BodyContent[0].Text())
	assert.NotContains(t, p.Fields, "title")

	row, ok := models.LookupCategory(p.Category)
	require.True(t, ok)
	raw, err := p.AttributesJSON(row)
	require.NoError(t, err)

	attrs, err := models.DecodeAttributes(row.Key, raw)
	require.NoError(t, err)
	transport := attrs.(models.TransportAttributes)
	assert.Equal(t, "train", transport.TransportType)
	assert.Equal(t, models.StringList{"Dhaka", "Khulna"}, transport.Destinations)
	require.NotNil(t, transport.Coordinates)
	assert.InDelta(t, 26.1, transport.Coordinates.Lat, 0.0001)
}

func TestParseArchivePayloadBodyContentArray(t *testing.T) {
	p, err := ParseArchivePayload([]byte(`{"title":"x","bodyContent":[{"type":"quote","content":"q","order":3}]}`))
	require.NoError(t, err)
	require.Len(t, p.BodyContent, 1)
	assert.Equal(t, models.BlockQuote, p.BodyContent[0].Type)
}

func TestParseArchivePayloadRejectsBadBody(t *testing.T) {
	_, err := ParseArchivePayload([]byte(`{"bodyContentJSON":"not json"}`))
	assert.Error(t, err)
	_, err = ParseArchivePayload([]byte(`[]`))
	assert.Error(t, err)
	_, err = ParseArchivePayload([]byte(`{"title":5}`))
	assert.Error(t, err)
}

func TestAttributesJSONEventDateAlias(t *testing.T) {
	p, err := ParseArchivePayload([]byte(`{"category":"history","eventDate":"1971-12-16","period":"Liberation war"}`))
	require.NoError(t, err)
	row, _ := models.LookupCategory("history")
	raw, err := p.AttributesJSON(row)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.JSONEq(t, `"1971-12-16"`, string(fields["dateOfIncident"]))
	assert.NotContains(t, fields, "eventDate")
}

func TestAttributesJSONInstitutionSubType(t *testing.T) {
	p, err := ParseArchivePayload([]byte(`{"category":"institution","subType":"Banks"}`))
	require.NoError(t, err)
	row, _ := models.LookupCategory("institution")
	raw, err := p.AttributesJSON(row)
	require.NoError(t, err)
	attrs, err := models.DecodeAttributes(row.Key, raw)
	require.NoError(t, err)
	assert.Equal(t, "Banks", attrs.SubType())
}

func TestCategoryViewJSON(t *testing.T) {
	raw, err := json.Marshal(&CategoryView{Type: CategoryViewList, Category: "history", Title: "History", Items: []models.ArchiveItem{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"list","category":"history","title":"History","items":[]}`, string(raw))

	raw, err = json.Marshal(CategoryView{Type: CategoryViewSubCategories, Category: "transport", Title: "Explore Transport", SubTypes: []string{"Bus"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"sub-categories","category":"transport","title":"Explore Transport","subTypes":["Bus"]}`, string(raw))

	var decoded CategoryView
	require.NoError(t, json.Unmarshal([]byte(`{"type":"list","category":"history","title":"History","items":[]}`), &decoded))
	assert.Equal(t, CategoryViewList, decoded.Type)
	assert.NotNil(t, decoded.Items)
}
