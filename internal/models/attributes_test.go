package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributesDropsForeignFields(t *testing.T) {
	raw := []byte(`{"profession":"Teacher","transportType":"bus","entryFee":"10","achievements":"Gold medal, Scholarship"}`)

	attrs, err := DecodeAttributes(CategoryNotablePeople, raw)
	require.NoError(t, err)
	person, ok := attrs.(PersonAttributes)
	require.True(t, ok)
	assert.Equal(t, "Teacher", person.Profession)
	assert.Equal(t, StringList{"Gold medal", "Scholarship"}, person.Achievements)

	fields, err := AttributeMap(attrs)
	require.NoError(t, err)
	assert.NotContains(t, fields, "transportType")
	assert.NotContains(t, fields, "entryFee")
}

func TestEveryCategoryPersistsItsVariant(t *testing.T) {
	for _, c := range Categories() {
		attrs, err := DecodeAttributes(c.Key, []byte(`{}`))
		require.NoError(t, err, c.Key)
		assert.Equal(t, c.Variant, attrs.Variant(), c.Key)
	}
}

func TestDecodeAttributesEmergencyDefaults24Hours(t *testing.T) {
	attrs, err := DecodeAttributes(CategoryEmergencyServices, []byte(`{"serviceType":"police"}`))
	require.NoError(t, err)
	svc := attrs.(EmergencyServiceAttributes)
	require.NotNil(t, svc.Is24Hours)
	assert.True(t, bool(*svc.Is24Hours))
	assert.Equal(t, "police", svc.SubType())

	attrs, err = DecodeAttributes(CategoryEmergencyServices, []byte(`{"is24Hours":"false"}`))
	require.NoError(t, err)
	assert.False(t, bool(*attrs.(EmergencyServiceAttributes).Is24Hours))
}

func TestEnumViolations(t *testing.T) {
	assert.Empty(t, TransportAttributes{TransportType: "train"}.EnumViolations())
	assert.NotEmpty(t, TransportAttributes{TransportType: "tram"}.EnumViolations())
	assert.NotEmpty(t, OccupationAttributes{OccupationStatus: "Booming"}.EnumViolations())
	assert.Empty(t, InstitutionAttributes{}.EnumViolations())
}

func TestFlexibleTypes(t *testing.T) {
	var person PersonAttributes
	require.NoError(t, json.Unmarshal([]byte(`{"passingYear":"2019","dateOfBirth":"1950-03-26T00:00:00Z"}`), &person))
	require.NotNil(t, person.PassingYear)
	assert.Equal(t, FlexibleInt(2019), *person.PassingYear)
	out, err := json.Marshal(person)
	require.NoError(t, err)
	assert.JSONEq(t, `{"passingYear":2019,"dateOfBirth":"1950-03-26"}`, string(out))

	var bad PersonAttributes
	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":"yesterday"}`), &bad))
}

func TestDecodeAttributesUnknownCategory(t *testing.T) {
	_, err := DecodeAttributes(Category("sports"), []byte(`{}`))
	assert.Error(t, err)
}
