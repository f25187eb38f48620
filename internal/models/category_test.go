package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCategory(t *testing.T) {
	cases := map[string]Category{
		"history":               CategoryHistory,
		"notable-people":        CategoryNotablePeople,
		"Notable People":        CategoryNotablePeople,
		"emergency-services":    CategoryEmergencyServices,
		"emergency services":    CategoryEmergencyServices,
		"Heartbreaking stories": CategoryHeartbreaking,
		"heartbreaking-stories": CategoryHeartbreaking,
		"  tourist-spots ":      CategoryTouristSpots,
	}
	for in, want := range cases {
		got, ok := ResolveCategory(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ResolveCategory("sports")
	assert.False(t, ok)
	_, ok = ResolveCategory("")
	assert.False(t, ok)
}

func TestCategoriesCoverThirteenKeys(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 13)

	withSubTypes := 0
	for _, c := range cats {
		assert.NotEmpty(t, c.Fields, c.Key)
		assert.Equal(t, CategorySlug(c.Key), c.Slug)
		if c.SubTypeField != "" {
			withSubTypes++
		}
	}
	assert.Equal(t, 3, withSubTypes)
}

func TestLookupCategorySubTypeField(t *testing.T) {
	s, ok := LookupCategory("transport")
	require.True(t, ok)
	assert.Equal(t, "transportType", s.SubTypeField)
	assert.Equal(t, TransportTypes, s.SubTypeValues)

	s, ok = LookupCategory("history")
	require.True(t, ok)
	assert.Empty(t, s.SubTypeField)
}

func TestSearchableAttributeFields(t *testing.T) {
	got := SearchableAttributeFields()
	for _, name := range []string{"profession", "address", "involvedParties", "toolsUsed", "transportType", "serviceType", "subType", "bestTimeToVisit", "occupationStatus"} {
		assert.Contains(t, got, name)
	}
	assert.NotContains(t, got, "coordinates")
	assert.NotContains(t, got, "dateOfBirth")

	seen := map[string]bool{}
	for _, f := range got {
		assert.False(t, seen[f], "duplicate %s", f)
		seen[f] = true
	}
}

func TestDisplayCategory(t *testing.T) {
	assert.Equal(t, "tourist spots", DisplayCategory("tourist-spots"))
	assert.Equal(t, "notable-people", CategorySlug(CategoryNotablePeople))
}
