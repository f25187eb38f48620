package models

import "strings"

// Category is the discriminator of an archive item, stored verbatim.
type Category string

// Canonical category keys.
const (
	CategoryHistory            Category = "history"
	CategoryCulture            Category = "culture"
	CategoryNotablePeople      Category = "notable people"
	CategoryFreedomFighters    Category = "freedom fighters"
	CategoryMeritoriousStudent Category = "meritorious student"
	CategoryHiddenTalent       Category = "hidden talent"
	CategoryOccupation         Category = "occupation"
	CategoryHeartbreaking      Category = "Heartbreaking stories"
	CategorySocialWorks        Category = "social works"
	CategoryInstitution        Category = "institution"
	CategoryTransport          Category = "transport"
	CategoryEmergencyServices  Category = "Emergency services"
	CategoryTouristSpots       Category = "tourist spots"
)

// Variant names a per-category attribute set.
type Variant string

// Attribute variants.
const (
	VariantHeritage         Variant = "heritage"
	VariantPerson           Variant = "person"
	VariantOccupation       Variant = "occupation"
	VariantNarrative        Variant = "narrative"
	VariantSocialWork       Variant = "social_work"
	VariantInstitution      Variant = "institution"
	VariantTransport        Variant = "transport"
	VariantEmergencyService Variant = "emergency_service"
	VariantTouristSpot      Variant = "tourist_spot"
)

// Field kinds exposed to the entry form.
const (
	FieldText        = "text"
	FieldTextarea    = "textarea"
	FieldDate        = "date"
	FieldNumber      = "number"
	FieldList        = "list"
	FieldSelect      = "select"
	FieldBoolean     = "boolean"
	FieldURL         = "url"
	FieldCoordinates = "coordinates"
)

// FieldSpec describes one attribute of a variant.
type FieldSpec struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	Options    []string `json:"options,omitempty"`
	Searchable bool     `json:"-"`
}

// CategorySpec is one row of the taxonomy.
type CategorySpec struct {
	Key           Category    `json:"key"`
	Slug          string      `json:"slug"`
	Label         string      `json:"label"`
	Variant       Variant     `json:"variant"`
	SubTypeField  string      `json:"subTypeField,omitempty"`
	SubTypeValues []string    `json:"subTypeValues,omitempty"`
	Fields        []FieldSpec `json:"fields"`
}

// Enumerations for constrained attributes.
var (
	InstitutionSubTypes   = []string{"educational", "governmental", "Banks", "Religious", "other"}
	TransportTypes        = []string{"bus", "train", "auto stand", "launch-ghat"}
	EmergencyServiceTypes = []string{"hospitals", "police", "fire"}
	OccupationStatuses    = []string{"Thriving", "Declining", "Extinct"}
)

// SubTypeFieldNames are the attribute names that may carry a sub-type.
var SubTypeFieldNames = []string{"subType", "transportType", "serviceType"}

var (
	locationFields = []FieldSpec{
		{Name: "locationLink", Label: "Map link", Kind: FieldURL},
		{Name: "coordinates", Label: "Coordinates", Kind: FieldCoordinates},
		{Name: "address", Label: "Address", Kind: FieldText, Searchable: true},
		{Name: "contactPhone", Label: "Contact phone", Kind: FieldText},
	}
	heritageFields = []FieldSpec{
		{Name: "period", Label: "Period", Kind: FieldText, Searchable: true},
		{Name: "significance", Label: "Significance", Kind: FieldTextarea, Searchable: true},
	}
	narrativeFields = []FieldSpec{
		{Name: "dateOfIncident", Label: "Date of incident", Kind: FieldDate},
		{Name: "involvedParties", Label: "Involved parties", Kind: FieldList, Searchable: true},
	}
	personFields = []FieldSpec{
		{Name: "dateOfBirth", Label: "Date of birth", Kind: FieldDate},
		{Name: "dateOfDeath", Label: "Date of death", Kind: FieldDate},
		{Name: "education", Label: "Education", Kind: FieldText, Searchable: true},
		{Name: "achievements", Label: "Achievements", Kind: FieldList, Searchable: true},
		{Name: "sectorNo", Label: "Sector no.", Kind: FieldText, Searchable: true},
		{Name: "passingYear", Label: "Passing year", Kind: FieldNumber},
		{Name: "currentStatus", Label: "Current status", Kind: FieldText, Searchable: true},
		{Name: "profession", Label: "Profession", Kind: FieldText, Searchable: true},
	}
	occupationFields = []FieldSpec{
		{Name: "traditionalName", Label: "Traditional name", Kind: FieldText, Searchable: true},
		{Name: "toolsUsed", Label: "Tools used", Kind: FieldList, Searchable: true},
		{Name: "occupationStatus", Label: "Status", Kind: FieldSelect, Options: OccupationStatuses, Searchable: true},
	}
	orgFields = []FieldSpec{
		{Name: "foundedBy", Label: "Founded by", Kind: FieldText, Searchable: true},
		{Name: "missionStatement", Label: "Mission statement", Kind: FieldTextarea, Searchable: true},
	}
	institutionFields = []FieldSpec{
		{Name: "subType", Label: "Institution type", Kind: FieldSelect, Options: InstitutionSubTypes, Searchable: true},
		{Name: "establishedDate", Label: "Established", Kind: FieldDate},
		{Name: "headOfInstitution", Label: "Head of institution", Kind: FieldText, Searchable: true},
	}
	transportFields = []FieldSpec{
		{Name: "transportType", Label: "Transport type", Kind: FieldSelect, Options: TransportTypes, Searchable: true},
		{Name: "destinations", Label: "Destinations", Kind: FieldList, Searchable: true},
	}
	emergencyFields = []FieldSpec{
		{Name: "serviceType", Label: "Service type", Kind: FieldSelect, Options: EmergencyServiceTypes, Searchable: true},
		{Name: "is24Hours", Label: "Open 24 hours", Kind: FieldBoolean},
	}
	touristFields = []FieldSpec{
		{Name: "entryFee", Label: "Entry fee", Kind: FieldText, Searchable: true},
		{Name: "bestTimeToVisit", Label: "Best time to visit", Kind: FieldText, Searchable: true},
	}
)

func fields(groups ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func categoryRow(key Category, label string, variant Variant, f []FieldSpec) CategorySpec {
	return CategorySpec{Key: key, Slug: CategorySlug(key), Label: label, Variant: variant, Fields: f}
}

func withSubType(s CategorySpec, field string, values []string) CategorySpec {
	s.SubTypeField = field
	s.SubTypeValues = values
	return s
}

// taxonomy is ordered for display.
var taxonomy = []CategorySpec{
	categoryRow(CategoryHistory, "History", VariantHeritage, fields(heritageFields, narrativeFields)),
	categoryRow(CategoryCulture, "Culture", VariantHeritage, fields(heritageFields, narrativeFields)),
	categoryRow(CategoryNotablePeople, "Notable People", VariantPerson, personFields),
	categoryRow(CategoryFreedomFighters, "Freedom Fighters", VariantPerson, personFields),
	categoryRow(CategoryMeritoriousStudent, "Meritorious Students", VariantPerson, personFields),
	categoryRow(CategoryHiddenTalent, "Hidden Talent", VariantPerson, personFields),
	categoryRow(CategoryOccupation, "Occupation", VariantOccupation, fields(heritageFields, occupationFields)),
	categoryRow(CategoryHeartbreaking, "Heartbreaking Stories", VariantNarrative, narrativeFields),
	categoryRow(CategorySocialWorks, "Social Works", VariantSocialWork, fields(locationFields, orgFields)),
	withSubType(categoryRow(CategoryInstitution, "Institutions", VariantInstitution, fields(locationFields, institutionFields)), "subType", InstitutionSubTypes),
	withSubType(categoryRow(CategoryTransport, "Transport", VariantTransport, fields(locationFields, transportFields)), "transportType", TransportTypes),
	withSubType(categoryRow(CategoryEmergencyServices, "Emergency Services", VariantEmergencyService, fields(locationFields, emergencyFields)), "serviceType", EmergencyServiceTypes),
	categoryRow(CategoryTouristSpots, "Tourist Spots", VariantTouristSpot, fields(locationFields, touristFields)),
}

var taxonomyIndex = func() map[string]int {
	idx := make(map[string]int, len(taxonomy))
	for i, s := range taxonomy {
		idx[normalizeCategoryKey(string(s.Key))] = i
	}
	return idx
}()

// Categories returns the taxonomy in display order.
func Categories() []CategorySpec {
	out := make([]CategorySpec, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// ResolveCategory maps any accepted spelling (canonical key, slug alias,
// different case) to the canonical category.
func ResolveCategory(raw string) (Category, bool) {
	i, ok := taxonomyIndex[normalizeCategoryKey(raw)]
	if !ok {
		return "", false
	}
	return taxonomy[i].Key, true
}

// LookupCategory returns the taxonomy row for a category spelling.
func LookupCategory(raw string) (CategorySpec, bool) {
	i, ok := taxonomyIndex[normalizeCategoryKey(raw)]
	if !ok {
		return CategorySpec{}, false
	}
	return taxonomy[i], true
}

// CategorySlug renders the URL form of a category key.
func CategorySlug(c Category) string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "-")
}

// DisplayCategory renders a URL category segment for titles.
func DisplayCategory(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "-", " ")
}

// SearchableAttributeFields lists every text attribute of every variant once.
func SearchableAttributeFields() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range taxonomy {
		for _, f := range s.Fields {
			if !f.Searchable {
				continue
			}
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			out = append(out, f.Name)
		}
	}
	return out
}

func normalizeCategoryKey(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", " ")
	return strings.Join(strings.Fields(value), " ")
}
