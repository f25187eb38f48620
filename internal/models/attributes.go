package models

import (
	"encoding/json"
	"fmt"
)

// Attributes is the closed set of per-category field sets. Only the types in
// this file implement it.
type Attributes interface {
	Variant() Variant
	// SubType returns the value of the sub-type field, if the variant has one.
	SubType() string
	// EnumViolations lists constrained fields holding a value outside their enum.
	EnumViolations() []string
	sealed()
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is shared by place-like variants.
type Location struct {
	LocationLink string       `json:"locationLink,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Address      string       `json:"address,omitempty"`
	ContactPhone string       `json:"contactPhone,omitempty"`
}

// HeritageAttributes covers history and culture.
type HeritageAttributes struct {
	Period          string        `json:"period,omitempty"`
	Significance    string        `json:"significance,omitempty"`
	DateOfIncident  *FlexibleDate `json:"dateOfIncident,omitempty"`
	InvolvedParties StringList    `json:"involvedParties,omitempty"`
}

// PersonAttributes covers the people categories.
type PersonAttributes struct {
	DateOfBirth   *FlexibleDate `json:"dateOfBirth,omitempty"`
	DateOfDeath   *FlexibleDate `json:"dateOfDeath,omitempty"`
	Education     string        `json:"education,omitempty"`
	Achievements  StringList    `json:"achievements,omitempty"`
	SectorNo      string        `json:"sectorNo,omitempty"`
	PassingYear   *FlexibleInt  `json:"passingYear,omitempty"`
	CurrentStatus string        `json:"currentStatus,omitempty"`
	Profession    string        `json:"profession,omitempty"`
}

// OccupationAttributes describes a trade or craft.
type OccupationAttributes struct {
	Period           string     `json:"period,omitempty"`
	Significance     string     `json:"significance,omitempty"`
	TraditionalName  string     `json:"traditionalName,omitempty"`
	ToolsUsed        StringList `json:"toolsUsed,omitempty"`
	OccupationStatus string     `json:"occupationStatus,omitempty"`
}

// NarrativeAttributes covers heartbreaking stories.
type NarrativeAttributes struct {
	DateOfIncident  *FlexibleDate `json:"dateOfIncident,omitempty"`
	InvolvedParties StringList    `json:"involvedParties,omitempty"`
}

// SocialWorkAttributes describes a social organisation.
type SocialWorkAttributes struct {
	Location
	FoundedBy        string `json:"foundedBy,omitempty"`
	MissionStatement string `json:"missionStatement,omitempty"`
}

// InstitutionAttributes describes an institution.
type InstitutionAttributes struct {
	Location
	Kind              string        `json:"subType,omitempty"`
	EstablishedDate   *FlexibleDate `json:"establishedDate,omitempty"`
	HeadOfInstitution string        `json:"headOfInstitution,omitempty"`
}

// TransportAttributes describes a transport hub.
type TransportAttributes struct {
	Location
	TransportType string     `json:"transportType,omitempty"`
	Destinations  StringList `json:"destinations,omitempty"`
}

// EmergencyServiceAttributes describes an emergency service.
type EmergencyServiceAttributes struct {
	Location
	ServiceType string        `json:"serviceType,omitempty"`
	Is24Hours   *FlexibleBool `json:"is24Hours,omitempty"`
}

// TouristSpotAttributes describes a place to visit.
type TouristSpotAttributes struct {
	Location
	EntryFee        string `json:"entryFee,omitempty"`
	BestTimeToVisit string `json:"bestTimeToVisit,omitempty"`
}

func (HeritageAttributes) Variant() Variant         { return VariantHeritage }
func (PersonAttributes) Variant() Variant           { return VariantPerson }
func (OccupationAttributes) Variant() Variant       { return VariantOccupation }
func (NarrativeAttributes) Variant() Variant        { return VariantNarrative }
func (SocialWorkAttributes) Variant() Variant       { return VariantSocialWork }
func (InstitutionAttributes) Variant() Variant      { return VariantInstitution }
func (TransportAttributes) Variant() Variant        { return VariantTransport }
func (EmergencyServiceAttributes) Variant() Variant { return VariantEmergencyService }
func (TouristSpotAttributes) Variant() Variant      { return VariantTouristSpot }

func (HeritageAttributes) SubType() string           { return "" }
func (PersonAttributes) SubType() string             { return "" }
func (OccupationAttributes) SubType() string         { return "" }
func (NarrativeAttributes) SubType() string          { return "" }
func (SocialWorkAttributes) SubType() string         { return "" }
func (a InstitutionAttributes) SubType() string      { return a.Kind }
func (a TransportAttributes) SubType() string        { return a.TransportType }
func (a EmergencyServiceAttributes) SubType() string { return a.ServiceType }
func (TouristSpotAttributes) SubType() string        { return "" }

func (HeritageAttributes) EnumViolations() []string    { return nil }
func (PersonAttributes) EnumViolations() []string      { return nil }
func (NarrativeAttributes) EnumViolations() []string   { return nil }
func (SocialWorkAttributes) EnumViolations() []string  { return nil }
func (TouristSpotAttributes) EnumViolations() []string { return nil }

func (a OccupationAttributes) EnumViolations() []string {
	return enumViolation("occupationStatus", a.OccupationStatus, OccupationStatuses)
}

func (a InstitutionAttributes) EnumViolations() []string {
	return enumViolation("subType", a.Kind, InstitutionSubTypes)
}

func (a TransportAttributes) EnumViolations() []string {
	return enumViolation("transportType", a.TransportType, TransportTypes)
}

func (a EmergencyServiceAttributes) EnumViolations() []string {
	return enumViolation("serviceType", a.ServiceType, EmergencyServiceTypes)
}

func (HeritageAttributes) sealed()         {}
func (PersonAttributes) sealed()           {}
func (OccupationAttributes) sealed()       {}
func (NarrativeAttributes) sealed()        {}
func (SocialWorkAttributes) sealed()       {}
func (InstitutionAttributes) sealed()      {}
func (TransportAttributes) sealed()        {}
func (EmergencyServiceAttributes) sealed() {}
func (TouristSpotAttributes) sealed()      {}

func enumViolation(field, value string, allowed []string) []string {
	if value == "" {
		return nil
	}
	for _, v := range allowed {
		if v == value {
			return nil
		}
	}
	return []string{fmt.Sprintf("%s must be one of %v", field, allowed)}
}

// NewAttributes returns the zero attribute set for a category.
func NewAttributes(category Category) (Attributes, error) {
	s, ok := LookupCategory(string(category))
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	switch s.Variant {
	case VariantHeritage:
		return HeritageAttributes{}, nil
	case VariantPerson:
		return PersonAttributes{}, nil
	case VariantOccupation:
		return OccupationAttributes{}, nil
	case VariantNarrative:
		return NarrativeAttributes{}, nil
	case VariantSocialWork:
		return SocialWorkAttributes{}, nil
	case VariantInstitution:
		return InstitutionAttributes{}, nil
	case VariantTransport:
		return TransportAttributes{}, nil
	case VariantEmergencyService:
		return defaultEmergency(EmergencyServiceAttributes{}), nil
	case VariantTouristSpot:
		return TouristSpotAttributes{}, nil
	}
	return nil, fmt.Errorf("category %q has no attribute set", category)
}

// DecodeAttributes reads the variant of category from a JSON object. Keys
// belonging to other variants are dropped.
func DecodeAttributes(category Category, raw []byte) (Attributes, error) {
	s, ok := LookupCategory(string(category))
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if isNull(raw) {
		return NewAttributes(s.Key)
	}
	var (
		out Attributes
		err error
	)
	switch s.Variant {
	case VariantHeritage:
		var a HeritageAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantPerson:
		var a PersonAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantOccupation:
		var a OccupationAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantNarrative:
		var a NarrativeAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantSocialWork:
		var a SocialWorkAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantInstitution:
		var a InstitutionAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantTransport:
		var a TransportAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	case VariantEmergencyService:
		var a EmergencyServiceAttributes
		err = json.Unmarshal(raw, &a)
		out = defaultEmergency(a)
	case VariantTouristSpot:
		var a TouristSpotAttributes
		err = json.Unmarshal(raw, &a)
		out = a
	default:
		return nil, fmt.Errorf("category %q has no attribute set", category)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", s.Variant, err)
	}
	return out, nil
}

func defaultEmergency(a EmergencyServiceAttributes) EmergencyServiceAttributes {
	if a.Is24Hours == nil {
		open := FlexibleBool(true)
		a.Is24Hours = &open
	}
	return a
}

// AttributeMap flattens attributes into their JSON field map.
func AttributeMap(a Attributes) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if a == nil {
		return out, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
