package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", dateLayout}

// FlexibleDate accepts a date-only or RFC3339 string and renders date-only.
type FlexibleDate struct {
	time.Time
}

// ParseFlexibleDate parses the accepted date spellings. Empty input yields nil.
func ParseFlexibleDate(raw string) (*FlexibleDate, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &FlexibleDate{Time: t.UTC()}, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (d FlexibleDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateLayout))
}

// UnmarshalJSON accepts a string date or null.
func (d *FlexibleDate) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseFlexibleDate(raw)
	if err != nil {
		return err
	}
	if parsed != nil {
		d.Time = parsed.Time
	}
	return nil
}

// StringList accepts a JSON array or a comma/newline separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*l = nil
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = cleanList(items)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("list must be an array or a string: %w", err)
	}
	*l = cleanList(strings.FieldsFunc(joined, func(r rune) bool { return r == ',' || r == '\n' }))
	return nil
}

func cleanList(items []string) StringList {
	out := make(StringList, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FlexibleInt accepts a number or a numeric string.
type FlexibleInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexibleInt) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		*n = FlexibleInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	*n = FlexibleInt(int(f))
	return nil
}

// FlexibleBool accepts a boolean or its common form spellings.
type FlexibleBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexibleBool) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexibleBool(v)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid boolean: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "yes", "1":
		*b = true
	case "false", "off", "no", "0", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", raw)
	}
	return nil
}

func isNull(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
