// Package forms interprets the runtime field definitions in SystemConfig:
// ordering, value coercion, required-field gating and answer snapshots.
// Everything here is pure so the intake and closeout flows share one
// implementation.
package forms

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"p9e.in/siyana/models"
)

// Values is the raw id→value map as decoded from a request body.
type Values map[string]interface{}

// ValidationError reports the first field that failed required/format
// checks, carrying the Arabic label for the client-facing message.
type ValidationError struct {
	FieldID string
	LabelAr string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s (%s): %s", e.FieldID, e.LabelAr, e.Reason)
}

// SortFields returns the fields sorted ascending by Order. Equal orders keep
// their relative position so an admin half-way through a reorder still gets
// a deterministic layout. The input slice is not modified.
func SortFields(fields []models.DynamicField) []models.DynamicField {
	out := make([]models.DynamicField, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// DetailFields returns the sorted scalar inputs (text, textarea, number,
// select) shown on the details step of the wizard.
func DetailFields(fields []models.DynamicField) []models.DynamicField {
	return filterSorted(fields, func(t models.FieldType) bool {
		return t != models.FieldImage && t != models.FieldGPS
	})
}

// EvidenceFields returns the sorted image and gps inputs shown on the
// evidence step.
func EvidenceFields(fields []models.DynamicField) []models.DynamicField {
	return filterSorted(fields, func(t models.FieldType) bool {
		return t == models.FieldImage || t == models.FieldGPS
	})
}

func filterSorted(fields []models.DynamicField, keep func(models.FieldType) bool) []models.DynamicField {
	out := make([]models.DynamicField, 0, len(fields))
	for _, f := range SortFields(fields) {
		if keep(f.Type) {
			out = append(out, f)
		}
	}
	return out
}

// CoerceValue normalizes a raw decoded value to the canonical Go shape for
// the field's type:
//
//	text/textarea/select → string
//	number               → *float64 (nil for empty input)
//	image                → []string of uploaded paths
//	gps                  → *models.GeoPoint
//
// A nil raw value always coerces to the type's empty value.
func CoerceValue(field models.DynamicField, raw interface{}) (interface{}, error) {
	switch field.Type {
	case models.FieldText, models.FieldTextarea, models.FieldSelect:
		if raw == nil {
			return "", nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "expected a string value"}
		}
		return s, nil

	case models.FieldNumber:
		return coerceNumber(field, raw)

	case models.FieldImage:
		if raw == nil {
			return []string{}, nil
		}
		switch v := raw.(type) {
		case []string:
			return v, nil
		case []interface{}:
			paths := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "expected a list of image paths"}
				}
				paths = append(paths, s)
			}
			return paths, nil
		}
		return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "expected a list of image paths"}

	case models.FieldGPS:
		if raw == nil {
			return (*models.GeoPoint)(nil), nil
		}
		if p, ok := raw.(*models.GeoPoint); ok {
			return p, nil
		}
		if p, ok := raw.(models.GeoPoint); ok {
			return &p, nil
		}
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "expected a coordinate object"}
		}
		buf, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		var point models.GeoPoint
		if err := json.Unmarshal(buf, &point); err != nil {
			return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "expected a coordinate object"}
		}
		return &point, nil
	}
	return nil, fmt.Errorf("unknown field type %q", field.Type)
}

// Empty numeric input maps to nil, not zero: a report without a cost must
// not read as a zero-cost repair.
func coerceNumber(field models.DynamicField, raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return (*float64)(nil), nil
	case float64:
		return &v, nil
	case float32:
		f := float64(v)
		return &f, nil
	case int:
		f := float64(v)
		return &f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "not a valid number"}
		}
		return &f, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return (*float64)(nil), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "not a valid number"}
		}
		return &f, nil
	case *float64:
		return v, nil
	}
	return nil, &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "not a valid number"}
}

// CoerceValues coerces every value present in raw against its field
// definition. Keys without a matching field pass through untouched so
// answers captured under an older schema survive an admin deleting the
// field afterwards.
func CoerceValues(fields []models.DynamicField, raw Values) (Values, error) {
	byID := make(map[string]models.DynamicField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	out := make(Values, len(raw))
	for id, v := range raw {
		field, ok := byID[id]
		if !ok {
			out[id] = v
			continue
		}
		coerced, err := CoerceValue(field, v)
		if err != nil {
			return nil, err
		}
		out[id] = coerced
	}
	return out, nil
}

// Filled reports whether a coerced value satisfies a required field:
// non-blank string, non-nil number, at least one image, a present
// coordinate. Optional fields are always satisfied.
func Filled(field models.DynamicField, value interface{}) bool {
	switch field.Type {
	case models.FieldText, models.FieldTextarea, models.FieldSelect:
		s, _ := value.(string)
		return strings.TrimSpace(s) != ""
	case models.FieldNumber:
		n, ok := value.(*float64)
		return ok && n != nil
	case models.FieldImage:
		paths, _ := value.([]string)
		return len(paths) > 0
	case models.FieldGPS:
		p, ok := value.(*models.GeoPoint)
		return ok && p != nil
	}
	return value != nil
}

// ValidateRequired checks every required field in the list against the
// coerced value map and returns a *ValidationError for the first gap, in
// display order.
func ValidateRequired(fields []models.DynamicField, values Values) error {
	for _, field := range SortFields(fields) {
		if !field.Required {
			continue
		}
		if !Filled(field, values[field.ID]) {
			return &ValidationError{FieldID: field.ID, LabelAr: field.LabelAr, Reason: "required"}
		}
	}
	return nil
}

// BuildAnswers freezes the current field definitions and coerced values
// into an ordered snapshot list. Fields with no value at all are skipped;
// the snapshot is immutable with respect to later config edits because it
// copies label and type by value.
func BuildAnswers(fields []models.DynamicField, values Values) models.ReportAnswerList {
	answers := make(models.ReportAnswerList, 0, len(fields))
	for _, field := range SortFields(fields) {
		value, ok := values[field.ID]
		if !ok {
			continue
		}
		answers = append(answers, models.ReportAnswer{
			FieldID: field.ID,
			LabelAr: field.LabelAr,
			Value:   value,
			Type:    field.Type,
		})
	}
	return answers
}

// FreeText joins every textual value in display order into one string for
// the keyword classifier. Select values count: a picked option like
// "تكييف" is exactly the kind of signal the keywords target.
func FreeText(fields []models.DynamicField, values Values) string {
	var parts []string
	for _, field := range SortFields(fields) {
		switch field.Type {
		case models.FieldText, models.FieldTextarea, models.FieldSelect:
			if s, _ := values[field.ID].(string); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// Images collects every uploaded path across the image fields, in display
// order.
func Images(fields []models.DynamicField, values Values) []string {
	var out []string
	for _, field := range SortFields(fields) {
		if field.Type != models.FieldImage {
			continue
		}
		if paths, ok := values[field.ID].([]string); ok {
			out = append(out, paths...)
		}
	}
	return out
}

// Location returns the first captured coordinate across the gps fields,
// or nil when none was captured.
func Location(fields []models.DynamicField, values Values) *models.GeoPoint {
	for _, field := range SortFields(fields) {
		if field.Type != models.FieldGPS {
			continue
		}
		if p, ok := values[field.ID].(*models.GeoPoint); ok && p != nil {
			return p
		}
	}
	return nil
}

// StringValue returns the coerced string stored under id, or "".
func StringValue(values Values, id string) string {
	s, _ := values[id].(string)
	return s
}

// NumberValue returns the coerced number stored under id, or nil.
func NumberValue(values Values, id string) *float64 {
	n, _ := values[id].(*float64)
	return n
}
