package forms

import (
	"reflect"
	"testing"

	"p9e.in/siyana/models"
)

func sampleFields() []models.DynamicField {
	return []models.DynamicField{
		{ID: "photo", LabelAr: "صورة العطل", Type: models.FieldImage, Required: true, Order: 4},
		{ID: "machineType", LabelAr: "نوع الجهاز", Type: models.FieldSelect, Required: true, Options: []string{"تكييف", "ثلاجة"}, Order: 1},
		{ID: "description", LabelAr: "وصف العطل", Type: models.FieldTextarea, Required: true, Order: 2},
		{ID: "cost", LabelAr: "التكلفة", Type: models.FieldNumber, Order: 3},
		{ID: "location", LabelAr: "الموقع", Type: models.FieldGPS, Order: 5},
	}
}

func TestSortFieldsIsStableAndNonDestructive(t *testing.T) {
	fields := []models.DynamicField{
		{ID: "b", Order: 2},
		{ID: "a", Order: 1},
		{ID: "c", Order: 2},
	}
	sorted := SortFields(fields)

	wantIDs := []string{"a", "b", "c"}
	for i, f := range sorted {
		if f.ID != wantIDs[i] {
			t.Errorf("sorted[%d].ID = %q, want %q", i, f.ID, wantIDs[i])
		}
	}
	if fields[0].ID != "b" {
		t.Error("SortFields modified its input slice")
	}
}

func TestStepSplit(t *testing.T) {
	details := DetailFields(sampleFields())
	evidence := EvidenceFields(sampleFields())

	var detailIDs, evidenceIDs []string
	for _, f := range details {
		detailIDs = append(detailIDs, f.ID)
	}
	for _, f := range evidence {
		evidenceIDs = append(evidenceIDs, f.ID)
	}

	if want := []string{"machineType", "description", "cost"}; !reflect.DeepEqual(detailIDs, want) {
		t.Errorf("detail fields = %v, want %v", detailIDs, want)
	}
	if want := []string{"photo", "location"}; !reflect.DeepEqual(evidenceIDs, want) {
		t.Errorf("evidence fields = %v, want %v", evidenceIDs, want)
	}
}

func TestCoerceValueCoversEveryFieldType(t *testing.T) {
	samples := map[models.FieldType]interface{}{
		models.FieldText:     "نص",
		models.FieldTextarea: "نص طويل",
		models.FieldSelect:   "تكييف",
		models.FieldNumber:   float64(12.5),
		models.FieldImage:    []interface{}{"/uploads/a.jpg"},
		models.FieldGPS:      map[string]interface{}{"lat": 24.7, "lng": 46.7},
	}
	for _, ft := range models.FieldTypes {
		raw, ok := samples[ft]
		if !ok {
			t.Fatalf("no sample value for field type %q", ft)
		}
		if _, err := CoerceValue(models.DynamicField{ID: "f", Type: ft}, raw); err != nil {
			t.Errorf("CoerceValue(%q) failed: %v", ft, err)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	field := models.DynamicField{ID: "cost", LabelAr: "التكلفة", Type: models.FieldNumber}

	tests := []struct {
		name    string
		raw     interface{}
		want    *float64
		wantErr bool
	}{
		{"json number", float64(150), f64(150), false},
		{"numeric string", "99.5", f64(99.5), false},
		{"empty string is absent not zero", "", nil, false},
		{"whitespace string is absent", "  ", nil, false},
		{"nil is absent", nil, nil, false},
		{"garbage string", "abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(field, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			n := got.(*float64)
			if (n == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", n, tt.want)
			}
			if n != nil && *n != *tt.want {
				t.Errorf("got %v, want %v", *n, *tt.want)
			}
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestValidateRequired(t *testing.T) {
	fields := sampleFields()

	tests := []struct {
		name      string
		values    Values
		wantField string
	}{
		{
			"all required present",
			Values{
				"machineType": "تكييف",
				"description": "حريق في المطبخ",
				"photo":       []string{"/uploads/fire.jpg"},
			},
			"",
		},
		{
			"missing required image",
			Values{
				"machineType": "تكييف",
				"description": "حريق في المطبخ",
				"photo":       []string{},
			},
			"photo",
		},
		{
			"blank textarea does not count",
			Values{
				"machineType": "تكييف",
				"description": "   ",
				"photo":       []string{"/uploads/fire.jpg"},
			},
			"description",
		},
		{
			"optional number may be absent",
			Values{
				"machineType": "ثلاجة",
				"description": "صوت غريب",
				"photo":       []string{"/uploads/x.jpg"},
				"cost":        (*float64)(nil),
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired(fields, tt.values)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.FieldID != tt.wantField {
				t.Errorf("failing field = %q, want %q", verr.FieldID, tt.wantField)
			}
		})
	}
}

func TestRequiredGPSGating(t *testing.T) {
	fields := []models.DynamicField{
		{ID: "location", LabelAr: "الموقع", Type: models.FieldGPS, Required: true, Order: 1},
	}
	if err := ValidateRequired(fields, Values{"location": (*models.GeoPoint)(nil)}); err == nil {
		t.Error("nil coordinate passed a required gps field")
	}
	if err := ValidateRequired(fields, Values{"location": &models.GeoPoint{Lat: 24.7, Lng: 46.7}}); err != nil {
		t.Errorf("present coordinate rejected: %v", err)
	}
}

func TestBuildAnswersSnapshotsAreImmutable(t *testing.T) {
	fields := sampleFields()
	values := Values{
		"machineType": "تكييف",
		"description": "حريق في المطبخ",
		"photo":       []string{"/uploads/fire.jpg"},
	}

	answers := BuildAnswers(fields, values)

	// Answers appear in display order and skip fields with no value.
	wantIDs := []string{"machineType", "description", "photo"}
	if len(answers) != len(wantIDs) {
		t.Fatalf("got %d answers, want %d", len(answers), len(wantIDs))
	}
	for i, id := range wantIDs {
		if answers[i].FieldID != id {
			t.Errorf("answers[%d].FieldID = %q, want %q", i, answers[i].FieldID, id)
		}
	}

	// An admin renaming the field afterwards must not rewrite history.
	for i := range fields {
		fields[i].LabelAr = "تم التعديل"
	}
	if answers[0].LabelAr != "نوع الجهاز" {
		t.Errorf("snapshot label changed to %q after config edit", answers[0].LabelAr)
	}
}

func TestFreeTextJoinsTextualValuesInOrder(t *testing.T) {
	got := FreeText(sampleFields(), Values{
		"description": "حريق في المطبخ",
		"machineType": "تكييف",
		"photo":       []string{"/uploads/fire.jpg"},
	})
	if want := "تكييف حريق في المطبخ"; got != want {
		t.Errorf("FreeText = %q, want %q", got, want)
	}
}

func TestImagesAndLocationExtraction(t *testing.T) {
	values := Values{
		"photo":    []string{"/uploads/a.jpg", "/uploads/b.jpg"},
		"location": &models.GeoPoint{Lat: 21.5, Lng: 39.2},
	}
	imgs := Images(sampleFields(), values)
	if want := []string{"/uploads/a.jpg", "/uploads/b.jpg"}; !reflect.DeepEqual(imgs, want) {
		t.Errorf("Images = %v, want %v", imgs, want)
	}
	loc := Location(sampleFields(), values)
	if loc == nil || loc.Lat != 21.5 {
		t.Errorf("Location = %+v, want lat 21.5", loc)
	}
}

func TestCoerceValuesKeepsOrphanKeys(t *testing.T) {
	fields := sampleFields()
	values, err := CoerceValues(fields, Values{
		"machineType": "ثلاجة",
		"deletedField": "قيمة قديمة",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values["deletedField"] != "قيمة قديمة" {
		t.Error("value for a deleted field was dropped during coercion")
	}
}
