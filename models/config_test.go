package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func testConfig() SystemConfig {
	return SystemConfig{
		ReportQuestions: []DynamicField{
			{ID: "a", LabelAr: "أ", Type: FieldText, Order: 1},
			{ID: "b", LabelAr: "ب", Type: FieldNumber, Order: 2},
			{ID: "c", LabelAr: "ج", Type: FieldImage, Order: 3},
		},
		RepairFields: []DynamicField{
			{ID: "cost", LabelAr: "التكلفة", Type: FieldNumber, Required: true, Order: 1},
		},
		Features: FeatureMap{FeatureWhatsApp: true},
	}
}

func TestAddField(t *testing.T) {
	cfg := testConfig()

	err := cfg.AddField(SectionReportQuestions, DynamicField{ID: "d", LabelAr: "د", Type: FieldSelect, Order: 4})
	if err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if len(cfg.ReportQuestions) != 4 {
		t.Errorf("got %d fields, want 4", len(cfg.ReportQuestions))
	}

	// Duplicate id in the same section conflicts.
	err = cfg.AddField(SectionReportQuestions, DynamicField{ID: "a", Type: FieldText})
	if !errors.Is(err, ErrFieldExists) {
		t.Errorf("duplicate add error = %v, want ErrFieldExists", err)
	}

	// Same id in the other section is allowed; sections are separate
	// namespaces.
	if err := cfg.AddField(SectionRepairFields, DynamicField{ID: "a", Type: FieldText, Order: 2}); err != nil {
		t.Errorf("cross-section add: %v", err)
	}

	if err := cfg.AddField(SectionReportQuestions, DynamicField{ID: "x", Type: FieldType("video")}); err == nil {
		t.Error("unknown field type accepted")
	}
	if err := cfg.AddField("nope", DynamicField{ID: "x", Type: FieldText}); !errors.Is(err, ErrBadSection) {
		t.Errorf("bad section error = %v, want ErrBadSection", err)
	}
}

func TestRemoveFieldIsIdempotent(t *testing.T) {
	cfg := testConfig()

	if err := cfg.RemoveField(SectionReportQuestions, "b"); err != nil {
		t.Fatalf("RemoveField: %v", err)
	}
	if len(cfg.ReportQuestions) != 2 {
		t.Fatalf("got %d fields, want 2", len(cfg.ReportQuestions))
	}

	// Removing again is a no-op, not an error.
	if err := cfg.RemoveField(SectionReportQuestions, "b"); err != nil {
		t.Errorf("second remove: %v", err)
	}
	if len(cfg.ReportQuestions) != 2 {
		t.Errorf("second remove changed the list")
	}
}

func TestUpdateFieldPartialPatch(t *testing.T) {
	cfg := testConfig()

	label := "عنوان جديد"
	required := true
	err := cfg.UpdateField(SectionReportQuestions, "a", FieldPatch{LabelAr: &label, Required: &required})
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	f, ok := cfg.FindField("a")
	if !ok {
		t.Fatal("field a missing")
	}
	if f.LabelAr != label || !f.Required {
		t.Errorf("patch not applied: %+v", f)
	}
	if f.Type != FieldText || f.Order != 1 {
		t.Errorf("untouched attributes changed: %+v", f)
	}

	err = cfg.UpdateField(SectionReportQuestions, "missing", FieldPatch{LabelAr: &label})
	if !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("update missing error = %v, want ErrFieldNotFound", err)
	}

	bad := FieldType("video")
	if err := cfg.UpdateField(SectionReportQuestions, "a", FieldPatch{Type: &bad}); err == nil {
		t.Error("unknown type accepted in patch")
	}
}

func TestReorderKeepsOrdersDense(t *testing.T) {
	cfg := testConfig()

	// Move the last field to the front.
	if err := cfg.Reorder(SectionReportQuestions, 2, 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	wantIDs := []string{"c", "a", "b"}
	for i, f := range cfg.ReportQuestions {
		if f.ID != wantIDs[i] {
			t.Errorf("position %d = %q, want %q", i, f.ID, wantIDs[i])
		}
		if f.Order != i+1 {
			t.Errorf("field %q order = %d, want %d", f.ID, f.Order, i+1)
		}
	}

	if err := cfg.Reorder(SectionReportQuestions, 0, 5); !errors.Is(err, ErrBadIndex) {
		t.Errorf("out-of-range error = %v, want ErrBadIndex", err)
	}
}

func TestFeatureMapRoundTripKeepsUnknownKeys(t *testing.T) {
	cfg := testConfig()
	cfg.ToggleFeature("someFutureFlag", true)
	cfg.ToggleFeature(FeatureAutoAssign, false)

	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back SystemConfig
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !back.FeatureEnabled("someFutureFlag") {
		t.Error("unknown feature key lost in round trip")
	}
	if back.FeatureEnabled(FeatureAutoAssign) {
		t.Error("false flag flipped in round trip")
	}
	// Absent keys read as disabled.
	if back.FeatureEnabled("neverSet") {
		t.Error("absent feature key reads enabled")
	}
}

func TestDefaultSystemConfig(t *testing.T) {
	cfg := DefaultSystemConfig()

	if len(cfg.ReportQuestions) == 0 || len(cfg.RepairFields) == 0 {
		t.Fatal("default config has empty sections")
	}
	for _, section := range [][]DynamicField{cfg.ReportQuestions, cfg.RepairFields} {
		seen := map[string]bool{}
		for _, f := range section {
			if seen[f.ID] {
				t.Errorf("duplicate default field id %q", f.ID)
			}
			seen[f.ID] = true
			if !f.Type.Valid() {
				t.Errorf("default field %q has invalid type %q", f.ID, f.Type)
			}
		}
	}
	if len(cfg.CriticalKeywords) == 0 || len(cfg.HighKeywords) == 0 {
		t.Error("default keyword lists are empty")
	}
}
