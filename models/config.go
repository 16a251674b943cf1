package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// FieldType is the closed set of input kinds a dynamic field can take.
// Rendering and validation both dispatch on this tag.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldImage    FieldType = "image"
	FieldGPS      FieldType = "gps"
)

// FieldTypes lists every valid tag, in declaration order.
var FieldTypes = []FieldType{FieldText, FieldTextarea, FieldNumber, FieldSelect, FieldImage, FieldGPS}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldNumber, FieldSelect, FieldImage, FieldGPS:
		return true
	}
	return false
}

// FieldSection names one of the two ordered field lists in SystemConfig.
type FieldSection string

const (
	SectionReportQuestions FieldSection = "reportQuestions" // intake wizard (branch manager)
	SectionRepairFields    FieldSection = "repairFields"    // closeout form (technician)
)

// DynamicField is a single runtime-configurable question/input definition.
// The ID is immutable once created and is never reused after deletion.
type DynamicField struct {
	ID          string    `json:"id"`
	LabelAr     string    `json:"labelAr"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"` // select only
	Placeholder string    `json:"placeholder,omitempty"`
	Step        int       `json:"step"`
	Order       int       `json:"order"`
}

// FieldPatch carries a partial update for an existing field. Nil pointers
// leave the attribute untouched. There is deliberately no ID here.
type FieldPatch struct {
	LabelAr     *string    `json:"labelAr,omitempty"`
	Type        *FieldType `json:"type,omitempty"`
	Required    *bool      `json:"required,omitempty"`
	Options     []string   `json:"options,omitempty"`
	Placeholder *string    `json:"placeholder,omitempty"`
	Step        *int       `json:"step,omitempty"`
	Order       *int       `json:"order,omitempty"`
}

// FeatureMap is the open feature-flag map. Unknown keys written by newer
// clients must survive a load/save round-trip, so this stays a plain map.
type FeatureMap map[string]bool

// Known feature names (the map accepts others too).
const (
	FeatureWhatsApp       = "enableWhatsApp"
	FeatureEvidenceBefore = "requireEvidenceBefore"
	FeatureEvidenceAfter  = "requireEvidenceAfter"
	FeatureAutoAssign     = "autoAssign"
)

// SystemConfig is the aggregate root of the dynamic form engine: the intake
// questions, the repair-closeout fields, the feature flags, and the keyword
// lists driving the priority classifier. Persisted as a single jsonb blob.
type SystemConfig struct {
	ReportQuestions  []DynamicField `json:"reportQuestions"`
	RepairFields     []DynamicField `json:"repairFields"`
	Features         FeatureMap     `json:"features"`
	CriticalKeywords []string       `json:"criticalKeywords"`
	HighKeywords     []string       `json:"highKeywords"`
}

var (
	ErrFieldExists   = errors.New("field id already exists in section")
	ErrFieldNotFound = errors.New("field not found")
	ErrBadSection    = errors.New("unknown config section")
	ErrBadIndex      = errors.New("reorder index out of range")
)

// Section returns the ordered field list for a section name.
func (c *SystemConfig) Section(section FieldSection) ([]DynamicField, error) {
	list, err := c.sectionRef(section)
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (c *SystemConfig) sectionRef(section FieldSection) (*[]DynamicField, error) {
	switch section {
	case SectionReportQuestions:
		return &c.ReportQuestions, nil
	case SectionRepairFields:
		return &c.RepairFields, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBadSection, section)
}

// AddField appends a field to a section. Fails if the id is already taken
// in that section.
func (c *SystemConfig) AddField(section FieldSection, field DynamicField) error {
	list, err := c.sectionRef(section)
	if err != nil {
		return err
	}
	if field.ID == "" {
		return errors.New("field id is required")
	}
	if !field.Type.Valid() {
		return fmt.Errorf("invalid field type %q", field.Type)
	}
	for _, f := range *list {
		if f.ID == field.ID {
			return fmt.Errorf("%w: %s", ErrFieldExists, field.ID)
		}
	}
	*list = append(*list, field)
	return nil
}

// RemoveField deletes a field by id. Deletion is idempotent: an absent id
// is a no-op, not an error.
func (c *SystemConfig) RemoveField(section FieldSection, fieldID string) error {
	list, err := c.sectionRef(section)
	if err != nil {
		return err
	}
	kept := (*list)[:0]
	for _, f := range *list {
		if f.ID != fieldID {
			kept = append(kept, f)
		}
	}
	*list = kept
	return nil
}

// UpdateField merges a partial patch into an existing field. The field id
// itself is immutable. Type changes are allowed and do not migrate values
// already stored under the old type.
func (c *SystemConfig) UpdateField(section FieldSection, fieldID string, patch FieldPatch) error {
	list, err := c.sectionRef(section)
	if err != nil {
		return err
	}
	for i := range *list {
		f := &(*list)[i]
		if f.ID != fieldID {
			continue
		}
		if patch.LabelAr != nil {
			f.LabelAr = *patch.LabelAr
		}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				return fmt.Errorf("invalid field type %q", *patch.Type)
			}
			f.Type = *patch.Type
		}
		if patch.Required != nil {
			f.Required = *patch.Required
		}
		if patch.Options != nil {
			f.Options = patch.Options
		}
		if patch.Placeholder != nil {
			f.Placeholder = *patch.Placeholder
		}
		if patch.Step != nil {
			f.Step = *patch.Step
		}
		if patch.Order != nil {
			f.Order = *patch.Order
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
}

// Reorder moves the element at fromIndex to toIndex, then rewrites every
// field's Order to its positional index + 1 so the sequence is always a
// dense 1..N with no gaps or duplicates.
func (c *SystemConfig) Reorder(section FieldSection, fromIndex, toIndex int) error {
	list, err := c.sectionRef(section)
	if err != nil {
		return err
	}
	n := len(*list)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return fmt.Errorf("%w: from=%d to=%d len=%d", ErrBadIndex, fromIndex, toIndex, n)
	}
	moved := (*list)[fromIndex]
	rest := append(append([]DynamicField{}, (*list)[:fromIndex]...), (*list)[fromIndex+1:]...)
	out := append(append(append([]DynamicField{}, rest[:toIndex]...), moved), rest[toIndex:]...)
	for i := range out {
		out[i].Order = i + 1
	}
	*list = out
	return nil
}

// ToggleFeature sets one feature flag. Unknown names are accepted and added;
// the map is open, not a fixed struct.
func (c *SystemConfig) ToggleFeature(name string, value bool) {
	if c.Features == nil {
		c.Features = FeatureMap{}
	}
	c.Features[name] = value
}

// FeatureEnabled reads a flag, defaulting absent keys to false.
func (c *SystemConfig) FeatureEnabled(name string) bool {
	return c.Features[name]
}

// FindField looks a field up by id across both sections, intake first.
func (c *SystemConfig) FindField(fieldID string) (DynamicField, bool) {
	for _, f := range c.ReportQuestions {
		if f.ID == fieldID {
			return f, true
		}
	}
	for _, f := range c.RepairFields {
		if f.ID == fieldID {
			return f, true
		}
	}
	return DynamicField{}, false
}

// DefaultSystemConfig is the seed published on first run and the last-known-
// good fallback when the persisted blob fails to parse.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Features: FeatureMap{
			FeatureWhatsApp:       true,
			FeatureEvidenceBefore: true,
			FeatureEvidenceAfter:  true,
			FeatureAutoAssign:     false,
		},
		ReportQuestions: []DynamicField{
			{
				ID:       "machineType",
				LabelAr:  "نوع الجهاز",
				Type:     FieldSelect,
				Required: true,
				Options:  []string{"ماكينة قهوة", "تكييف مركزي", "بوابة أمنية", "نظام إضاءة", "سير متحرك", "أخرى"},
				Step:     2,
				Order:    1,
			},
			{
				ID:          "serialNumber",
				LabelAr:     "الرقم التسلسلي (إن وجد)",
				Type:        FieldText,
				Required:    false,
				Placeholder: "مثال: SN-123456",
				Step:        2,
				Order:       2,
			},
			{
				ID:          "description",
				LabelAr:     "وصف المشكلة الدقيق",
				Type:        FieldTextarea,
				Required:    true,
				Placeholder: "اشرح العطل بالتفصيل...",
				Step:        2,
				Order:       3,
			},
			{
				ID:       "evidence",
				LabelAr:  "صور العطل",
				Type:     FieldImage,
				Required: true,
				Step:     3,
				Order:    4,
			},
			{
				ID:       "location",
				LabelAr:  "الموقع الجغرافي",
				Type:     FieldGPS,
				Required: true,
				Step:     3,
				Order:    5,
			},
		},
		RepairFields: []DynamicField{
			{
				ID:          "partsUsed",
				LabelAr:     "قطع الغيار المستخدمة",
				Type:        FieldTextarea,
				Required:    true,
				Placeholder: "اذكر القطع التي تم استبدالها...",
				Step:        1,
				Order:       1,
			},
			{
				ID:          "cost",
				LabelAr:     "التكلفة التقديرية (ج.م)",
				Type:        FieldNumber,
				Required:    true,
				Placeholder: "0.00",
				Step:        1,
				Order:       2,
			},
			{
				ID:       "afterPhoto",
				LabelAr:  "صورة بعد الإصلاح",
				Type:     FieldImage,
				Required: true,
				Step:     1,
				Order:    3,
			},
		},
		CriticalKeywords: []string{"حريق", "نار", "دخان", "انفجار", "كهرباء عارية", "ماس", "تسريب غاز", "خطر", "صعق", "إغماء", "شرار", "توقف كامل"},
		HighKeywords:     []string{"تكييف", "سيرفر", "ثلاجة", "تعطل", "بوابة", "مصعد", "حرارة"},
	}
}

// ConfigRecord is the singleton row the whole SystemConfig is persisted in.
// Every mutation reloads this row, applies one change, and writes the entire
// blob back (last-write-wins, no version token).
type ConfigRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	UpdatedBy string         `gorm:"size:255" json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for ConfigRecord
func (ConfigRecord) TableName() string {
	return "system_config"
}

// JSONMap is a custom type for JSONB object columns.
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface for JSONMap
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for JSONMap
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

// GormDataType defines the data type for GORM
func (JSONMap) GormDataType() string {
	return "jsonb"
}
