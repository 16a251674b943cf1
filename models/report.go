package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReportStatus is the ticket lifecycle state.
type ReportStatus string

const (
	StatusNew          ReportStatus = "NEW"
	StatusAssigned     ReportStatus = "ASSIGNED"
	StatusInProgress   ReportStatus = "IN_PROGRESS"
	StatusPendingParts ReportStatus = "PENDING_PARTS"
	StatusCompleted    ReportStatus = "COMPLETED"
	StatusClosed       ReportStatus = "CLOSED"
)

// reportTransitions is the normal-flow transition table. The reality edit
// bypasses it entirely and is logged as a forced edit instead.
var reportTransitions = map[ReportStatus][]ReportStatus{
	StatusNew:          {StatusAssigned, StatusInProgress},
	StatusAssigned:     {StatusInProgress},
	StatusInProgress:   {StatusPendingParts, StatusCompleted},
	StatusPendingParts: {StatusInProgress, StatusCompleted},
	StatusCompleted:    {StatusClosed},
	StatusClosed:       {},
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	_, ok := reportTransitions[s]
	return ok
}

// CanTransition reports whether the normal-flow state machine allows s → to.
func (s ReportStatus) CanTransition(to ReportStatus) bool {
	for _, next := range reportTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no normal-flow transition leaves s.
func (s ReportStatus) Terminal() bool {
	return len(reportTransitions[s]) == 0
}

// ReportPriority is the ticket escalation level. LOW is only ever set
// manually; the classifier assigns NORMAL, HIGH or CRITICAL.
type ReportPriority string

const (
	PriorityLow      ReportPriority = "LOW"
	PriorityNormal   ReportPriority = "NORMAL"
	PriorityHigh     ReportPriority = "HIGH"
	PriorityCritical ReportPriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p ReportPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ReportAnswer is one frozen snapshot of a dynamic field's label, type and
// value, taken at submission time. Later schema edits never touch it.
type ReportAnswer struct {
	FieldID string      `json:"fieldId"`
	LabelAr string      `json:"labelAr"`
	Value   interface{} `json:"value"`
	Type    FieldType   `json:"type"`
}

// ReportAnswerList is an ordered jsonb list of answer snapshots.
type ReportAnswerList []ReportAnswer

// Scan implements the sql.Scanner interface for ReportAnswerList
func (l *ReportAnswerList) Scan(value interface{}) error {
	if value == nil {
		*l = ReportAnswerList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		*l = ReportAnswerList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for ReportAnswerList
func (l ReportAnswerList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]ReportAnswer{})
	}
	return json.Marshal(l)
}

// GormDataType defines the data type for GORM
func (ReportAnswerList) GormDataType() string {
	return "jsonb"
}

// Log entry kinds.
const (
	LogStatusChange = "STATUS_CHANGE"
	LogComment      = "COMMENT"
	LogSystem       = "SYSTEM"
	LogForcedEdit   = "FORCED_EDIT" // reality edit, outside the state machine
)

// ReportLog is one append-only audit trail entry.
type ReportLog struct {
	ID       string   `json:"id"`
	Date     JSONTime `json:"date"`
	Text     string   `json:"text"`
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Type     string   `json:"type"`
}

// ReportLogList is the jsonb audit trail. Entries are only ever appended.
type ReportLogList []ReportLog

// Scan implements the sql.Scanner interface for ReportLogList
func (l *ReportLogList) Scan(value interface{}) error {
	if value == nil {
		*l = ReportLogList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		*l = ReportLogList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for ReportLogList
func (l ReportLogList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]ReportLog{})
	}
	return json.Marshal(l)
}

// GormDataType defines the data type for GORM
func (ReportLogList) GormDataType() string {
	return "jsonb"
}

// GeoPoint is a single captured coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Scan implements the sql.Scanner interface for GeoPoint
func (g *GeoPoint) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, g)
}

// Value implements the driver.Valuer interface for GeoPoint
func (g GeoPoint) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// GormDataType defines the data type for GORM
func (GeoPoint) GormDataType() string {
	return "jsonb"
}

// PartsUsage records one spare part consumed during closeout.
type PartsUsage struct {
	PartID   uuid.UUID `json:"partId"`
	PartName string    `json:"partName"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

// PartsUsageList is the jsonb list of consumed parts.
type PartsUsageList []PartsUsage

// Scan implements the sql.Scanner interface for PartsUsageList
func (l *PartsUsageList) Scan(value interface{}) error {
	if value == nil {
		*l = PartsUsageList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		*l = PartsUsageList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for PartsUsageList
func (l PartsUsageList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]PartsUsage{})
	}
	return json.Marshal(l)
}

// GormDataType defines the data type for GORM
func (PartsUsageList) GormDataType() string {
	return "jsonb"
}

// Report is one maintenance ticket.
//
// DynamicAnswers holds the frozen snapshots (intake at creation, repair
// fields appended at closeout); DynamicData mirrors the same values as a
// raw id→value map for programmatic access. The two must stay consistent
// after every mutation.
type Report struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BranchID  uuid.UUID `gorm:"type:uuid;index;not null" json:"branchId"`
	Branch    *Branch   `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	BranchName string   `gorm:"size:255;not null" json:"branchName"`

	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"createdByUserId"`
	CreatedByName   string    `gorm:"size:255;not null" json:"createdByName"`

	AssignedTechnicianID   *uuid.UUID `gorm:"type:uuid;index" json:"assignedTechnicianId,omitempty"`
	AssignedTechnicianName string     `gorm:"size:255" json:"assignedTechnicianName,omitempty"`

	Status      ReportStatus   `gorm:"size:20;not null;index" json:"status"`
	Priority    ReportPriority `gorm:"size:20;not null;index" json:"priority"`
	MachineType string         `gorm:"size:255" json:"machineType"`
	Description string         `gorm:"type:text" json:"description"`

	DynamicAnswers ReportAnswerList `gorm:"type:jsonb;default:'[]'" json:"dynamicAnswers"`
	DynamicData    JSONMap          `gorm:"type:jsonb;default:'{}'" json:"dynamicData"`

	ImagesBefore pq.StringArray `gorm:"type:text[]" json:"imagesBefore"`
	ImagesAfter  pq.StringArray `gorm:"type:text[]" json:"imagesAfter"`

	LocationCoords *GeoPoint `gorm:"type:jsonb" json:"locationCoords,omitempty"`

	Cost       *float64       `json:"cost,omitempty"`
	PartsUsage PartsUsageList `gorm:"type:jsonb;default:'[]'" json:"partsUsageList"`
	AdminNotes string         `gorm:"type:text" json:"adminNotes,omitempty"`

	Logs ReportLogList `gorm:"type:jsonb;default:'[]'" json:"logs"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "reports"
}

// AppendLog adds one audit entry. The trail is append-only by contract.
func (r *Report) AppendLog(logType, text, userID, userName string) {
	r.Logs = append(r.Logs, ReportLog{
		ID:       uuid.NewString(),
		Date:     JSONTime(time.Now()),
		Text:     text,
		UserID:   userID,
		UserName: userName,
		Type:     logType,
	})
}

// MergeDynamicData writes the closeout value map over the intake map.
// Repair keys overwrite intake keys sharing the same id; the two section
// namespaces are disjoint by convention, not enforced.
func (r *Report) MergeDynamicData(values map[string]interface{}) {
	if r.DynamicData == nil {
		r.DynamicData = JSONMap{}
	}
	for k, v := range values {
		r.DynamicData[k] = v
	}
}
