package models

import (
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		want     bool
	}{
		{StatusNew, StatusAssigned, true},
		{StatusNew, StatusInProgress, true}, // technician self-starts an unassigned ticket
		{StatusNew, StatusCompleted, false},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusNew, false},
		{StatusInProgress, StatusPendingParts, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusPendingParts, StatusInProgress, true},
		{StatusPendingParts, StatusCompleted, true},
		{StatusCompleted, StatusClosed, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusClosed, StatusNew, false},
		{StatusClosed, StatusClosed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s → %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatus(t *testing.T) {
	for _, s := range []ReportStatus{StatusNew, StatusAssigned, StatusInProgress, StatusPendingParts, StatusCompleted} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !StatusClosed.Terminal() {
		t.Error("CLOSED should be terminal")
	}
}

func TestStatusValid(t *testing.T) {
	if ReportStatus("ARCHIVED").Valid() {
		t.Error("unknown status passed Valid")
	}
	if !StatusPendingParts.Valid() {
		t.Error("PENDING_PARTS failed Valid")
	}
}

func TestAppendLogIsAppendOnly(t *testing.T) {
	var r Report
	r.AppendLog(LogSystem, "تم إنشاء البلاغ", "u1", "مدير الفرع")
	r.AppendLog(LogComment, "تعليق", "u2", "الفني")

	if len(r.Logs) != 2 {
		t.Fatalf("got %d log entries, want 2", len(r.Logs))
	}
	if r.Logs[0].Type != LogSystem || r.Logs[1].Type != LogComment {
		t.Errorf("log order broken: %+v", r.Logs)
	}
	if r.Logs[0].ID == r.Logs[1].ID {
		t.Error("log entries share an id")
	}
	if r.Logs[1].UserName != "الفني" {
		t.Errorf("user name = %q", r.Logs[1].UserName)
	}
}

func TestMergeDynamicData(t *testing.T) {
	r := Report{DynamicData: JSONMap{"machineType": "تكييف", "description": "عطل"}}

	r.MergeDynamicData(map[string]interface{}{
		"cost":        150.0,
		"description": "عطل - تم الإصلاح",
	})

	if r.DynamicData["machineType"] != "تكييف" {
		t.Error("intake key dropped during merge")
	}
	if r.DynamicData["cost"] != 150.0 {
		t.Error("closeout key missing after merge")
	}
	if r.DynamicData["description"] != "عطل - تم الإصلاح" {
		t.Error("closeout value did not overwrite intake value")
	}

	// Merging into a nil map must not panic.
	var empty Report
	empty.MergeDynamicData(map[string]interface{}{"k": "v"})
	if empty.DynamicData["k"] != "v" {
		t.Error("merge into nil map lost the value")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []ReportPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical} {
		if !p.Valid() {
			t.Errorf("%s failed Valid", p)
		}
	}
	if ReportPriority("URGENT").Valid() {
		t.Error("unknown priority passed Valid")
	}
}
