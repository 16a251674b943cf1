package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"p9e.in/siyana/models"
)

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New(`dial tcp 127.0.0.1:5432: connect: connection refused`), true},
		{"reset", errors.New("read tcp 10.0.0.2:41388->10.0.0.5:5432: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"timeout", errors.New("read tcp 10.0.0.2:41388: i/o timeout"), true},
		{"dns", errors.New("dial tcp: lookup db.internal: no such host"), true},
		{"wrapped", fmt.Errorf("failed to save report: %w", errors.New("dial tcp 10.0.0.5:5432: i/o timeout")), true},
		{"constraint violation", errors.New(`duplicate key value violates unique constraint "reports_pkey"`), false},
		{"validation", errors.New("invalid input syntax for type uuid"), false},
		{"stock", ErrInsufficientStock, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectivityError(tt.err); got != tt.want {
				t.Errorf("isConnectivityError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestShouldQueueCloseout(t *testing.T) {
	dbDown := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	rejected := errors.New(`duplicate key value violates unique constraint "reports_pkey"`)
	noStock := fmt.Errorf("part فلتر فريون: %w", ErrInsufficientStock)

	tests := []struct {
		name    string
		err     error
		offline bool
		want    bool
	}{
		{"db down online", dbDown, false, true},
		{"db down offline", dbDown, true, true},
		{"rejected write online", rejected, false, false},
		{"rejected write offline", rejected, true, true},
		// Stock shortages must surface even when the client is offline,
		// otherwise the replay would consume parts that were never there.
		{"no stock online", noStock, false, false},
		{"no stock offline", noStock, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldQueueCloseout(tt.err, tt.offline); got != tt.want {
				t.Errorf("shouldQueueCloseout(%v, offline=%v) = %v, want %v", tt.err, tt.offline, got, tt.want)
			}
		})
	}
}

func TestRawPartsUsage(t *testing.T) {
	partID := uuid.New()
	raw := rawPartsUsage([]models.PartsUsage{
		{PartID: partID, PartName: "اسم مزيف", Quantity: 3, Price: 999},
	})

	if len(raw) != 1 {
		t.Fatalf("len = %d, want 1", len(raw))
	}
	if raw[0].PartID != partID || raw[0].Quantity != 3 {
		t.Errorf("id/quantity not carried: %+v", raw[0])
	}
	// Names and prices come from inventory at replay time, never from the
	// client, so the queued entry must hold neither.
	if raw[0].PartName != "" || raw[0].Price != 0 {
		t.Errorf("client-supplied name/price kept: %+v", raw[0])
	}
}
