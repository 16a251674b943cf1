package handlers

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"p9e.in/siyana/models"
)

func sampleTicket() *models.Report {
	return &models.Report{
		ID:          uuid.New(),
		BranchName:  "فرع العليا",
		MachineType: "تكييف مركزي",
		Priority:    models.PriorityCritical,
		Description: "حريق في لوحة الكهرباء",
	}
}

func TestWaLinkNormalizesPhone(t *testing.T) {
	msg := waLink("+966 50-000-0001", "مرحبا")
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Phone != "966500000001" {
		t.Errorf("phone = %q, want digits only", msg.Phone)
	}
	if !strings.HasPrefix(msg.URL, "https://wa.me/966500000001?text=") {
		t.Errorf("url = %q", msg.URL)
	}
}

func TestWaLinkMissingPhone(t *testing.T) {
	if msg := waLink("", "نص"); msg != nil {
		t.Errorf("expected nil for empty phone, got %+v", msg)
	}
	if msg := waLink("abc", "نص"); msg != nil {
		t.Errorf("expected nil for non-numeric phone, got %+v", msg)
	}
}

func TestNewTicketMessageEncodesArabicText(t *testing.T) {
	report := sampleTicket()
	msg := NewTicketMessage("+966500000009", report)
	if msg == nil {
		t.Fatal("expected a message")
	}
	for _, want := range []string{report.BranchName, report.MachineType, "حرج", report.ID.String()} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text missing %q:\n%s", want, msg.Text)
		}
	}

	// The URL must round-trip back to the raw text.
	u, err := url.Parse(msg.URL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if got := u.Query().Get("text"); got != msg.Text {
		t.Errorf("decoded url text = %q, want %q", got, msg.Text)
	}
}

func TestCompletionMessageCost(t *testing.T) {
	report := sampleTicket()
	msg := CompletionMessage("966500000009", report)
	if !strings.Contains(msg.Text, "التكلفة: -") {
		t.Errorf("nil cost should render as '-':\n%s", msg.Text)
	}

	cost := 350.5
	report.Cost = &cost
	msg = CompletionMessage("966500000009", report)
	if !strings.Contains(msg.Text, "350.50") {
		t.Errorf("cost not rendered:\n%s", msg.Text)
	}

	report.PartsUsage = models.PartsUsageList{{PartName: "فلتر فريون", Quantity: 2}}
	msg = CompletionMessage("966500000009", report)
	if !strings.Contains(msg.Text, "فلتر فريون × 2") {
		t.Errorf("parts summary missing:\n%s", msg.Text)
	}
}

func TestLowStockMessage(t *testing.T) {
	part := &models.SparePart{Name: "فلتر فريون", SKU: "AC-FLT-01", Quantity: 2, MinLevel: 10}
	msg := LowStockMessage("966500000008", part)
	for _, want := range []string{"AC-FLT-01", "المتبقي: 2", "الحد الأدنى: 10"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text missing %q:\n%s", want, msg.Text)
		}
	}
}
