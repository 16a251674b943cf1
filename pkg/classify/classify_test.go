package classify

import (
	"testing"

	"p9e.in/siyana/models"
)

func testClassifier() Classifier {
	cfg := models.DefaultSystemConfig()
	return FromConfig(&cfg)
}

func TestClassifyPriority(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name string
		text string
		want models.ReportPriority
	}{
		{"critical fire", "حريق في المطبخ", models.PriorityCritical},
		{"critical gas leak", "يوجد تسريب غاز بجانب الفرن", models.PriorityCritical},
		{"high ac failure", "تعطل التكييف في الصالة", models.PriorityHigh},
		{"high elevator", "المصعد لا يعمل", models.PriorityHigh},
		{"critical beats high", "حريق بسبب التكييف", models.PriorityCritical},
		{"critical beats high reversed order", "التكييف اشتعل فيه نار", models.PriorityCritical},
		{"plain text defaults to normal", "الباب الخلفي يحتاج دهان", models.PriorityNormal},
		{"empty text", "", models.PriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyNeverReturnsLow(t *testing.T) {
	c := testClassifier()
	for _, text := range []string{"", "مشكلة بسيطة", "حريق", "تكييف"} {
		if got := c.Classify(text); got == models.PriorityLow {
			t.Errorf("Classify(%q) auto-assigned LOW", text)
		}
	}
}

func TestMatchReportsKeyword(t *testing.T) {
	c := testClassifier()
	priority, keyword := c.Match("دخان كثيف في المستودع")
	if priority != models.PriorityCritical {
		t.Fatalf("priority = %v, want CRITICAL", priority)
	}
	if keyword != "دخان" {
		t.Errorf("keyword = %q, want %q", keyword, "دخان")
	}
}

func TestDetectorAlertsOncePerSession(t *testing.T) {
	d := NewDetector(testClassifier())

	// Typing builds up to a critical keyword.
	if det := d.Observe("يوجد"); det.Alert {
		t.Fatal("alert fired before any critical keyword")
	}
	det := d.Observe("يوجد حريق")
	if det.Priority != models.PriorityCritical || !det.Alert {
		t.Fatalf("first critical observation: got %+v, want CRITICAL with alert", det)
	}

	// Every further keystroke re-classifies but must not re-alert.
	det = d.Observe("يوجد حريق في الدور الثاني")
	if det.Priority != models.PriorityCritical {
		t.Errorf("priority = %v, want CRITICAL", det.Priority)
	}
	if det.Alert {
		t.Error("alert re-fired within the same session")
	}

	// Even after the text drops below critical and climbs back.
	d.Observe("يوجد عطل")
	if det := d.Observe("يوجد انفجار"); det.Alert {
		t.Error("alert re-fired after text was edited back to critical")
	}
}

func TestDetectorSessionsAreIndependent(t *testing.T) {
	c := testClassifier()
	first := NewDetector(c)
	first.Observe("حريق")

	second := NewDetector(c)
	if det := second.Observe("حريق"); !det.Alert {
		t.Error("fresh session did not alert on first critical observation")
	}
}

func TestEmptyKeywordIsIgnored(t *testing.T) {
	c := New([]string{""}, []string{""})
	if got := c.Classify("أي نص"); got != models.PriorityNormal {
		t.Errorf("Classify with empty keywords = %v, want NORMAL", got)
	}
}
