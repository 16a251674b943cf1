// Package classify implements the keyword-based priority classifier that
// auto-escalates maintenance tickets from free-text input.
package classify

import (
	"strings"

	"p9e.in/siyana/models"
)

// Classifier holds the keyword configuration. Keywords come from the
// persisted SystemConfig so they can be tuned without redeploying.
type Classifier struct {
	Critical []string
	High     []string
}

// New builds a classifier from explicit keyword lists.
func New(critical, high []string) Classifier {
	return Classifier{Critical: critical, High: high}
}

// FromConfig builds a classifier from the keyword lists in a SystemConfig.
func FromConfig(cfg *models.SystemConfig) Classifier {
	return New(cfg.CriticalKeywords, cfg.HighKeywords)
}

// Classify maps free text to a priority. Any critical keyword wins outright
// regardless of other signals; otherwise any high keyword escalates to HIGH;
// otherwise NORMAL. LOW is never auto-assigned, it is a manual-only value.
func (c Classifier) Classify(text string) models.ReportPriority {
	priority, _ := c.Match(text)
	return priority
}

// Match is Classify plus the keyword that decided the outcome, for the
// "emergency detected" banner.
func (c Classifier) Match(text string) (models.ReportPriority, string) {
	normalized := strings.ToLower(text)
	for _, kw := range c.Critical {
		if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
			return models.PriorityCritical, kw
		}
	}
	for _, kw := range c.High {
		if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
			return models.PriorityHigh, kw
		}
	}
	return models.PriorityNormal, ""
}

// Detection is the outcome of one Observe call.
type Detection struct {
	Priority models.ReportPriority `json:"priority"`
	Keyword  string                `json:"keyword,omitempty"`
	// Alert is true only on the first transition into CRITICAL within the
	// detector's editing session. It must not re-fire on every keystroke
	// once the session is already critical.
	Alert bool `json:"alert"`
}

// Detector wraps a Classifier for one editing session of the wizard. The
// classifier itself is pure; the detector only latches the one-time
// emergency notification.
type Detector struct {
	classifier Classifier
	alerted    bool
}

// NewDetector starts a fresh editing session.
func NewDetector(c Classifier) *Detector {
	return &Detector{classifier: c}
}

// Latch marks the session as already alerted, for resuming a session whose
// alert state lives with the caller.
func (d *Detector) Latch() {
	d.alerted = true
}

// Observe re-classifies the concatenated free-text state of the form.
// Re-classification is idempotent and side-effect free apart from the
// latched Alert flag.
func (d *Detector) Observe(text string) Detection {
	priority, keyword := d.classifier.Match(text)
	det := Detection{Priority: priority, Keyword: keyword}
	if priority == models.PriorityCritical && !d.alerted {
		d.alerted = true
		det.Alert = true
	}
	return det
}
