// handlers/whatsapp_service.go
package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"p9e.in/siyana/models"
)

// WhatsAppMessage is a ready-to-open wa.me deep link. The server never
// talks to WhatsApp itself; clients open the URL and the user hits send.
type WhatsAppMessage struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// waLink builds the deep link. Returns nil when the recipient has no phone
// on file, notifications silently degrade rather than failing the action.
func waLink(phone, text string) *WhatsAppMessage {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return nil
	}
	return &WhatsAppMessage{
		Phone: digits,
		Text:  text,
		URL:   "https://wa.me/" + digits + "?text=" + url.QueryEscape(text),
	}
}

func priorityLabelAr(p models.ReportPriority) string {
	switch p {
	case models.PriorityCritical:
		return "🚨 حرج"
	case models.PriorityHigh:
		return "⚠️ عاجل"
	case models.PriorityLow:
		return "منخفض"
	default:
		return "عادي"
	}
}

// NewTicketMessage notifies the maintenance supervisor about a fresh ticket.
func NewTicketMessage(supervisorPhone string, report *models.Report) *WhatsAppMessage {
	text := fmt.Sprintf("بلاغ صيانة جديد\nالفرع: %s\nالجهاز: %s\nالأولوية: %s\nالوصف: %s\nرقم البلاغ: %s",
		report.BranchName, report.MachineType, priorityLabelAr(report.Priority),
		report.Description, report.ID)
	return waLink(supervisorPhone, text)
}

// AssignmentMessage notifies a technician they were assigned a ticket,
// including a maps link when the reporter captured coordinates.
func AssignmentMessage(technicianPhone string, report *models.Report) *WhatsAppMessage {
	text := fmt.Sprintf("تم إسنادك لبلاغ صيانة\nالفرع: %s\nالجهاز: %s\nالأولوية: %s\nرقم البلاغ: %s",
		report.BranchName, report.MachineType, priorityLabelAr(report.Priority), report.ID)
	if report.LocationCoords != nil {
		text += fmt.Sprintf("\nالموقع: https://maps.google.com/?q=%f,%f",
			report.LocationCoords.Lat, report.LocationCoords.Lng)
	}
	return waLink(technicianPhone, text)
}

// PartsRequestMessage asks the warehouse for a part while the ticket waits.
func PartsRequestMessage(warehousePhone string, report *models.Report, partName string, quantity int) *WhatsAppMessage {
	text := fmt.Sprintf("طلب قطعة غيار\nالقطعة: %s\nالكمية: %d\nالفرع: %s\nرقم البلاغ: %s",
		partName, quantity, report.BranchName, report.ID)
	return waLink(warehousePhone, text)
}

// CompletionMessage tells the branch manager their ticket is done.
func CompletionMessage(managerPhone string, report *models.Report) *WhatsAppMessage {
	cost := "-"
	if report.Cost != nil {
		cost = fmt.Sprintf("%.2f", *report.Cost)
	}
	text := fmt.Sprintf("تم إنجاز بلاغ الصيانة ✅\nالفرع: %s\nالجهاز: %s\nالتكلفة: %s\nرقم البلاغ: %s",
		report.BranchName, report.MachineType, cost, report.ID)
	for _, p := range report.PartsUsage {
		text += fmt.Sprintf("\n- %s × %d", p.PartName, p.Quantity)
	}
	return waLink(managerPhone, text)
}

// LowStockMessage warns purchasing that a part fell to or below its
// minimum level after a closeout consumed it.
func LowStockMessage(purchasingPhone string, part *models.SparePart) *WhatsAppMessage {
	text := fmt.Sprintf("تنبيه مخزون منخفض ⚠️\nالقطعة: %s\nالرمز: %s\nالمتبقي: %d\nالحد الأدنى: %d",
		part.Name, part.SKU, part.Quantity, part.MinLevel)
	return waLink(purchasingPhone, text)
}
