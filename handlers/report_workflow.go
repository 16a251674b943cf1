// handlers/report_workflow.go
package handlers

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"p9e.in/siyana/config"
	"p9e.in/siyana/middleware"
	"p9e.in/siyana/models"
	"p9e.in/siyana/pkg/forms"
	"p9e.in/siyana/pkg/syncqueue"
	"p9e.in/siyana/utils"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotAssigned       = errors.New("report is assigned to another technician")
	ErrOutsideBranch     = errors.New("location is outside the branch arrival radius")
	ErrLocationRequired  = errors.New("location is required to confirm arrival")
)

// ReportWorkflow drives a ticket through its lifecycle. Every transition
// goes through the status machine; only RealityEdit may bypass it.
type ReportWorkflow struct {
	db    *gorm.DB
	cfg   *ConfigManager
	queue *syncqueue.Queue
}

func NewReportWorkflow(queue *syncqueue.Queue) *ReportWorkflow {
	return &ReportWorkflow{db: config.DB, cfg: NewConfigManager(), queue: queue}
}

func (wf *ReportWorkflow) loadReport(reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := wf.db.First(&report, "id = ?", reportID).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (wf *ReportWorkflow) transition(report *models.Report, to models.ReportStatus, actor *middleware.Claims, note string) error {
	if !report.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, report.Status, to)
	}
	from := report.Status
	report.Status = to
	report.AppendLog(models.LogStatusChange,
		fmt.Sprintf("%s: %s → %s", note, from, to), actor.UserID, actor.Name)
	return nil
}

// guardTechnician rejects a technician acting on someone else's ticket.
// Admins pass through.
func guardTechnician(report *models.Report, actor *middleware.Claims) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if report.AssignedTechnicianID != nil && report.AssignedTechnicianID.String() != actor.UserID {
		return ErrNotAssigned
	}
	return nil
}

// AssignTechnician moves a NEW ticket to ASSIGNED.
func (wf *ReportWorkflow) AssignTechnician(reportID, technicianID uuid.UUID, actor *middleware.Claims) (*models.Report, *WhatsAppMessage, error) {
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, nil, err
	}

	var tech models.User
	if err := wf.db.First(&tech, "id = ?", technicianID).Error; err != nil {
		return nil, nil, fmt.Errorf("technician not found: %w", err)
	}
	if !tech.IsTechnician() || !tech.IsActive {
		return nil, nil, errors.New("user is not an active technician")
	}

	if err := wf.transition(report, models.StatusAssigned, actor, "تم إسناد البلاغ إلى "+tech.Name); err != nil {
		return nil, nil, err
	}
	report.AssignedTechnicianID = &tech.ID
	report.AssignedTechnicianName = tech.Name

	if err := wf.db.Save(report).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save assignment: %w", err)
	}
	log.Printf("✅ Report %s assigned to %s", report.ID, tech.Name)

	var msg *WhatsAppMessage
	if cfg, cerr := wf.cfg.Load(); cerr == nil && cfg.FeatureEnabled(models.FeatureWhatsApp) {
		msg = AssignmentMessage(tech.Phone, report)
	}
	return report, msg, nil
}

// ConfirmArrival starts work on a ticket. Online arrivals must be within
// the branch geofence; offline arrivals are accepted with a warning entry
// in the log instead of a verified location.
func (wf *ReportWorkflow) ConfirmArrival(reportID uuid.UUID, location *models.GeoPoint, offline bool, actor *middleware.Claims) (*models.Report, error) {
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, err
	}
	if err := guardTechnician(report, actor); err != nil {
		return nil, err
	}

	if !offline {
		if location == nil {
			return nil, ErrLocationRequired
		}
		if err := utils.ValidateCoordinate(*location); err != nil {
			return nil, err
		}
		var branch models.Branch
		if err := wf.db.First(&branch, "id = ?", report.BranchID).Error; err != nil {
			return nil, fmt.Errorf("branch not found: %w", err)
		}
		center := models.GeoPoint{Lat: branch.Latitude, Lng: branch.Longitude}
		if !utils.WithinRadius(*location, center, utils.DefaultArrivalRadiusMeters) {
			return nil, fmt.Errorf("%w: %.0fm away", ErrOutsideBranch, utils.DistanceMeters(*location, center))
		}
	}

	note := "تأكيد الوصول إلى الفرع"
	if offline {
		note = "تأكيد الوصول بدون اتصال (لم يتم التحقق من الموقع)"
	}
	if err := wf.transition(report, models.StatusInProgress, actor, note); err != nil {
		return nil, err
	}

	// A technician arriving at an unassigned ticket takes it.
	if report.AssignedTechnicianID == nil && actor.Role == models.RoleTechnician {
		id, perr := uuid.Parse(actor.UserID)
		if perr == nil {
			report.AssignedTechnicianID = &id
			report.AssignedTechnicianName = actor.Name
		}
	}

	if err := wf.db.Save(report).Error; err != nil {
		return nil, fmt.Errorf("failed to save arrival: %w", err)
	}
	log.Printf("✅ Report %s in progress (technician %s)", report.ID, actor.Name)
	return report, nil
}

// RequestParts parks an in-progress ticket on PENDING_PARTS and builds the
// warehouse message.
func (wf *ReportWorkflow) RequestParts(reportID uuid.UUID, partName string, quantity int, actor *middleware.Claims) (*models.Report, *WhatsAppMessage, error) {
	if partName == "" || quantity <= 0 {
		return nil, nil, errors.New("part name and a positive quantity are required")
	}
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, nil, err
	}
	if err := guardTechnician(report, actor); err != nil {
		return nil, nil, err
	}

	note := fmt.Sprintf("طلب قطعة غيار: %s × %d", partName, quantity)
	if err := wf.transition(report, models.StatusPendingParts, actor, note); err != nil {
		return nil, nil, err
	}
	if err := wf.db.Save(report).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save parts request: %w", err)
	}

	var msg *WhatsAppMessage
	if cfg, cerr := wf.cfg.Load(); cerr == nil && cfg.FeatureEnabled(models.FeatureWhatsApp) {
		msg = PartsRequestMessage(os.Getenv("WAREHOUSE_PHONE"), report, partName, quantity)
	}
	return report, msg, nil
}

// CloseoutInput is everything the technician submits when finishing a job.
type CloseoutInput struct {
	DynamicData map[string]interface{} `json:"dynamicData"`
	PartsUsage  []models.PartsUsage    `json:"partsUsage,omitempty"`
	Offline     bool                   `json:"offline"`
}

// CloseoutResult reports how the closeout landed: saved directly, or
// diverted to the offline queue for later replay.
type CloseoutResult struct {
	Report        *models.Report     `json:"report"`
	Queued        bool               `json:"queued"`
	Notifications []*WhatsAppMessage `json:"notifications,omitempty"`
}

// Complete validates the repair fields, appends their snapshots to the
// ticket, consumes the used spare parts and moves the ticket to COMPLETED.
// When the database is unreachable (or the client declared itself offline),
// the finished ticket goes to the replay queue instead of being lost.
func (wf *ReportWorkflow) Complete(reportID uuid.UUID, input CloseoutInput, actor *middleware.Claims) (*CloseoutResult, error) {
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, err
	}
	if err := guardTechnician(report, actor); err != nil {
		return nil, err
	}

	cfg, err := wf.cfg.Load()
	if err != nil {
		return nil, err
	}

	values, err := forms.CoerceValues(cfg.RepairFields, input.DynamicData)
	if err != nil {
		return nil, err
	}
	if err := forms.ValidateRequired(cfg.RepairFields, values); err != nil {
		return nil, err
	}

	if err := wf.transition(report, models.StatusCompleted, actor, "تم إنجاز الإصلاح"); err != nil {
		return nil, err
	}

	// Closeout snapshots are appended after the intake ones; DynamicData
	// gets the repair values merged over it.
	report.DynamicAnswers = append(report.DynamicAnswers, forms.BuildAnswers(cfg.RepairFields, values)...)
	report.MergeDynamicData(values)
	if after := forms.Images(cfg.RepairFields, values); len(after) > 0 {
		report.ImagesAfter = append(report.ImagesAfter, pq.StringArray(after)...)
	}
	if cost := forms.NumberValue(values, "cost"); cost != nil {
		report.Cost = cost
	}

	result := &CloseoutResult{Report: report}
	basePartsUsage := report.PartsUsage

	err = wf.db.Transaction(func(tx *gorm.DB) error {
		if len(input.PartsUsage) > 0 {
			usage, low, perr := pricePartsUsage(tx, input.PartsUsage)
			if perr != nil {
				return perr
			}
			report.PartsUsage = append(report.PartsUsage, usage...)
			for _, part := range low {
				p := part
				if cfg.FeatureEnabled(models.FeatureWhatsApp) {
					if msg := LowStockMessage(PurchasingPhone(), &p); msg != nil {
						result.Notifications = append(result.Notifications, msg)
					}
				}
			}
		}
		return tx.Save(report).Error
	})
	if err != nil {
		if !shouldQueueCloseout(err, input.Offline) {
			return nil, err
		}
		// The transaction rolled back, so any pricing and stock decrements
		// are gone. Queue the raw usage so the replay can price and consume
		// it once the database is back.
		report.PartsUsage = append(basePartsUsage, rawPartsUsage(input.PartsUsage)...)
		if qerr := wf.queue.Enqueue(*report); qerr != nil {
			return nil, fmt.Errorf("save failed (%v) and offline queue rejected the report: %w", err, qerr)
		}
		result.Queued = true
		result.Notifications = nil
		log.Printf("⚠️ Report %s closeout queued for offline sync: %v", report.ID, err)
		return result, nil
	}

	if cfg.FeatureEnabled(models.FeatureWhatsApp) {
		var manager models.User
		if merr := wf.db.First(&manager, "id = ?", report.CreatedByUserID).Error; merr == nil {
			if msg := CompletionMessage(manager.Phone, report); msg != nil {
				result.Notifications = append(result.Notifications, msg)
			}
		}
	}
	log.Printf("✅ Report %s completed by %s", report.ID, actor.Name)
	return result, nil
}

// rawPartsUsage strips client-supplied names and prices so queued entries
// stay recognizably unpriced until the replay fills them from inventory.
func rawPartsUsage(usage []models.PartsUsage) models.PartsUsageList {
	raw := make(models.PartsUsageList, 0, len(usage))
	for _, u := range usage {
		raw = append(raw, models.PartsUsage{PartID: u.PartID, Quantity: u.Quantity})
	}
	return raw
}

// pricePartsUsage fills part names and prices from the inventory and
// decrements stock. Returns the priced usage plus any parts that hit low
// stock. Also the replay path for queued closeouts.
func pricePartsUsage(tx *gorm.DB, usage []models.PartsUsage) (models.PartsUsageList, []models.SparePart, error) {
	priced := make(models.PartsUsageList, 0, len(usage))
	for i := range usage {
		var part models.SparePart
		if err := tx.First(&part, "id = ?", usage[i].PartID).Error; err != nil {
			return nil, nil, fmt.Errorf("part %s not found: %w", usage[i].PartID, err)
		}
		priced = append(priced, models.PartsUsage{
			PartID:   part.ID,
			PartName: part.Name,
			Quantity: usage[i].Quantity,
			Price:    part.Price,
		})
	}
	low, err := ConsumeParts(tx, priced)
	if err != nil {
		return nil, nil, err
	}
	return priced, low, nil
}

// Close archives a COMPLETED ticket. Admin only, enforced at the route.
func (wf *ReportWorkflow) Close(reportID uuid.UUID, adminNotes string, actor *middleware.Claims) (*models.Report, error) {
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, err
	}
	if err := wf.transition(report, models.StatusClosed, actor, "تم إغلاق البلاغ"); err != nil {
		return nil, err
	}
	if adminNotes != "" {
		report.AdminNotes = adminNotes
	}
	if err := wf.db.Save(report).Error; err != nil {
		return nil, fmt.Errorf("failed to close report: %w", err)
	}
	log.Printf("✅ Report %s closed", report.ID)
	return report, nil
}

// RealityEditInput is the admin God-mode patch: any field, any status, no
// transition rules. Everything lands in the audit trail as FORCED_EDIT.
type RealityEditInput struct {
	Status               *models.ReportStatus   `json:"status,omitempty"`
	Priority             *models.ReportPriority `json:"priority,omitempty"`
	AssignedTechnicianID *uuid.UUID             `json:"assignedTechnicianId,omitempty"`
	Description          *string                `json:"description,omitempty"`
	AdminNotes           *string                `json:"adminNotes,omitempty"`
	Cost                 *float64               `json:"cost,omitempty"`
	DynamicData          map[string]interface{} `json:"dynamicData,omitempty"`
}

// RealityEdit applies an unrestricted admin override.
func (wf *ReportWorkflow) RealityEdit(reportID uuid.UUID, input RealityEditInput, actor *middleware.Claims) (*models.Report, error) {
	report, err := wf.loadReport(reportID)
	if err != nil {
		return nil, err
	}

	var changed []string
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("unknown status %q", *input.Status)
		}
		changed = append(changed, fmt.Sprintf("الحالة: %s → %s", report.Status, *input.Status))
		report.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, fmt.Errorf("unknown priority %q", *input.Priority)
		}
		changed = append(changed, fmt.Sprintf("الأولوية: %s → %s", report.Priority, *input.Priority))
		report.Priority = *input.Priority
	}
	if input.AssignedTechnicianID != nil {
		var tech models.User
		if err := wf.db.First(&tech, "id = ?", *input.AssignedTechnicianID).Error; err != nil {
			return nil, fmt.Errorf("technician not found: %w", err)
		}
		report.AssignedTechnicianID = &tech.ID
		report.AssignedTechnicianName = tech.Name
		changed = append(changed, "الفني: "+tech.Name)
	}
	if input.Description != nil {
		report.Description = *input.Description
		changed = append(changed, "الوصف")
	}
	if input.AdminNotes != nil {
		report.AdminNotes = *input.AdminNotes
		changed = append(changed, "ملاحظات الإدارة")
	}
	if input.Cost != nil {
		report.Cost = input.Cost
		changed = append(changed, fmt.Sprintf("التكلفة: %.2f", *input.Cost))
	}
	if len(input.DynamicData) > 0 {
		report.MergeDynamicData(input.DynamicData)
		changed = append(changed, "البيانات الديناميكية")
	}
	if len(changed) == 0 {
		return report, nil
	}

	report.AppendLog(models.LogForcedEdit, "تعديل إداري مباشر: "+strings.Join(changed, "، "), actor.UserID, actor.Name)
	if err := wf.db.Save(report).Error; err != nil {
		return nil, fmt.Errorf("failed to save forced edit: %w", err)
	}
	log.Printf("⚠️ Report %s force-edited by %s (%d change(s))", report.ID, actor.Name, len(changed))
	return report, nil
}

// shouldQueueCloseout decides whether a failed closeout save diverts to
// the offline queue. Stock shortages always fail loudly; everything else
// queues when the client declared itself offline or the database itself
// was unreachable.
func shouldQueueCloseout(err error, offline bool) bool {
	if errors.Is(err, ErrInsufficientStock) {
		return false
	}
	return offline || isConnectivityError(err)
}

// isConnectivityError distinguishes "database is down" from a rejected
// write so only the former diverts into the offline queue.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"connection refused", "connection reset", "broken pipe", "i/o timeout", "no such host", "dial tcp"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
