// handlers/report_intake.go
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"p9e.in/siyana/config"
	"p9e.in/siyana/middleware"
	"p9e.in/siyana/models"
	"p9e.in/siyana/pkg/classify"
	"p9e.in/siyana/pkg/forms"
	"p9e.in/siyana/utils"
)

type createReportReq struct {
	BranchID    uuid.UUID              `json:"branchId"`
	DynamicData map[string]interface{} `json:"dynamicData"`
	// Priority is an optional manual override; empty means classify from
	// the text inputs.
	Priority models.ReportPriority `json:"priority,omitempty"`
}

type createReportResp struct {
	Report       *models.Report   `json:"report"`
	Notification *WhatsAppMessage `json:"notification,omitempty"`
}

// CreateReport is the submit at the end of the intake wizard. It validates
// the dynamic answers against the live config, classifies priority from the
// free text, freezes the answer snapshots and opens the ticket as NEW.
func CreateReport(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	creatorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, "invalid token subject", http.StatusUnauthorized)
		return
	}

	var req createReportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.BranchID == uuid.Nil {
		http.Error(w, "branchId is required", http.StatusBadRequest)
		return
	}

	var branch models.Branch
	if err := config.DB.First(&branch, "id = ?", req.BranchID).Error; err != nil {
		http.Error(w, "branch not found", http.StatusNotFound)
		return
	}

	cfg, err := NewConfigManager().Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	values, err := forms.CoerceValues(cfg.ReportQuestions, req.DynamicData)
	if err != nil {
		writeFormError(w, err)
		return
	}
	if err := forms.ValidateRequired(cfg.ReportQuestions, values); err != nil {
		writeFormError(w, err)
		return
	}
	if loc := forms.Location(cfg.ReportQuestions, values); loc != nil {
		if err := utils.ValidateCoordinate(*loc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = classify.FromConfig(&cfg).Classify(forms.FreeText(cfg.ReportQuestions, values))
	} else if !priority.Valid() {
		http.Error(w, "unknown priority", http.StatusBadRequest)
		return
	}

	report := models.Report{
		BranchID:        branch.ID,
		BranchName:      branch.Name,
		CreatedByUserID: creatorID,
		CreatedByName:   claims.Name,
		Status:          models.StatusNew,
		Priority:        priority,
		MachineType:     forms.StringValue(values, "machineType"),
		Description:     forms.StringValue(values, "description"),
		DynamicAnswers:  forms.BuildAnswers(cfg.ReportQuestions, values),
		DynamicData:     models.JSONMap(values),
		ImagesBefore:    pq.StringArray(forms.Images(cfg.ReportQuestions, values)),
		LocationCoords:  forms.Location(cfg.ReportQuestions, values),
	}
	report.AppendLog(models.LogSystem, "تم إنشاء البلاغ", claims.UserID, claims.Name)

	if err := config.DB.Create(&report).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("✅ Report %s created at %s with priority %s", report.ID, report.BranchName, report.Priority)

	if cfg.FeatureEnabled(models.FeatureAutoAssign) {
		if err := autoAssign(&report, &cfg); err != nil {
			log.Printf("⚠️ Auto-assign skipped for report %s: %v", report.ID, err)
		}
	}

	resp := createReportResp{Report: &report}
	if cfg.FeatureEnabled(models.FeatureWhatsApp) {
		resp.Notification = NewTicketMessage(os.Getenv("SUPERVISOR_PHONE"), &report)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// autoAssign hands a fresh ticket to the active technician with the fewest
// open tickets. Best effort: any failure leaves the report NEW.
func autoAssign(report *models.Report, cfg *models.SystemConfig) error {
	var tech models.User
	err := config.DB.Raw(`
		SELECT u.* FROM users u
		LEFT JOIN reports r ON r.assigned_technician_id = u.id
			AND r.status NOT IN ('COMPLETED', 'CLOSED') AND r.deleted_at IS NULL
		WHERE u.role = ? AND u.is_active = true
		GROUP BY u.id
		ORDER BY COUNT(r.id) ASC, u.created_at ASC
		LIMIT 1`, models.RoleTechnician).Scan(&tech).Error
	if err != nil {
		return err
	}
	if tech.ID == uuid.Nil {
		return errors.New("no active technicians")
	}

	report.AssignedTechnicianID = &tech.ID
	report.AssignedTechnicianName = tech.Name
	report.Status = models.StatusAssigned
	report.AppendLog(models.LogStatusChange, "تم الإسناد تلقائيًا إلى "+tech.Name, "system", "النظام")
	if err := config.DB.Save(report).Error; err != nil {
		return err
	}
	log.Printf("✅ Report %s auto-assigned to %s", report.ID, tech.Name)
	return nil
}

type classifyReq struct {
	Text string `json:"text"`
	// Alerted carries the client's session flag so re-classification on
	// every keystroke fires the emergency banner only once.
	Alerted bool `json:"alerted"`
}

// ClassifyText gives the wizard live feedback while the reporter types.
func ClassifyText(w http.ResponseWriter, r *http.Request) {
	var req classifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := NewConfigManager().Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	det := classify.NewDetector(classify.FromConfig(&cfg))
	if req.Alerted {
		det.Latch()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(det.Observe(req.Text))
}

func writeFormError(w http.ResponseWriter, err error) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"fieldId": verr.FieldID,
			"labelAr": verr.LabelAr,
			"error":   verr.Reason,
		})
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
