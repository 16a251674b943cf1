// handlers/report_handlers.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"p9e.in/siyana/config"
	"p9e.in/siyana/middleware"
	"p9e.in/siyana/models"
)

// ListReports returns tickets scoped to the caller's role: admins see
// everything, branch managers their branch, technicians their assignments.
func ListReports(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	q := config.DB.Model(&models.Report{}).Order("created_at DESC")

	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleBranchManager:
		user := middleware.GetUser(r)
		if user.BranchID == nil {
			http.Error(w, "no branch on file", http.StatusForbidden)
			return
		}
		q = q.Where("branch_id = ?", *user.BranchID)
	case models.RoleTechnician:
		q = q.Where("assigned_technician_id = ?", claims.UserID)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ReportStatus(status).Valid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		q = q.Where("status = ?", status)
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		if !models.ReportPriority(priority).Valid() {
			http.Error(w, "unknown priority", http.StatusBadRequest)
			return
		}
		q = q.Where("priority = ?", priority)
	}
	if branch := r.URL.Query().Get("branchId"); branch != "" && claims.Role == models.RoleAdmin {
		q = q.Where("branch_id = ?", branch)
	}

	page, limit := 1, 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var reports []models.Report
	if err := q.Limit(limit).Offset((page - 1) * limit).Find(&reports).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total": total,
		"page":  page,
		"limit": limit,
		"data":  reports,
	})
}

// GetReport returns a single ticket with its full audit trail.
func GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	var report models.Report
	if err := config.DB.First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
		} else {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// MyTasks lists the calling technician's open tickets, urgent first.
func MyTasks(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var reports []models.Report
	err := config.DB.
		Where("assigned_technician_id = ?", claims.UserID).
		Where("status NOT IN ?", []models.ReportStatus{models.StatusCompleted, models.StatusClosed}).
		Order(`CASE priority
			WHEN 'CRITICAL' THEN 0
			WHEN 'HIGH' THEN 1
			WHEN 'NORMAL' THEN 2
			ELSE 3 END, created_at ASC`).
		Find(&reports).Error
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}

func reportIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		http.Error(w, "report not found", http.StatusNotFound)
	case errors.Is(err, models.ErrFieldNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotAssigned), errors.Is(err, ErrOutsideBranch):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrLocationRequired), errors.Is(err, ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		writeFormError(w, err)
	}
}

// AssignReport — POST /reports/{id}/assign
func AssignReport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		TechnicianID uuid.UUID `json:"technicianId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TechnicianID == uuid.Nil {
		http.Error(w, "technicianId is required", http.StatusBadRequest)
		return
	}

	report, msg, err := NewReportWorkflow(reportQueue).AssignTechnician(id, req.TechnicianID, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"report": report, "notification": msg})
}

// ConfirmArrival — POST /reports/{id}/arrive
func ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Location *models.GeoPoint `json:"location,omitempty"`
		Offline  bool             `json:"offline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	report, err := NewReportWorkflow(reportQueue).ConfirmArrival(id, req.Location, req.Offline, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// RequestParts — POST /reports/{id}/request-parts
func RequestParts(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		PartName string `json:"partName"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	report, msg, err := NewReportWorkflow(reportQueue).RequestParts(id, req.PartName, req.Quantity, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"report": report, "notification": msg})
}

// CompleteReport — POST /reports/{id}/complete
func CompleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var input CloseoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := NewReportWorkflow(reportQueue).Complete(id, input, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if result.Queued {
		w.WriteHeader(http.StatusAccepted)
	}
	json.NewEncoder(w).Encode(result)
}

// CloseReport — POST /reports/{id}/close (admin)
func CloseReport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		AdminNotes string `json:"adminNotes"`
	}
	// Body is optional for close.
	_ = json.NewDecoder(r.Body).Decode(&req)

	report, err := NewReportWorkflow(reportQueue).Close(id, req.AdminNotes, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// RealityEdit — PATCH /reports/{id}/reality (admin)
func RealityEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	var input RealityEditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	report, err := NewReportWorkflow(reportQueue).RealityEdit(id, input, middleware.GetClaims(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// AddComment — POST /reports/{id}/comments
func AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromRequest(w, r)
	if !ok {
		return
	}
	claims := middleware.GetClaims(r)
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	var report models.Report
	if err := config.DB.First(&report, "id = ?", id).Error; err != nil {
		writeWorkflowError(w, err)
		return
	}
	report.AppendLog(models.LogComment, req.Text, claims.UserID, claims.Name)
	if err := config.DB.Save(&report).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
