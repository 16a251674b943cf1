// handlers/dashboard.go
package handlers

import (
	"encoding/json"
	"net/http"

	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
)

type statusCount struct {
	Status models.ReportStatus `json:"status"`
	Count  int64               `json:"count"`
}

type branchCount struct {
	BranchID   string `json:"branchId"`
	BranchName string `json:"branchName"`
	Count      int64  `json:"count"`
}

// DashboardStats backs the admin dashboard: ticket counts by status and
// branch, open criticals, average time to completion and low-stock parts.
func DashboardStats(w http.ResponseWriter, r *http.Request) {
	var byStatus []statusCount
	if err := config.DB.Model(&models.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var byBranch []branchCount
	if err := config.DB.Model(&models.Report{}).
		Select("branch_id, branch_name, COUNT(*) AS count").
		Group("branch_id, branch_name").
		Order("count DESC").Scan(&byBranch).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var openCritical int64
	config.DB.Model(&models.Report{}).
		Where("priority = ? AND status NOT IN ?", models.PriorityCritical,
			[]models.ReportStatus{models.StatusCompleted, models.StatusClosed}).
		Count(&openCritical)

	// Hours from creation to the updated_at of completed tickets. Rough
	// but good enough for a trend tile.
	var avgHours *float64
	config.DB.Model(&models.Report{}).
		Select("AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600)").
		Where("status IN ?", []models.ReportStatus{models.StatusCompleted, models.StatusClosed}).
		Scan(&avgHours)

	var lowStock int64
	config.DB.Model(&models.SparePart{}).Where("quantity <= min_level").Count(&lowStock)

	var totalCost *float64
	config.DB.Model(&models.Report{}).Select("SUM(cost)").Scan(&totalCost)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"byStatus":           byStatus,
		"byBranch":           byBranch,
		"openCritical":       openCritical,
		"avgCompletionHours": avgHours,
		"lowStockParts":      lowStock,
		"totalCost":          totalCost,
	})
}
