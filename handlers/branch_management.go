// handlers/branch_management.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
	"p9e.in/siyana/utils"
)

// ListBranches returns active branches; every role needs them for the
// intake wizard and dashboards.
func ListBranches(w http.ResponseWriter, r *http.Request) {
	q := config.DB.Model(&models.Branch{}).Order("name")
	if r.URL.Query().Get("includeInactive") != "true" {
		q = q.Where("is_active = ?", true)
	}
	var branches []models.Branch
	if err := q.Find(&branches).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(branches)
}

// CreateBranch adds a branch with its geofence center. Admin only.
func CreateBranch(w http.ResponseWriter, r *http.Request) {
	var branch models.Branch
	if err := json.NewDecoder(r.Body).Decode(&branch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if branch.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateCoordinate(models.GeoPoint{Lat: branch.Latitude, Lng: branch.Longitude}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	branch.IsActive = true
	if err := config.DB.Create(&branch).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(branch)
}

// UpdateBranch edits a branch. Admin only.
func UpdateBranch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid branch id", http.StatusBadRequest)
		return
	}

	var branch models.Branch
	if err := config.DB.First(&branch, "id = ?", id).Error; err != nil {
		http.Error(w, "branch not found", http.StatusNotFound)
		return
	}

	var patch struct {
		Name      *string    `json:"name"`
		Location  *string    `json:"location"`
		Latitude  *float64   `json:"latitude"`
		Longitude *float64   `json:"longitude"`
		ManagerID *uuid.UUID `json:"managerId"`
		Phone     *string    `json:"phone"`
		IsActive  *bool      `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if patch.Name != nil {
		branch.Name = *patch.Name
	}
	if patch.Location != nil {
		branch.Location = *patch.Location
	}
	if patch.Latitude != nil {
		branch.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		branch.Longitude = *patch.Longitude
	}
	if err := utils.ValidateCoordinate(models.GeoPoint{Lat: branch.Latitude, Lng: branch.Longitude}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if patch.ManagerID != nil {
		branch.ManagerID = patch.ManagerID
	}
	if patch.Phone != nil {
		branch.Phone = *patch.Phone
	}
	if patch.IsActive != nil {
		branch.IsActive = *patch.IsActive
	}

	if err := config.DB.Save(&branch).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(branch)
}
