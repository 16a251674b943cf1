// handlers/user_management.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
)

// GetAllUsers lists accounts with pagination. Admin only.
func GetAllUsers(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	q := config.DB.Model(&models.User{})
	if role := r.URL.Query().Get("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if r.URL.Query().Get("includeInactive") != "true" {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var users []models.User
	if err := q.Order("name").Limit(limit).Offset((page - 1) * limit).Find(&users).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]userPayload, len(users))
	for i, u := range users {
		out[i] = userPayload{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role, BranchID: u.BranchID}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total": total,
		"page":  page,
		"limit": limit,
		"data":  out,
	})
}

// ListTechnicians returns active technicians with their open-ticket counts,
// for the assignment picker.
func ListTechnicians(w http.ResponseWriter, r *http.Request) {
	type techOut struct {
		ID          uuid.UUID `json:"id"`
		Name        string    `json:"name"`
		Phone       string    `json:"phone"`
		OpenTickets int       `json:"openTickets"`
	}

	var out []techOut
	err := config.DB.Raw(`
		SELECT u.id, u.name, u.phone, COUNT(r.id) AS open_tickets
		FROM users u
		LEFT JOIN reports r ON r.assigned_technician_id = u.id
			AND r.status NOT IN ('COMPLETED', 'CLOSED') AND r.deleted_at IS NULL
		WHERE u.role = ? AND u.is_active = true
		GROUP BY u.id, u.name, u.phone
		ORDER BY open_tickets ASC, u.name ASC`, models.RoleTechnician).Scan(&out).Error
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// UpdateUser edits an account. Admin only.
func UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", id).Error; err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	var patch struct {
		Name     *string    `json:"name"`
		Email    *string    `json:"email"`
		Role     *string    `json:"role"`
		BranchID *uuid.UUID `json:"branchId"`
		IsActive *bool      `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Role != nil {
		switch *patch.Role {
		case models.RoleAdmin, models.RoleBranchManager, models.RoleTechnician:
			user.Role = *patch.Role
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
	}
	if patch.BranchID != nil {
		user.BranchID = patch.BranchID
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	if err := config.DB.Save(&user).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userPayload{ID: user.ID, Name: user.Name, Email: user.Email, Phone: user.Phone, Role: user.Role, BranchID: user.BranchID})
}

// DeactivateUser disables an account without deleting its history.
func DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	result := config.DB.Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		http.Error(w, "db error: "+result.Error.Error(), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
