// handlers/inventory.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"p9e.in/siyana/config"
	"p9e.in/siyana/models"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// ListSpareParts returns the inventory, optionally filtered by category or
// a name/SKU search term.
func ListSpareParts(w http.ResponseWriter, r *http.Request) {
	q := config.DB.Model(&models.SparePart{}).Order("name")
	if category := r.URL.Query().Get("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if r.URL.Query().Get("lowStock") == "true" {
		q = q.Where("quantity <= min_level")
	}

	var parts []models.SparePart
	if err := q.Find(&parts).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(parts)
}

// CreateSparePart adds a new part to the inventory. Admin only.
func CreateSparePart(w http.ResponseWriter, r *http.Request) {
	var part models.SparePart
	if err := json.NewDecoder(r.Body).Decode(&part); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if part.Name == "" || part.SKU == "" {
		http.Error(w, "name and sku are required", http.StatusBadRequest)
		return
	}
	if part.Quantity < 0 || part.Price < 0 {
		http.Error(w, "quantity and price must be non-negative", http.StatusBadRequest)
		return
	}
	if err := config.DB.Create(&part).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "sku already exists", http.StatusConflict)
		} else {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(part)
}

// UpdateSparePart edits an existing part. Admin only.
func UpdateSparePart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid part id", http.StatusBadRequest)
		return
	}

	var part models.SparePart
	if err := config.DB.First(&part, "id = ?", id).Error; err != nil {
		http.Error(w, "part not found", http.StatusNotFound)
		return
	}

	var patch struct {
		Name     *string  `json:"name"`
		Category *string  `json:"category"`
		Quantity *int     `json:"quantity"`
		Price    *float64 `json:"price"`
		MinLevel *int     `json:"minLevel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if patch.Name != nil {
		part.Name = *patch.Name
	}
	if patch.Category != nil {
		part.Category = *patch.Category
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			http.Error(w, "quantity must be non-negative", http.StatusBadRequest)
			return
		}
		part.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		part.Price = *patch.Price
	}
	if patch.MinLevel != nil {
		part.MinLevel = *patch.MinLevel
	}

	if err := config.DB.Save(&part).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(part)
}

// DeleteSparePart removes a part from the inventory. Admin only.
func DeleteSparePart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid part id", http.StatusBadRequest)
		return
	}
	if err := config.DB.Delete(&models.SparePart{}, "id = ?", id).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConsumeParts decrements stock for every part a closeout used, inside the
// caller's transaction. Returns the parts that fell to or below their
// minimum level so the caller can raise low-stock alerts.
func ConsumeParts(tx *gorm.DB, usage models.PartsUsageList) ([]models.SparePart, error) {
	var low []models.SparePart
	for _, u := range usage {
		if u.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for part %s", u.Quantity, u.PartID)
		}
		var part models.SparePart
		if err := tx.First(&part, "id = ?", u.PartID).Error; err != nil {
			return nil, fmt.Errorf("part %s not found: %w", u.PartID, err)
		}
		if part.Quantity < u.Quantity {
			return nil, fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientStock, part.Name, part.Quantity, u.Quantity)
		}
		part.Quantity -= u.Quantity
		if err := tx.Save(&part).Error; err != nil {
			return nil, fmt.Errorf("failed to update stock for %s: %w", part.Name, err)
		}
		if part.LowStock() {
			low = append(low, part)
		}
	}
	return low, nil
}

// PurchasingPhone is where low-stock alerts go.
func PurchasingPhone() string {
	return os.Getenv("PURCHASING_PHONE")
}
