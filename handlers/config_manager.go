// handlers/config_manager.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/siyana/config"
	"p9e.in/siyana/middleware"
	"p9e.in/siyana/models"
)

// ConfigManager owns the singleton SystemConfig row. Every mutation is a
// load → modify → save of the whole blob; concurrent admin edits resolve
// last-write-wins.
type ConfigManager struct {
	db *gorm.DB
}

func NewConfigManager() *ConfigManager {
	return &ConfigManager{db: config.DB}
}

// Load reads the persisted config. A missing row yields the defaults, and a
// blob that no longer parses falls back to the defaults with a warning
// instead of taking every form in the app down.
func (cm *ConfigManager) Load() (models.SystemConfig, error) {
	var rec models.ConfigRecord
	err := cm.db.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSystemConfig(), nil
	}
	if err != nil {
		return models.SystemConfig{}, fmt.Errorf("failed to load system config: %w", err)
	}

	var cfg models.SystemConfig
	if err := json.Unmarshal(rec.Data, &cfg); err != nil {
		log.Printf("⚠️ Stored system config is malformed, serving defaults: %v", err)
		return models.DefaultSystemConfig(), nil
	}
	return cfg, nil
}

// Save writes the whole config back to the singleton row.
func (cm *ConfigManager) Save(cfg models.SystemConfig, updatedBy string) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode system config: %w", err)
	}
	rec := models.ConfigRecord{ID: 1, Data: data, UpdatedBy: updatedBy}
	if err := cm.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
	}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save system config: %w", err)
	}
	log.Printf("✅ System config saved by %s", updatedBy)
	return nil
}

// Mutate applies one change inside a load → modify → save cycle.
func (cm *ConfigManager) Mutate(updatedBy string, fn func(*models.SystemConfig) error) (models.SystemConfig, error) {
	cfg, err := cm.Load()
	if err != nil {
		return models.SystemConfig{}, err
	}
	if err := fn(&cfg); err != nil {
		return models.SystemConfig{}, err
	}
	if err := cm.Save(cfg, updatedBy); err != nil {
		return models.SystemConfig{}, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------
// HTTP handlers
// ---------------------------------------------------------------

// GetSystemConfig returns the live form configuration. Readable by every
// authenticated role: the wizard and the closeout form both render from it.
func GetSystemConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := NewConfigManager().Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// UpdateSystemConfig replaces the whole configuration object. Admin only.
func UpdateSystemConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.SystemConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	for _, section := range []models.FieldSection{models.SectionReportQuestions, models.SectionRepairFields} {
		fields, _ := cfg.Section(section)
		seen := map[string]bool{}
		for _, f := range fields {
			if f.ID == "" || !f.Type.Valid() || seen[f.ID] {
				http.Error(w, fmt.Sprintf("invalid field definition in %s", section), http.StatusBadRequest)
				return
			}
			seen[f.ID] = true
		}
	}
	if err := NewConfigManager().Save(cfg, middleware.GetUserID(r)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// AddConfigField appends one field to a section.
func AddConfigField(w http.ResponseWriter, r *http.Request) {
	section := models.FieldSection(mux.Vars(r)["section"])

	var field models.DynamicField
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := NewConfigManager().Mutate(middleware.GetUserID(r), func(c *models.SystemConfig) error {
		if field.Order == 0 {
			list, lerr := c.Section(section)
			if lerr != nil {
				return lerr
			}
			field.Order = len(list) + 1
		}
		return c.AddField(section, field)
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cfg)
}

// UpdateConfigField merges a partial patch into one field.
func UpdateConfigField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	section := models.FieldSection(vars["section"])
	fieldID := vars["fieldId"]

	var patch models.FieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := NewConfigManager().Mutate(middleware.GetUserID(r), func(c *models.SystemConfig) error {
		return c.UpdateField(section, fieldID, patch)
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// RemoveConfigField deletes one field. Idempotent: deleting an id that is
// already gone still returns 200. Existing reports keep their snapshots.
func RemoveConfigField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	section := models.FieldSection(vars["section"])
	fieldID := vars["fieldId"]

	cfg, err := NewConfigManager().Mutate(middleware.GetUserID(r), func(c *models.SystemConfig) error {
		return c.RemoveField(section, fieldID)
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

type reorderReq struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ReorderConfigFields moves one field and renumbers the section 1..N.
func ReorderConfigFields(w http.ResponseWriter, r *http.Request) {
	section := models.FieldSection(mux.Vars(r)["section"])

	var req reorderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := NewConfigManager().Mutate(middleware.GetUserID(r), func(c *models.SystemConfig) error {
		return c.Reorder(section, req.From, req.To)
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

type toggleFeatureReq struct {
	Enabled bool `json:"enabled"`
}

// ToggleFeature flips one feature flag. Unknown flag names are stored as-is
// so older servers don't strip flags written by newer admin clients.
func ToggleFeature(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req toggleFeatureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := NewConfigManager().Mutate(middleware.GetUserID(r), func(c *models.SystemConfig) error {
		c.ToggleFeature(name, req.Enabled)
		return nil
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg.Features)
}

func writeConfigError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrFieldExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrFieldNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrBadSection), errors.Is(err, models.ErrBadIndex):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
