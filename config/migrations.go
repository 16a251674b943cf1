package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/siyana/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "10032026_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Branch{}, &models.Report{},
					&models.SparePart{}, &models.ConfigRecord{})
			},
		},
		{
			ID: "10032026_report_indexes",
			Migrate: func(tx *gorm.DB) error {
				// Composite indexes for the two hot list queries: branch
				// dashboard and technician task list.
				if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_branch_status ON reports(branch_id, status)").Error; err != nil {
					return err
				}
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_tech_status ON reports(assigned_technician_id, status)").Error
			},
		},
		{
			ID: "14032026_spare_parts_sku_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_spare_parts_sku ON spare_parts(sku)").Error
			},
		},
	})
	return m.Migrate()
}
