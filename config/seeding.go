package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"p9e.in/siyana/models"
)

// RunAllSeeding runs all seeding operations in the correct order
func RunAllSeeding() {
	log.Println("=== Starting Database Seeding ===")

	log.Println("[1/4] Seeding System Config...")
	SeedSystemConfig()

	log.Println("[2/4] Seeding Branches...")
	SeedBranches()

	log.Println("[3/4] Seeding Default Users...")
	SeedUsers()

	log.Println("[4/4] Seeding Spare Parts...")
	SeedSpareParts()

	log.Println("=== Database Seeding Complete ===")
}

// SeedSystemConfig inserts the default form configuration if the singleton
// row does not exist yet. An existing row is never overwritten, admin edits
// survive restarts.
func SeedSystemConfig() {
	var rec models.ConfigRecord
	err := DB.First(&rec).Error
	if err == nil {
		log.Println("✅ System config already present, skipping")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("❌ Failed to check system config: %v", err)
		return
	}

	cfg := models.DefaultSystemConfig()
	data, err := json.Marshal(cfg)
	if err != nil {
		log.Printf("❌ Failed to encode default system config: %v", err)
		return
	}
	rec = models.ConfigRecord{ID: 1, Data: data, UpdatedBy: "seed"}
	if err := DB.Create(&rec).Error; err != nil {
		log.Printf("❌ Failed to seed system config: %v", err)
		return
	}
	log.Printf("✅ Seeded default system config (%d intake fields, %d repair fields)",
		len(cfg.ReportQuestions), len(cfg.RepairFields))
}

// SeedBranches creates demo branches when the table is empty.
func SeedBranches() {
	var count int64
	DB.Model(&models.Branch{}).Count(&count)
	if count > 0 {
		log.Println("✅ Branches already present, skipping")
		return
	}

	branches := []models.Branch{
		{Name: "فرع العليا", Location: "الرياض - حي العليا", Latitude: 24.6952, Longitude: 46.6845, Phone: "+966500000001", IsActive: true},
		{Name: "فرع النخيل", Location: "الرياض - حي النخيل", Latitude: 24.7470, Longitude: 46.6290, Phone: "+966500000002", IsActive: true},
		{Name: "فرع الحمراء", Location: "جدة - حي الحمراء", Latitude: 21.5292, Longitude: 39.1611, Phone: "+966500000003", IsActive: true},
		{Name: "فرع العزيزية", Location: "الدمام - حي العزيزية", Latitude: 26.3927, Longitude: 50.1095, Phone: "+966500000004", IsActive: true},
	}
	for _, b := range branches {
		branch := b
		if err := DB.Create(&branch).Error; err != nil {
			log.Printf("❌ Failed to seed branch %s: %v", b.Name, err)
		}
	}
	log.Printf("✅ Seeded %d branches", len(branches))
}

// SeedUsers creates the bootstrap admin account if no admin exists.
// Credentials come from env so production never ships a default password.
func SeedUsers() {
	var count int64
	DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		log.Println("✅ Admin account already present, skipping")
		return
	}

	phone := os.Getenv("ADMIN_PHONE")
	password := os.Getenv("ADMIN_PASSWORD")
	if phone == "" || password == "" {
		log.Println("⚠️ ADMIN_PHONE / ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash admin password: %v", err)
		return
	}
	admin := models.User{
		Name:         "مدير النظام",
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("❌ Failed to seed admin account: %v", err)
		return
	}
	log.Printf("✅ Seeded admin account %s", phone)
}

// SeedSpareParts loads a starter inventory when the table is empty.
func SeedSpareParts() {
	var count int64
	DB.Model(&models.SparePart{}).Count(&count)
	if count > 0 {
		log.Println("✅ Spare parts already present, skipping")
		return
	}

	parts := []models.SparePart{
		{Name: "ضاغط تكييف 24000", SKU: "AC-CMP-24", Category: "تكييف", Quantity: 6, Price: 1450, MinLevel: 2},
		{Name: "فلتر فريون", SKU: "AC-FLT-01", Category: "تكييف", Quantity: 30, Price: 85, MinLevel: 10},
		{Name: "ثرموستات ثلاجة عرض", SKU: "FR-THR-02", Category: "تبريد", Quantity: 12, Price: 220, MinLevel: 4},
		{Name: "محرك بوابة أوتوماتيكية", SKU: "GT-MTR-01", Category: "بوابات", Quantity: 3, Price: 2600, MinLevel: 1},
		{Name: "قاطع كهربائي 63 أمبير", SKU: "EL-BRK-63", Category: "كهرباء", Quantity: 20, Price: 145, MinLevel: 8},
	}
	for _, p := range parts {
		part := p
		if err := DB.Create(&part).Error; err != nil {
			log.Printf("❌ Failed to seed spare part %s: %v", p.SKU, err)
		}
	}
	log.Printf("✅ Seeded %d spare parts", len(parts))
}
