package database

import (
	"fmt"
	"log"

	"referral-engine/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Attribution models first; earnings reference visits
	attributionModels := []interface{}{
		&models.ReferralLink{},
		&models.ReferralVisit{},
	}

	for _, model := range attributionModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Commission models
	commissionModels := []interface{}{
		&models.AmbassadorEarning{},
		&models.AmbassadorTier{},
		&models.CommissionOverride{},
		&models.CampaignBoost{},
	}

	for _, model := range commissionModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Fraud models
	fraudModels := []interface{}{
		&models.WhitelistedIP{},
		&models.LandingPage{},
	}

	for _, model := range fraudModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Operational models
	opsModels := []interface{}{
		&models.NotificationRecord{},
		&models.AuditLog{},
	}

	for _, model := range opsModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
