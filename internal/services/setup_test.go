package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"referral-engine/internal/auth"
	"referral-engine/internal/config"
	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	auth.InitJWT("test-secret")

	// :memory: with cache=shared keeps the same DB across connections
	// inside the test process.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.ReferralLink{},
		&models.ReferralVisit{},
		&models.AmbassadorEarning{},
		&models.AmbassadorTier{},
		&models.CommissionOverride{},
		&models.CampaignBoost{},
		&models.WhitelistedIP{},
		&models.LandingPage{},
		&models.NotificationRecord{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Clean all tables; the shared memory DB survives between tests
	for _, table := range []string{
		"referral_links", "referral_visits", "ambassador_earnings",
		"ambassador_tiers", "commission_overrides", "campaign_boosts",
		"whitelisted_ips", "landing_pages", "notification_records", "audit_logs",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

// testSettings mirrors the documented defaults with velocity and tiers
// enabled and the campaign boost off unless a test flips it.
func testSettings() *config.AffiliateSettings {
	return &config.AffiliateSettings{
		DefaultCommissionRate: decimal.NewFromInt(30),
		DefaultCommissionType: models.CommissionTypePercentage,
		SilverThreshold:       10,
		GoldThreshold:         25,
		BronzeRate:            decimal.NewFromInt(30),
		SilverRate:            decimal.NewFromInt(35),
		GoldRate:              decimal.NewFromInt(40),
		MaxVisitsPerHour:      10,
		MaxSignupsPerIPPerDay: 5,
		CookieAttributionDays: 365,
		Boost: config.BoostSettings{
			Amount: decimal.NewFromInt(5),
			Target: "all",
		},
		SpamKeywords: []string{"casino", "viagra", "lottery"},
		Features: config.FeatureSet{
			VelocityLimits:    true,
			TieredCommissions: true,
			CampaignBoost:     false,
		},
	}
}

func seedLink(t *testing.T, db *gorm.DB, referrerID uint, code string) *models.ReferralLink {
	link := models.ReferralLink{
		ReferrerID:           referrerID,
		Code:                 code,
		LinkType:             "general",
		IsActive:             true,
		NotificationsEnabled: true,
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}
	return &link
}

func newTestRepo(db *gorm.DB) *repository.Repository {
	return repository.NewRepository(db)
}
