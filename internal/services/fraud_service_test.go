package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"referral-engine/internal/models"
)

func seedVisits(t *testing.T, db *gorm.DB, link *models.ReferralLink, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := db.Create(&models.ReferralVisit{
			LinkID:     link.ID,
			ReferrerID: link.ReferrerID,
			IPHash:     fmt.Sprintf("hash-%d-%d-%d", link.ID, n, i),
			CreatedAt:  time.Now().Add(-age),
		}).Error
		if err != nil {
			t.Fatalf("failed to seed visits: %v", err)
		}
	}
}

func seedConvertedVisit(t *testing.T, db *gorm.DB, link *models.ReferralLink, ip string, i int) {
	t.Helper()
	now := time.Now().Add(-time.Hour)
	err := db.Create(&models.ReferralVisit{
		LinkID:      link.ID,
		ReferrerID:  link.ReferrerID,
		IPAddress:   ip,
		IPHash:      fmt.Sprintf("conv-hash-%d-%s-%d", link.ID, ip, i),
		Converted:   true,
		ConvertedAt: &now,
		CreatedAt:   now,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed converted visit: %v", err)
	}
}

func TestScanVelocitySeverities(t *testing.T) {
	db := setupTestDB(t)

	// Caps: 10/hour per referrer, 5/day scaled to the window.
	settings := testSettings()
	svc := NewFraudService(newTestRepo(db), settings)

	hot := seedLink(t, db, 1, "FRAUDA")
	warm := seedLink(t, db, 2, "FRAUDB")
	quiet := seedLink(t, db, 3, "FRAUDC")

	seedVisits(t, db, hot, 25, 30*time.Minute)
	seedVisits(t, db, warm, 12, 30*time.Minute)
	seedVisits(t, db, quiet, 4, 30*time.Minute)

	from := time.Now().Add(-2 * time.Hour)
	report := svc.Scan(context.Background(), from, time.Now())

	if report.SectionErrors != nil {
		t.Fatalf("Unexpected section errors: %v", report.SectionErrors)
	}

	byReferrer := make(map[uint]VelocityViolation)
	for _, v := range report.VelocityViolations {
		byReferrer[v.ReferrerID] = v
	}

	hotViolation, ok := byReferrer[1]
	if !ok {
		t.Fatal("Expected a violation for referrer 1")
	}
	if hotViolation.Severity != SeverityHigh {
		t.Errorf("25 visits/hour against a cap of 10 is high severity, got %s", hotViolation.Severity)
	}
	if hotViolation.HourlyCount != 25 {
		t.Errorf("Expected hourly count 25, got %d", hotViolation.HourlyCount)
	}

	warmViolation, ok := byReferrer[2]
	if !ok {
		t.Fatal("Expected a violation for referrer 2")
	}
	if warmViolation.Severity != SeverityMedium {
		t.Errorf("12 visits/hour against a cap of 10 is medium severity, got %s", warmViolation.Severity)
	}

	if _, flagged := byReferrer[3]; flagged {
		t.Error("Referrer 3 is under both caps and must not be flagged")
	}
}

func TestScanIPClusters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFraudService(newTestRepo(db), testSettings())

	linkA := seedLink(t, db, 1, "CLUSTA")
	linkB := seedLink(t, db, 2, "CLUSTB")

	// Three conversions from one IP across two ambassadors.
	seedConvertedVisit(t, db, linkA, "192.0.2.50", 0)
	seedConvertedVisit(t, db, linkA, "192.0.2.50", 1)
	seedConvertedVisit(t, db, linkB, "192.0.2.50", 2)

	// Two conversions only, below the cluster floor.
	seedConvertedVisit(t, db, linkA, "192.0.2.60", 0)
	seedConvertedVisit(t, db, linkA, "192.0.2.60", 1)

	// Clustered but whitelisted.
	db.Create(&models.WhitelistedIP{IPAddress: "192.0.2.70", Reason: "office NAT", AddedBy: 1})
	seedConvertedVisit(t, db, linkA, "192.0.2.70", 0)
	seedConvertedVisit(t, db, linkA, "192.0.2.70", 1)
	seedConvertedVisit(t, db, linkB, "192.0.2.70", 2)

	report := svc.Scan(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	if report.SectionErrors != nil {
		t.Fatalf("Unexpected section errors: %v", report.SectionErrors)
	}
	if len(report.IPClusters) != 1 {
		t.Fatalf("Expected exactly 1 cluster, got %d", len(report.IPClusters))
	}

	cluster := report.IPClusters[0]
	if cluster.IPAddress != "192.0.2.50" {
		t.Errorf("Expected cluster on 192.0.2.50, got %s", cluster.IPAddress)
	}
	if cluster.ConvertedVisits != 3 {
		t.Errorf("Expected 3 converted visits, got %d", cluster.ConvertedVisits)
	}
	if cluster.UniqueAmbassadors != 2 {
		t.Errorf("Expected 2 unique ambassadors, got %d", cluster.UniqueAmbassadors)
	}
	if len(cluster.ReferrerIDs) != 2 {
		t.Errorf("Expected 2 referrer ids, got %v", cluster.ReferrerIDs)
	}
}

func TestScanSpamKeywords(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFraudService(newTestRepo(db), testSettings())

	db.Create(&models.LandingPage{
		ReferrerID: 1,
		Title:      "Earn big",
		Content:    "Best CASINO bonuses and a free Lottery entry",
		Status:     models.LandingPageStatusPending,
	})
	db.Create(&models.LandingPage{
		ReferrerID: 2,
		Title:      "Honest review",
		Content:    "A thorough product walkthrough",
		Status:     models.LandingPageStatusApproved,
	})
	db.Create(&models.LandingPage{
		ReferrerID: 3,
		Title:      "Old spam",
		Content:    "casino casino casino",
		Status:     models.LandingPageStatusRejected,
	})

	report := svc.Scan(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	if report.SectionErrors != nil {
		t.Fatalf("Unexpected section errors: %v", report.SectionErrors)
	}
	if len(report.SpamFlags) != 1 {
		t.Fatalf("Expected exactly 1 spam flag, got %d", len(report.SpamFlags))
	}

	flag := report.SpamFlags[0]
	if flag.ReferrerID != 1 {
		t.Errorf("Expected flag on referrer 1, got %d", flag.ReferrerID)
	}
	if len(flag.MatchedKeywords) != 2 {
		t.Errorf("Expected case-insensitive matches on casino and lottery, got %v", flag.MatchedKeywords)
	}
}

func TestScanSectionErrorIsolation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFraudService(newTestRepo(db), testSettings())

	link := seedLink(t, db, 1, "ISOLAT")
	seedVisits(t, db, link, 25, 30*time.Minute)

	// Breaking one section's table must not take down the others.
	if err := db.Migrator().DropTable(&models.LandingPage{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	report := svc.Scan(context.Background(), time.Now().Add(-2*time.Hour), time.Now())

	if report.SectionErrors == nil || report.SectionErrors["spam"] == "" {
		t.Error("Expected a spam section error marker")
	}
	if len(report.VelocityViolations) != 1 {
		t.Errorf("Velocity section should still run, got %d violations", len(report.VelocityViolations))
	}
}

func TestScanReportTotalFlags(t *testing.T) {
	report := &ScanReport{
		VelocityViolations: []VelocityViolation{{}, {}},
		IPClusters:         []IPCluster{{}},
		SpamFlags:          []SpamFlag{},
	}
	if report.TotalFlags() != 3 {
		t.Errorf("Expected 3 total flags, got %d", report.TotalFlags())
	}
}
