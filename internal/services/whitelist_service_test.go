package services

import (
	"context"
	"errors"
	"testing"

	"referral-engine/internal/models"
)

func TestWhitelistAddAndList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWhitelistService(newTestRepo(db))

	entry, err := svc.Add(context.Background(), "198.51.100.1", "office NAT", 100)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.IPAddress != "198.51.100.1" || entry.AddedBy != 100 {
		t.Errorf("Entry fields not recorded: %+v", entry)
	}

	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}

	var auditCount int64
	db.Model(&models.AuditLog{}).Where("action = ?", "whitelist.add").Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("Expected a whitelist.add audit entry, got %d", auditCount)
	}
}

func TestWhitelistDuplicateRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWhitelistService(newTestRepo(db))

	if _, err := svc.Add(context.Background(), "198.51.100.2", "first", 100); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err := svc.Add(context.Background(), "198.51.100.2", "again", 100)
	if !errors.Is(err, ErrDuplicateWhitelistEntry) {
		t.Errorf("Expected ErrDuplicateWhitelistEntry, got %v", err)
	}
}

func TestWhitelistRemove(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWhitelistService(newTestRepo(db))

	if _, err := svc.Add(context.Background(), "198.51.100.3", "temp", 100); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := svc.Remove(context.Background(), "198.51.100.3", 100); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var count int64
	db.Model(&models.WhitelistedIP{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected entry removed, %d remain", count)
	}

	var auditCount int64
	db.Model(&models.AuditLog{}).Where("action = ?", "whitelist.remove").Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("Expected a whitelist.remove audit entry, got %d", auditCount)
	}
}

func TestWhitelistRemoveMissing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWhitelistService(newTestRepo(db))

	err := svc.Remove(context.Background(), "198.51.100.4", 100)
	if !errors.Is(err, ErrWhitelistEntryNotFound) {
		t.Errorf("Expected ErrWhitelistEntryNotFound, got %v", err)
	}
}
