package services

import (
	"context"
	"strings"
	"testing"

	"referral-engine/internal/models"
)

func TestProvisionLink(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(newTestRepo(db))

	link, err := svc.ProvisionLink(context.Background(), 1, "", true, 100)
	if err != nil {
		t.Fatalf("ProvisionLink failed: %v", err)
	}
	if len(link.Code) == 0 || len(link.Code) > 10 {
		t.Errorf("Expected a short generated code, got %q", link.Code)
	}
	if !link.IsActive {
		t.Error("Provisioned link should be active")
	}
	if link.LinkType != "general" {
		t.Errorf("Empty link type should default to general, got %q", link.LinkType)
	}

	var auditCount int64
	db.Model(&models.AuditLog{}).Where("action = ?", "link.provision").Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("Expected a link.provision audit entry, got %d", auditCount)
	}
}

func TestProvisionLinkCodesAreUnique(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(newTestRepo(db))

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		link, err := svc.ProvisionLink(context.Background(), uint(i+1), "general", true, 100)
		if err != nil {
			t.Fatalf("ProvisionLink failed: %v", err)
		}
		if seen[link.Code] {
			t.Fatalf("Duplicate code generated: %s", link.Code)
		}
		seen[link.Code] = true
	}
}

func TestGenerateReferralCode(t *testing.T) {
	const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	for i := 0; i < 10; i++ {
		code, err := generateReferralCode()
		if err != nil {
			t.Fatalf("generateReferralCode failed: %v", err)
		}
		if len(code) == 0 || len(code) > referralCodeLength {
			t.Errorf("Unexpected code length: %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(base58Alphabet, r) {
				t.Errorf("Code %q contains %q outside the base58 alphabet", code, r)
			}
		}
	}
}
