package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

// WhitelistService manages the IPs excluded from the clustering scan.
// Every mutation leaves an audit entry.
type WhitelistService struct {
	repo *repository.Repository
}

func NewWhitelistService(repo *repository.Repository) *WhitelistService {
	return &WhitelistService{repo: repo}
}

// Add whitelists an IP with a reason. Duplicate adds are rejected.
func (s *WhitelistService) Add(ctx context.Context, ipAddress, reason string, actorID uint) (*models.WhitelistedIP, error) {
	_, err := s.repo.FindWhitelistedIP(ctx, ipAddress)
	if err == nil {
		return nil, ErrDuplicateWhitelistEntry
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("whitelist lookup failed: %w", err)
	}

	entry := models.WhitelistedIP{
		IPAddress: ipAddress,
		Reason:    reason,
		AddedBy:   actorID,
	}
	if err := s.repo.CreateWhitelistedIP(ctx, &entry); err != nil {
		return nil, fmt.Errorf("failed to create whitelist entry: %w", err)
	}

	s.audit(ctx, actorID, "whitelist.add", &entry.ID, models.JSONB{
		"ip_address": ipAddress,
		"reason":     reason,
	})

	return &entry, nil
}

// Remove deletes a whitelist entry by IP.
func (s *WhitelistService) Remove(ctx context.Context, ipAddress string, actorID uint) error {
	removed, err := s.repo.DeleteWhitelistedIP(ctx, ipAddress)
	if err != nil {
		return fmt.Errorf("failed to remove whitelist entry: %w", err)
	}
	if !removed {
		return ErrWhitelistEntryNotFound
	}

	s.audit(ctx, actorID, "whitelist.remove", nil, models.JSONB{
		"ip_address": ipAddress,
	})

	return nil
}

// List returns all whitelist entries.
func (s *WhitelistService) List(ctx context.Context) ([]models.WhitelistedIP, error) {
	return s.repo.ListWhitelistedIPs(ctx)
}

func (s *WhitelistService) audit(ctx context.Context, actorID uint, action string, resourceID *uint, details models.JSONB) {
	err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: "whitelisted_ip",
		ResourceID:   resourceID,
		Details:      details,
	})
	if err != nil {
		log.Printf("Failed to write audit log for %s: %v", action, err)
	}
}
