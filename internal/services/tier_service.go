package services

import (
	"context"
	"log"
	"time"

	"referral-engine/internal/config"
	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

// TierService maintains each ambassador's rolling monthly conversion
// count and derives the commission tier from it. All writes are
// conditional on the lock flag, so a manual lock freezes automatic
// transitions without blocking other referrers.
type TierService struct {
	repo          *repository.Repository
	settings      *config.AffiliateSettings
	notifications *NotificationService
}

func NewTierService(repo *repository.Repository, settings *config.AffiliateSettings, notifications *NotificationService) *TierService {
	return &TierService{
		repo:          repo,
		settings:      settings,
		notifications: notifications,
	}
}

// tierThreshold maps a minimum rolling monthly conversion count to a
// tier. The table is evaluated in order, highest tier first.
type tierThreshold struct {
	Tier           string
	MinConversions int
}

// thresholdTable builds the ordered threshold table from settings.
func thresholdTable(settings *config.AffiliateSettings) []tierThreshold {
	return []tierThreshold{
		{models.TierGold, settings.GoldThreshold},
		{models.TierSilver, settings.SilverThreshold},
		{models.TierBronze, 0},
	}
}

// tierForCount returns the first tier whose threshold the count meets.
func tierForCount(count int, settings *config.AffiliateSettings) string {
	for _, threshold := range thresholdTable(settings) {
		if count >= threshold.MinConversions {
			return threshold.Tier
		}
	}
	return models.TierBronze
}

// Recompute increments the referrer's rolling monthly count and
// re-derives the tier. It is a no-op returning the stored tier when
// the row is locked. Serialization per referrer comes from the
// conditional single-row updates; recomputes for different referrers
// are fully independent.
func (s *TierService) Recompute(ctx context.Context, referrerID uint) (string, error) {
	now := time.Now().UTC()
	anchor := startOfMonth(now)

	if err := s.repo.EnsureTierRow(ctx, referrerID, anchor); err != nil {
		return "", err
	}

	if err := s.repo.ResetTierMonthIfStale(ctx, referrerID, anchor); err != nil {
		return "", err
	}

	incremented, err := s.repo.IncrementTierCount(ctx, referrerID)
	if err != nil {
		return "", err
	}

	row, err := s.repo.GetTier(ctx, referrerID)
	if err != nil {
		return "", err
	}

	if !incremented {
		// Locked: manual override in effect, keep the stored tier.
		return row.CurrentTier, nil
	}

	newTier := tierForCount(row.MonthlyConversionCount, s.settings)
	if err := s.repo.SetTier(ctx, referrerID, newTier, now); err != nil {
		return "", err
	}

	if newTier != row.CurrentTier {
		log.Printf("Tier change for referrer %d: %s -> %s (monthly conversions: %d)",
			referrerID, row.CurrentTier, newTier, row.MonthlyConversionCount)
		s.notifyTierChange(ctx, referrerID, row.CurrentTier, newTier)
	}

	return newTier, nil
}

// CurrentTier returns the stored tier for a referrer, defaulting to
// bronze when no row exists yet.
func (s *TierService) CurrentTier(ctx context.Context, referrerID uint) string {
	row, err := s.repo.GetTier(ctx, referrerID)
	if err != nil {
		return models.TierBronze
	}
	return row.CurrentTier
}

// Lock freezes automatic tier recompute for a referrer. Administrative
// action: writes an audit entry and notifies the ambassador.
func (s *TierService) Lock(ctx context.Context, referrerID uint, actorID uint) error {
	return s.setLock(ctx, referrerID, actorID, true)
}

// Unlock clears the manual tier lock.
func (s *TierService) Unlock(ctx context.Context, referrerID uint, actorID uint) error {
	return s.setLock(ctx, referrerID, actorID, false)
}

func (s *TierService) setLock(ctx context.Context, referrerID uint, actorID uint, locked bool) error {
	if err := s.repo.EnsureTierRow(ctx, referrerID, startOfMonth(time.Now().UTC())); err != nil {
		return err
	}

	if err := s.repo.SetTierLock(ctx, referrerID, locked); err != nil {
		return err
	}

	action := "tier.lock"
	if !locked {
		action = "tier.unlock"
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: "ambassador_tier",
		ResourceID:   &referrerID,
	}); err != nil {
		log.Printf("Failed to write audit log for %s on referrer %d: %v", action, referrerID, err)
	}

	if err := s.notifications.Enqueue(ctx, models.NotificationTypeTierLock, referrerID, map[string]interface{}{
		"locked": locked,
	}); err != nil {
		log.Printf("Failed to enqueue tier lock notification for referrer %d: %v", referrerID, err)
	}

	return nil
}

func (s *TierService) notifyTierChange(ctx context.Context, referrerID uint, oldTier, newTier string) {
	err := s.notifications.Enqueue(ctx, models.NotificationTypeTierChange, referrerID, map[string]interface{}{
		"old_tier": oldTier,
		"new_tier": newTier,
	})
	if err != nil {
		log.Printf("Failed to enqueue tier change notification for referrer %d: %v", referrerID, err)
	}
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
