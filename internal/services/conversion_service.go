package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-engine/internal/auth"
	"referral-engine/internal/config"
	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

// Conversion outcomes. NoAttribution and AlreadyConverted are valid
// soft results, not errors.
const (
	OutcomeConverted        = "converted"
	OutcomeNoAttribution    = "no_attribution"
	OutcomeAlreadyConverted = "already_converted"
)

// ConversionService matches conversion events to their originating
// visit, computes the commission and records the earning exactly once
// per visit.
type ConversionService struct {
	repo          *repository.Repository
	settings      *config.AffiliateSettings
	tiers         *TierService
	notifications *NotificationService
}

func NewConversionService(repo *repository.Repository, settings *config.AffiliateSettings, tiers *TierService, notifications *NotificationService) *ConversionService {
	return &ConversionService{
		repo:          repo,
		settings:      settings,
		tiers:         tiers,
		notifications: notifications,
	}
}

// RecordConversionInput carries a conversion event. Either Token
// (preferred) or Code identifies the attribution.
type RecordConversionInput struct {
	ConvertedUserID uint
	Code            string
	Token           string
	OrderValue      decimal.Decimal
	ProductID       *string
	SubscriptionID  *string
	BillingCycle    int
}

// ConversionResult reports the outcome. EarningID and amounts are only
// set when Outcome is OutcomeConverted.
type ConversionResult struct {
	Outcome          string
	EarningID        uint
	CommissionAmount decimal.Decimal
	BoostAmount      decimal.Decimal
	TotalAmount      decimal.Decimal
	Tier             string
}

// RecordConversion runs the conversion pipeline. The only hard
// atomicity guarantee lives in step two: the conditional
// unconverted→converted update decides a single winner, and that
// winner alone inserts the earning.
func (s *ConversionService) RecordConversion(ctx context.Context, input RecordConversionInput) (*ConversionResult, error) {
	visit, err := s.resolveVisit(ctx, input)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return &ConversionResult{Outcome: OutcomeNoAttribution}, nil
	}

	won, err := s.repo.MarkVisitConverted(ctx, visit.ID)
	if err != nil {
		return nil, fmt.Errorf("conversion transition failed: %w", err)
	}
	if !won {
		return &ConversionResult{Outcome: OutcomeAlreadyConverted}, nil
	}

	now := time.Now()

	rate, commissionType := s.resolveRate(ctx, visit.ReferrerID)

	var commission decimal.Decimal
	if commissionType == models.CommissionTypePercentage {
		commission = input.OrderValue.Mul(rate).Div(decimal.NewFromInt(100))
	} else {
		commission = rate
	}

	boost, boosted := s.resolveBoost(ctx, visit.ReferrerID, now)
	total := commission.Add(boost)

	billingCycle := input.BillingCycle
	if billingCycle < 1 {
		billingCycle = 1
	}

	earning := models.AmbassadorEarning{
		ReferrerID:     visit.ReferrerID,
		VisitID:        visit.ID,
		OrderValue:     input.OrderValue,
		Amount:         total,
		CommissionRate: rate,
		CommissionType: commissionType,
		Boosted:        boosted,
		BoostAmount:    boost,
		TierAtEarning:  s.tiers.CurrentTier(ctx, visit.ReferrerID),
		Status:         models.EarningStatusPending,
		TaxYear:        now.Year(),
		ProductID:      input.ProductID,
		SubscriptionID: input.SubscriptionID,
		BillingCycle:   billingCycle,
	}

	if err := s.repo.CreateEarning(ctx, &earning); err != nil {
		return nil, fmt.Errorf("failed to record earning: %w", err)
	}

	if err := s.repo.FinalizeVisitConversion(ctx, visit.ID, input.OrderValue, input.ConvertedUserID, now); err != nil {
		return nil, fmt.Errorf("failed to finalize visit conversion: %w", err)
	}

	if err := s.repo.IncrementLinkConversions(ctx, visit.LinkID); err != nil {
		log.Printf("Failed to increment conversion counter for link %d: %v", visit.LinkID, err)
	}

	tier := earning.TierAtEarning
	if s.settings.Features.TieredCommissions {
		newTier, err := s.tiers.Recompute(ctx, visit.ReferrerID)
		if err != nil {
			log.Printf("Tier recompute failed for referrer %d: %v", visit.ReferrerID, err)
		} else {
			tier = newTier
		}
	}

	s.notifyConversion(ctx, visit, earning.ID, total)

	return &ConversionResult{
		Outcome:          OutcomeConverted,
		EarningID:        earning.ID,
		CommissionAmount: commission,
		BoostAmount:      boost,
		TotalAmount:      total,
		Tier:             tier,
	}, nil
}

// resolveVisit finds the attributed unconverted visit. A nil visit
// with nil error means no attribution.
func (s *ConversionService) resolveVisit(ctx context.Context, input RecordConversionInput) (*models.ReferralVisit, error) {
	if input.Token != "" {
		claims, err := auth.ParseAttributionToken(input.Token)
		if err != nil {
			// Expired or garbled token: the attribution window has
			// closed, treat as no attribution.
			return nil, nil
		}
		visit, err := s.repo.FindVisitByID(ctx, claims.VisitID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to load attributed visit: %w", err)
		}
		return visit, nil
	}

	link, err := s.repo.FindActiveLinkByCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	since := time.Now().Add(-s.settings.AttributionWindow())
	visit, err := s.repo.LatestUnconvertedVisit(ctx, link.ID, since)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find unconverted visit: %w", err)
	}
	return visit, nil
}

// resolveRate applies the precedence chain: active override, then
// stored tier (when tiered commissions are enabled), then the
// configured default. Malformed values fall back to the default rather
// than failing the conversion.
func (s *ConversionService) resolveRate(ctx context.Context, referrerID uint) (decimal.Decimal, string) {
	override, err := s.repo.ActiveOverrideForReferrer(ctx, referrerID)
	if err == nil {
		rate := override.Rate
		commissionType := override.Type
		if commissionType != models.CommissionTypePercentage && commissionType != models.CommissionTypeFlat {
			commissionType = s.settings.DefaultCommissionType
		}
		if rate.IsNegative() {
			rate = s.settings.DefaultCommissionRate
		}
		return rate, commissionType
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Override lookup failed for referrer %d, falling back: %v", referrerID, err)
	}

	if s.settings.Features.TieredCommissions {
		// The stored tier, not a freshly recomputed one.
		tier := s.tiers.CurrentTier(ctx, referrerID)
		return s.settings.TierRate(tier), models.CommissionTypePercentage
	}

	return s.settings.DefaultCommissionRate, s.settings.DefaultCommissionType
}

// resolveBoost returns the additive campaign boost, or zero when the
// campaign is off, outside its window, or the referrer is ineligible.
func (s *ConversionService) resolveBoost(ctx context.Context, referrerID uint, now time.Time) (decimal.Decimal, bool) {
	if !s.settings.Features.CampaignBoost {
		return decimal.Zero, false
	}

	boost := s.settings.Boost
	if boost.StartsAt != nil && now.Before(*boost.StartsAt) {
		return decimal.Zero, false
	}
	if boost.EndsAt != nil && now.After(*boost.EndsAt) {
		return decimal.Zero, false
	}

	record, err := s.repo.BoostForReferrer(ctx, referrerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Boost lookup failed for referrer %d: %v", referrerID, err)
		return decimal.Zero, false
	}

	if record != nil {
		return record.Amount, true
	}
	if boost.Target == "all" {
		return boost.Amount, true
	}
	return decimal.Zero, false
}

// notifyConversion enqueues the dispatcher record when the link opted
// in. Fire-and-forget: a failure here never fails the conversion.
func (s *ConversionService) notifyConversion(ctx context.Context, visit *models.ReferralVisit, earningID uint, total decimal.Decimal) {
	link, err := s.repo.FindLinkByID(ctx, visit.LinkID)
	if err != nil {
		log.Printf("Failed to load link %d for conversion notification: %v", visit.LinkID, err)
		return
	}
	if !link.NotificationsEnabled {
		return
	}

	err = s.notifications.Enqueue(ctx, models.NotificationTypeConversion, visit.ReferrerID, map[string]interface{}{
		"earning_id": earningID,
		"visit_id":   visit.ID,
		"amount":     total.String(),
	})
	if err != nil {
		log.Printf("Failed to enqueue conversion notification for referrer %d: %v", visit.ReferrerID, err)
	}
}
