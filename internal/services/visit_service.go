package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"referral-engine/internal/auth"
	"referral-engine/internal/config"
	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

const (
	// Dedup and per-IP velocity both use a trailing 24h window.
	visitDedupWindow = 24 * time.Hour

	maxUserAgentLength = 256
)

// VisitService validates referral codes, deduplicates repeat visits,
// enforces velocity limits and persists privacy-reduced visit records.
type VisitService struct {
	repo     *repository.Repository
	settings *config.AffiliateSettings
	hashSalt string
}

func NewVisitService(repo *repository.Repository, settings *config.AffiliateSettings, hashSalt string) *VisitService {
	return &VisitService{
		repo:     repo,
		settings: settings,
		hashSalt: hashSalt,
	}
}

// RecordVisitInput carries the raw request fields. IPAddress and
// UserAgent arrive untransformed; the service owns the privacy
// reduction.
type RecordVisitInput struct {
	Code        string
	IPAddress   string
	UserAgent   string
	ReferrerURL string
	LandingURL  string
}

// RecordVisitResult is returned on success. Deduplicated is true when
// an existing visit inside the dedup window was reused.
type RecordVisitResult struct {
	VisitID          uint
	AttributionToken string
	Deduplicated     bool
}

// RecordVisit implements the visit write path: code validation,
// velocity limits, 24h dedup, privacy transform, click counter and
// attribution token.
func (s *VisitService) RecordVisit(ctx context.Context, input RecordVisitInput) (*RecordVisitResult, error) {
	link, err := s.repo.FindActiveLinkByCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	now := time.Now()

	if s.settings.Features.VelocityLimits {
		if err := s.checkVelocity(ctx, link.ReferrerID, input.IPAddress, now); err != nil {
			return nil, err
		}
	}

	ipHash := s.HashIP(input.IPAddress)

	// Best-effort dedup: a racing insert may occasionally slip through,
	// which only affects click counters, never commissions.
	existing, err := s.repo.FindRecentVisitByHash(ctx, link.ID, ipHash, now.Add(-visitDedupWindow))
	if err == nil {
		token, tokenErr := auth.GenerateAttributionToken(existing.ID, link.Code, s.settings.AttributionWindow())
		if tokenErr != nil {
			return nil, fmt.Errorf("failed to issue attribution token: %w", tokenErr)
		}
		return &RecordVisitResult{
			VisitID:          existing.ID,
			AttributionToken: token,
			Deduplicated:     true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("visit dedup lookup failed: %w", err)
	}

	visit := models.ReferralVisit{
		LinkID:      link.ID,
		ReferrerID:  link.ReferrerID,
		IPAddress:   input.IPAddress,
		IPHash:      ipHash,
		UserAgent:   truncateUserAgent(input.UserAgent),
		ReferrerURL: input.ReferrerURL,
		LandingURL:  input.LandingURL,
	}

	if err := s.repo.CreateVisit(ctx, &visit); err != nil {
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}

	// Advisory counter; a failed increment is logged, not surfaced.
	if err := s.repo.IncrementLinkClicks(ctx, link.ID); err != nil {
		log.Printf("Failed to increment click counter for link %d: %v", link.ID, err)
	}

	token, err := auth.GenerateAttributionToken(visit.ID, link.Code, s.settings.AttributionWindow())
	if err != nil {
		return nil, fmt.Errorf("failed to issue attribution token: %w", err)
	}

	return &RecordVisitResult{
		VisitID:          visit.ID,
		AttributionToken: token,
	}, nil
}

// checkVelocity enforces the per-referrer hourly cap and the
// per-IP daily signup cap. The counters are advisory fraud signals,
// not safety-critical state, so a plain read-then-insert is enough.
func (s *VisitService) checkVelocity(ctx context.Context, referrerID uint, ipAddress string, now time.Time) error {
	hourly, err := s.repo.CountReferrerVisitsSince(ctx, referrerID, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("hourly velocity lookup failed: %w", err)
	}
	if hourly >= int64(s.settings.MaxVisitsPerHour) {
		return ErrRateLimited
	}

	perIP, err := s.repo.CountVisitsByIPSince(ctx, ipAddress, now.Add(-visitDedupWindow))
	if err != nil {
		return fmt.Errorf("per-ip velocity lookup failed: %w", err)
	}
	if perIP >= int64(s.settings.MaxSignupsPerIPPerDay) {
		return ErrRateLimited
	}

	return nil
}

// HashIP computes the irreversible, salted hash used for dedup and
// long-term storage of visitor identity.
func (s *VisitService) HashIP(ipAddress string) string {
	sum := sha256.Sum256([]byte(s.hashSalt + ipAddress))
	return hex.EncodeToString(sum[:])
}

// truncateUserAgent keeps a length-bounded, non-identifying slice of
// the raw user agent.
func truncateUserAgent(userAgent string) string {
	if len(userAgent) > maxUserAgentLength {
		return userAgent[:maxUserAgentLength]
	}
	return userAgent
}
