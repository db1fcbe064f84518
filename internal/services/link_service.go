package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/mr-tron/base58"

	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

const (
	referralCodeLength    = 10
	codeGenerationTries   = 5
	codeGenerationEntropy = 8
)

// LinkService provisions referral links. Link lifecycle otherwise
// belongs to the external admin surface; this core only needs codes
// that resolve and counters to bump.
type LinkService struct {
	repo *repository.Repository
}

func NewLinkService(repo *repository.Repository) *LinkService {
	return &LinkService{repo: repo}
}

// ProvisionLink creates an active link with a generated code. Retries
// on the unlikely code collision.
func (s *LinkService) ProvisionLink(ctx context.Context, referrerID uint, linkType string, notificationsEnabled bool, actorID uint) (*models.ReferralLink, error) {
	if linkType == "" {
		linkType = "general"
	}

	var link *models.ReferralLink
	for attempt := 0; attempt < codeGenerationTries; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return nil, err
		}

		candidate := models.ReferralLink{
			ReferrerID:           referrerID,
			Code:                 code,
			LinkType:             linkType,
			IsActive:             true,
			NotificationsEnabled: notificationsEnabled,
		}
		if err := s.repo.CreateLink(ctx, &candidate); err != nil {
			if attempt < codeGenerationTries-1 {
				continue
			}
			return nil, fmt.Errorf("failed to create referral link: %w", err)
		}
		link = &candidate
		break
	}

	if link == nil {
		return nil, fmt.Errorf("exhausted referral code generation attempts")
	}

	err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		ActorID:      actorID,
		Action:       "link.provision",
		ResourceType: "referral_link",
		ResourceID:   &link.ID,
		Details: models.JSONB{
			"referrer_id": referrerID,
			"code":        link.Code,
		},
	})
	if err != nil {
		log.Printf("Failed to write audit log for link.provision: %v", err)
	}

	return link, nil
}

// generateReferralCode produces a short base58 code: no ambiguous
// characters, URL-safe as-is.
func generateReferralCode() (string, error) {
	buf := make([]byte, codeGenerationEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}

	code := base58.Encode(buf)
	if len(code) > referralCodeLength {
		code = code[:referralCodeLength]
	}
	return code, nil
}
