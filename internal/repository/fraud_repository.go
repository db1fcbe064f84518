package repository

import (
	"context"
	"time"

	"referral-engine/internal/models"
)

// ReferrerVisitCount is a grouped per-referrer visit count used by the
// velocity scan.
type ReferrerVisitCount struct {
	ReferrerID uint  `json:"referrer_id"`
	Count      int64 `json:"count"`
}

// IPConversionGroup is a grouped per-IP converted-visit count used by
// the clustering scan.
type IPConversionGroup struct {
	IPAddress         string `json:"ip_address"`
	ConvertedVisits   int64  `json:"converted_visits"`
	UniqueAmbassadors int64  `json:"unique_ambassadors"`
}

// CountVisitsByReferrer groups visit counts per referrer in a range.
func (r *Repository) CountVisitsByReferrer(ctx context.Context, from, to time.Time) ([]ReferrerVisitCount, error) {
	var rows []ReferrerVisitCount
	err := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Select("referrer_id, count(*) as count").
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("referrer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConvertedVisitGroupsByIP groups converted visits per raw IP in a
// range. Whitelist filtering happens in the caller.
func (r *Repository) ConvertedVisitGroupsByIP(ctx context.Context, from, to time.Time) ([]IPConversionGroup, error) {
	var rows []IPConversionGroup
	err := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Select("ip_address, count(*) as converted_visits, count(distinct referrer_id) as unique_ambassadors").
		Where("converted = ? AND created_at BETWEEN ? AND ?", true, from, to).
		Group("ip_address").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReferrerIDsForConvertedIP lists the distinct referrers behind one
// clustered IP.
func (r *Repository) ReferrerIDsForConvertedIP(ctx context.Context, ipAddress string, from, to time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Where("ip_address = ? AND converted = ? AND created_at BETWEEN ? AND ?", ipAddress, true, from, to).
		Distinct("referrer_id").
		Pluck("referrer_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Whitelist ---

// FindWhitelistedIP looks up a whitelist entry by IP address.
func (r *Repository) FindWhitelistedIP(ctx context.Context, ipAddress string) (*models.WhitelistedIP, error) {
	var entry models.WhitelistedIP
	err := r.db.WithContext(ctx).Where("ip_address = ?", ipAddress).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListWhitelistedIPs returns all whitelist entries.
func (r *Repository) ListWhitelistedIPs(ctx context.Context) ([]models.WhitelistedIP, error) {
	var entries []models.WhitelistedIP
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateWhitelistedIP creates a whitelist entry
func (r *Repository) CreateWhitelistedIP(ctx context.Context, entry *models.WhitelistedIP) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteWhitelistedIP removes a whitelist entry, reporting whether a
// row actually existed.
func (r *Repository) DeleteWhitelistedIP(ctx context.Context, ipAddress string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("ip_address = ?", ipAddress).
		Delete(&models.WhitelistedIP{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// --- Landing pages ---

// ListLandingPagesByStatus returns pages in any of the given states.
func (r *Repository) ListLandingPagesByStatus(ctx context.Context, statuses ...string) ([]models.LandingPage, error) {
	var pages []models.LandingPage
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}
