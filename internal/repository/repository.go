package repository

import (
	"context"
	"time"

	"referral-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the attribution store: durable records of links,
// visits, earnings and tiers with indexed lookups. It holds no
// business logic; every write is a single-row atomic operation.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Referral links ---

// FindActiveLinkByCode resolves a referral code to an active link.
func (r *Repository) FindActiveLinkByCode(ctx context.Context, code string) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// FindLinkByID retrieves a link regardless of active state.
func (r *Repository) FindLinkByID(ctx context.Context, linkID uint) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateLink creates a new referral link
func (r *Repository) CreateLink(ctx context.Context, link *models.ReferralLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// IncrementLinkClicks bumps the click counter. Advisory only; races
// here affect counters, never commissions.
func (r *Repository) IncrementLinkClicks(ctx context.Context, linkID uint) error {
	return r.db.WithContext(ctx).Model(&models.ReferralLink{}).
		Where("id = ?", linkID).
		Update("click_count", gorm.Expr("click_count + 1")).Error
}

// IncrementLinkConversions bumps the conversion counter.
func (r *Repository) IncrementLinkConversions(ctx context.Context, linkID uint) error {
	return r.db.WithContext(ctx).Model(&models.ReferralLink{}).
		Where("id = ?", linkID).
		Update("conversion_count", gorm.Expr("conversion_count + 1")).Error
}

// --- Referral visits ---

// CreateVisit creates a new visit record
func (r *Repository) CreateVisit(ctx context.Context, visit *models.ReferralVisit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

// FindVisitByID retrieves a visit by ID
func (r *Repository) FindVisitByID(ctx context.Context, visitID uint) (*models.ReferralVisit, error) {
	var visit models.ReferralVisit
	err := r.db.WithContext(ctx).Where("id = ?", visitID).First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// FindRecentVisitByHash finds a visit on the dedup key
// (link, ip-hash, trailing window).
func (r *Repository) FindRecentVisitByHash(ctx context.Context, linkID uint, ipHash string, since time.Time) (*models.ReferralVisit, error) {
	var visit models.ReferralVisit
	err := r.db.WithContext(ctx).
		Where("link_id = ? AND ip_hash = ? AND created_at >= ?", linkID, ipHash, since).
		Order("created_at DESC").
		First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// CountReferrerVisitsSince counts a referrer's visits in a trailing window.
func (r *Repository) CountReferrerVisitsSince(ctx context.Context, referrerID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Where("referrer_id = ? AND created_at >= ?", referrerID, since).
		Count(&count).Error
	return count, err
}

// CountVisitsByIPSince counts visits from one raw IP in a trailing window.
func (r *Repository) CountVisitsByIPSince(ctx context.Context, ipAddress string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Where("ip_address = ? AND created_at >= ?", ipAddress, since).
		Count(&count).Error
	return count, err
}

// LatestUnconvertedVisit returns the most recent unconverted visit for
// a link within the attribution window.
func (r *Repository) LatestUnconvertedVisit(ctx context.Context, linkID uint, since time.Time) (*models.ReferralVisit, error) {
	var visit models.ReferralVisit
	err := r.db.WithContext(ctx).
		Where("link_id = ? AND converted = ? AND created_at >= ?", linkID, false, since).
		Order("created_at DESC").
		First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// MarkVisitConverted attempts the one-way unconverted→converted
// transition as a conditional update. Concurrent callers race safely:
// exactly one sees true, the rest see zero rows affected.
func (r *Repository) MarkVisitConverted(ctx context.Context, visitID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Where("id = ? AND converted = ?", visitID, false).
		Update("converted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FinalizeVisitConversion records the conversion details after the
// winner of MarkVisitConverted has inserted the earning.
func (r *Repository) FinalizeVisitConversion(ctx context.Context, visitID uint, value decimal.Decimal, convertedUserID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ReferralVisit{}).
		Where("id = ?", visitID).
		Updates(map[string]interface{}{
			"conversion_value":  value,
			"converted_at":      at,
			"converted_user_id": convertedUserID,
		}).Error
}

// --- Earnings ---

// CreateEarning inserts a pending earning. The unique index on
// visit_id backstops the at-most-one-earning-per-visit invariant.
func (r *Repository) CreateEarning(ctx context.Context, earning *models.AmbassadorEarning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

// ListEarnings returns earnings filtered by status and tax year for
// the external reporting reader. Zero values skip the filter.
func (r *Repository) ListEarnings(ctx context.Context, status string, taxYear int, limit, offset int) ([]models.AmbassadorEarning, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AmbassadorEarning{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if taxYear > 0 {
		query = query.Where("tax_year = ?", taxYear)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var earnings []models.AmbassadorEarning
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&earnings).Error
	if err != nil {
		return nil, 0, err
	}
	return earnings, total, nil
}

// --- Ambassador tiers ---

// EnsureTierRow creates the tier row for a referrer if absent.
func (r *Repository) EnsureTierRow(ctx context.Context, referrerID uint, monthAnchor time.Time) error {
	tier := models.AmbassadorTier{
		ReferrerID:  referrerID,
		CurrentTier: models.TierBronze,
		MonthAnchor: monthAnchor,
	}
	return r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		FirstOrCreate(&tier).Error
}

// GetTier retrieves a referrer's tier row
func (r *Repository) GetTier(ctx context.Context, referrerID uint) (*models.AmbassadorTier, error) {
	var tier models.AmbassadorTier
	err := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// ResetTierMonthIfStale zeroes the rolling count when the month has
// rolled over. Conditional update, so concurrent recomputes for the
// same referrer reset at most once.
func (r *Repository) ResetTierMonthIfStale(ctx context.Context, referrerID uint, monthAnchor time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AmbassadorTier{}).
		Where("referrer_id = ? AND month_anchor < ? AND locked = ?", referrerID, monthAnchor, false).
		Updates(map[string]interface{}{
			"monthly_conversion_count": 0,
			"month_anchor":             monthAnchor,
		}).Error
}

// IncrementTierCount atomically bumps the rolling monthly count unless
// the row is locked. Returns false when the lock suppressed the write.
func (r *Repository) IncrementTierCount(ctx context.Context, referrerID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AmbassadorTier{}).
		Where("referrer_id = ? AND locked = ?", referrerID, false).
		Update("monthly_conversion_count", gorm.Expr("monthly_conversion_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetTier writes the derived tier, again guarded by the lock flag.
func (r *Repository) SetTier(ctx context.Context, referrerID uint, tier string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AmbassadorTier{}).
		Where("referrer_id = ? AND locked = ?", referrerID, false).
		Updates(map[string]interface{}{
			"current_tier":      tier,
			"last_recompute_at": at,
		}).Error
}

// SetTierLock flips the manual lock flag.
func (r *Repository) SetTierLock(ctx context.Context, referrerID uint, locked bool) error {
	result := r.db.WithContext(ctx).Model(&models.AmbassadorTier{}).
		Where("referrer_id = ?", referrerID).
		Update("locked", locked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Overrides and boosts ---

// ActiveOverrideForReferrer returns the active commission override for
// a referrer, if any.
func (r *Repository) ActiveOverrideForReferrer(ctx context.Context, referrerID uint) (*models.CommissionOverride, error) {
	var override models.CommissionOverride
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND is_active = ?", referrerID, true).
		Order("created_at DESC").
		First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// BoostForReferrer returns the per-ambassador boost record, if any.
func (r *Repository) BoostForReferrer(ctx context.Context, referrerID uint) (*models.CampaignBoost, error) {
	var boost models.CampaignBoost
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND is_active = ?", referrerID, true).
		First(&boost).Error
	if err != nil {
		return nil, err
	}
	return &boost, nil
}
