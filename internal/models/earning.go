package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earning statuses. An earning is immutable once it leaves PENDING,
// except for status and timestamp transitions.
const (
	EarningStatusPending   = "pending"
	EarningStatusApproved  = "approved"
	EarningStatusPaid      = "paid"
	EarningStatusCancelled = "cancelled"
)

// Commission tiers ordered bronze < silver < gold.
const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

// Commission types.
const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFlat       = "flat"
)

// AmbassadorEarning is a commission record created exactly once per
// converted visit. The rate, type, tier and boost columns are snapshots
// taken at conversion time.
type AmbassadorEarning struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReferrerID     uint            `gorm:"not null;index" json:"referrer_id"`
	VisitID        uint            `gorm:"not null;uniqueIndex" json:"visit_id"`
	Visit          *ReferralVisit  `gorm:"foreignKey:VisitID" json:"visit,omitempty"`
	OrderValue     decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"order_value"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"commission_rate"`
	CommissionType string          `gorm:"size:20;not null" json:"commission_type"`
	Boosted        bool            `gorm:"default:false" json:"boosted"`
	BoostAmount    decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"boost_amount"`
	TierAtEarning  string          `gorm:"size:10;not null" json:"tier_at_earning"`
	Status         string          `gorm:"size:20;default:pending;index" json:"status"`
	TaxYear        int             `gorm:"not null;index" json:"tax_year"`
	ProductID      *string         `gorm:"size:100" json:"product_id,omitempty"`
	SubscriptionID *string         `gorm:"size:100" json:"subscription_id,omitempty"`
	BillingCycle   int             `gorm:"default:1" json:"billing_cycle"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (AmbassadorEarning) TableName() string {
	return "ambassador_earnings"
}

// AmbassadorTier tracks the rolling monthly conversion count and the
// tier derived from it. Locked suspends automatic recompute; it is an
// orthogonal flag, not a tier value.
type AmbassadorTier struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	ReferrerID             uint       `gorm:"uniqueIndex;not null" json:"referrer_id"`
	CurrentTier            string     `gorm:"size:10;default:bronze" json:"current_tier"`
	MonthlyConversionCount int        `gorm:"default:0" json:"monthly_conversion_count"`
	MonthAnchor            time.Time  `gorm:"not null" json:"month_anchor"`
	LastRecomputeAt        *time.Time `json:"last_recompute_at,omitempty"`
	Locked                 bool       `gorm:"default:false" json:"locked"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (AmbassadorTier) TableName() string {
	return "ambassador_tiers"
}

// CommissionOverride takes precedence over tier and default rates
// while active.
type CommissionOverride struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ReferrerID uint            `gorm:"not null;index" json:"referrer_id"`
	Rate       decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"rate"`
	Type       string          `gorm:"size:20;not null" json:"type"`
	IsActive   bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (CommissionOverride) TableName() string {
	return "commission_overrides"
}

// CampaignBoost is a per-ambassador boost record. When the campaign
// targets "selected", only referrers with an active row here are
// eligible; its amount wins over the globally configured one.
type CampaignBoost struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ReferrerID uint            `gorm:"uniqueIndex;not null" json:"referrer_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (CampaignBoost) TableName() string {
	return "campaign_boosts"
}
