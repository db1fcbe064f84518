package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralLink represents a tagged link owned by an ambassador.
// Links are provisioned by the admin surface; the attribution core
// only mutates the click/conversion counters.
type ReferralLink struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ReferrerID           uint      `gorm:"not null;index" json:"referrer_id"`
	Code                 string    `gorm:"uniqueIndex;not null;size:50" json:"code"`
	LinkType             string    `gorm:"size:30;default:general" json:"link_type"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	NotificationsEnabled bool      `gorm:"default:true" json:"notifications_enabled"`
	ClickCount           int64     `gorm:"default:0" json:"click_count"`
	ConversionCount      int64     `gorm:"default:0" json:"conversion_count"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (ReferralLink) TableName() string {
	return "referral_links"
}

// ReferralVisit represents one recorded arrival via a tagged link.
// The raw IP is retained only for short-term fraud correlation and is
// access-restricted; IPHash is the irreversible dedup key. Converted
// flips false→true exactly once via a conditional update.
type ReferralVisit struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	LinkID          uint            `gorm:"not null;index:idx_visit_dedup,priority:1" json:"link_id"`
	Link            *ReferralLink   `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	ReferrerID      uint            `gorm:"not null;index" json:"referrer_id"`
	IPAddress       string          `gorm:"size:45;index" json:"-"`
	IPHash          string          `gorm:"size:64;not null;index:idx_visit_dedup,priority:2" json:"ip_hash"`
	UserAgent       string          `gorm:"size:256" json:"user_agent"`
	ReferrerURL     string          `gorm:"size:500" json:"referrer_url,omitempty"`
	LandingURL      string          `gorm:"size:500" json:"landing_url,omitempty"`
	Converted       bool            `gorm:"default:false;index" json:"converted"`
	ConversionValue decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"conversion_value"`
	ConvertedAt     *time.Time      `json:"converted_at,omitempty"`
	ConvertedUserID *uint           `json:"converted_user_id,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_visit_dedup,priority:3" json:"created_at"`
}

func (ReferralVisit) TableName() string {
	return "referral_visits"
}
