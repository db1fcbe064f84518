package models

import (
	"time"
)

// WhitelistedIP is excluded from the IP-clustering fraud scan.
type WhitelistedIP struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IPAddress string    `gorm:"uniqueIndex;not null;size:45" json:"ip_address"`
	Reason    string    `gorm:"size:255;not null" json:"reason"`
	AddedBy   uint      `gorm:"not null" json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (WhitelistedIP) TableName() string {
	return "whitelisted_ips"
}

// Landing page states eligible for the spam scan.
const (
	LandingPageStatusPending  = "pending"
	LandingPageStatusApproved = "approved"
	LandingPageStatusRejected = "rejected"
	LandingPageStatusArchived = "archived"
)

// LandingPage is ambassador-authored content. Authoring lives outside
// this core; the fraud detector reads pending/approved pages for the
// spam-keyword scan.
type LandingPage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID uint      `gorm:"not null;index" json:"referrer_id"`
	Title      string    `gorm:"size:255" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	Status     string    `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (LandingPage) TableName() string {
	return "landing_pages"
}
