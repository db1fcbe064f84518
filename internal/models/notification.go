package models

import (
	"time"
)

// Notification statuses.
const (
	NotificationStatusQueued     = "queued"
	NotificationStatusDispatched = "dispatched"
)

// Notification types enqueued by this core.
const (
	NotificationTypeConversion = "conversion"
	NotificationTypeTierChange = "tier_change"
	NotificationTypeTierLock   = "tier_lock"
	NotificationTypeFraudAlert = "fraud_alert"
)

// NotificationRecord is a queued event for the external dispatcher.
// Enqueuing is fire-and-forget on the write path: a failure here never
// fails the conversion that produced it.
type NotificationRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	DedupKey     string     `gorm:"uniqueIndex;not null;size:36" json:"dedup_key"`
	Type         string     `gorm:"size:50;not null;index" json:"type"`
	ReferrerID   uint       `gorm:"index" json:"referrer_id"`
	Payload      JSONB      `gorm:"type:jsonb" json:"payload"`
	Status       string     `gorm:"size:20;default:queued;index" json:"status"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (NotificationRecord) TableName() string {
	return "notification_records"
}
