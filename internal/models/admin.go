package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// AuditLog records administrative actions (tier locks, whitelist edits,
// link provisioning) for the audit trail. Actor identity comes from the
// external identity provider's token.
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActorID      uint      `gorm:"not null;index" json:"actor_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	ResourceID   *uint     `json:"resource_id"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
