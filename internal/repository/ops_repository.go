package repository

import (
	"context"
	"time"

	"referral-engine/internal/models"
)

// CreateNotification enqueues a record for the external dispatcher.
func (r *Repository) CreateNotification(ctx context.Context, record *models.NotificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// PendingNotifications returns queued records oldest first.
func (r *Repository) PendingNotifications(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	var records []models.NotificationRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", models.NotificationStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkNotificationsDispatched transitions queued records to dispatched.
func (r *Repository) MarkNotificationsDispatched(ctx context.Context, ids []uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.NotificationRecord{}).
		Where("id IN ? AND status = ?", ids, models.NotificationStatusQueued).
		Updates(map[string]interface{}{
			"status":        models.NotificationStatusDispatched,
			"dispatched_at": at,
		})
	return result.RowsAffected, result.Error
}

// CreateAuditLog records an administrative action
func (r *Repository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAuditLogs returns audit entries newest first.
func (r *Repository) ListAuditLogs(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
