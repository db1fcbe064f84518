package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

// NotificationService writes queued records for the external
// dispatcher. It never delivers anything itself.
type NotificationService struct {
	repo *repository.Repository
}

func NewNotificationService(repo *repository.Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Enqueue creates a queued notification record with a fresh dedup key.
func (s *NotificationService) Enqueue(ctx context.Context, notificationType string, referrerID uint, payload map[string]interface{}) error {
	record := models.NotificationRecord{
		DedupKey:   uuid.NewString(),
		Type:       notificationType,
		ReferrerID: referrerID,
		Payload:    models.JSONB(payload),
		Status:     models.NotificationStatusQueued,
	}
	return s.repo.CreateNotification(ctx, &record)
}

// Pending returns queued records for the dispatcher to pick up.
func (s *NotificationService) Pending(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.PendingNotifications(ctx, limit)
}

// MarkDispatched acknowledges delivery of the given records.
func (s *NotificationService) MarkDispatched(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.MarkNotificationsDispatched(ctx, ids, time.Now())
}
