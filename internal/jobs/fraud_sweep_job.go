package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"referral-engine/internal/models"
	"referral-engine/internal/services"
)

// FraudSweepJob runs a scheduled fraud scan over the trailing day and
// queues an admin alert when anything is flagged.
type FraudSweepJob struct {
	cron          *cron.Cron
	fraud         *services.FraudService
	notifications *services.NotificationService
	spec          string
}

func NewFraudSweepJob(fraud *services.FraudService, notifications *services.NotificationService, spec string) *FraudSweepJob {
	return &FraudSweepJob{
		cron:          cron.New(),
		fraud:         fraud,
		notifications: notifications,
		spec:          spec,
	}
}

// Start registers the sweep on the configured cron spec.
func (j *FraudSweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("Fraud sweep scheduled: %s", j.spec)
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (j *FraudSweepJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *FraudSweepJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	report := j.fraud.Scan(ctx, now.Add(-24*time.Hour), now)

	log.Printf("Fraud sweep: %d velocity violations, %d ip clusters, %d spam flags",
		len(report.VelocityViolations), len(report.IPClusters), len(report.SpamFlags))

	for section, message := range report.SectionErrors {
		log.Printf("Fraud sweep section %s failed: %s", section, message)
	}

	if report.TotalFlags() == 0 {
		return
	}

	err := j.notifications.Enqueue(ctx, models.NotificationTypeFraudAlert, 0, map[string]interface{}{
		"from":                now.Add(-24 * time.Hour).Format(time.RFC3339),
		"to":                  now.Format(time.RFC3339),
		"velocity_violations": len(report.VelocityViolations),
		"ip_clusters":         len(report.IPClusters),
		"spam_flags":          len(report.SpamFlags),
	})
	if err != nil {
		log.Printf("Failed to enqueue fraud alert: %v", err)
	}
}
