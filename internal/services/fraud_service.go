package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"referral-engine/internal/config"
	"referral-engine/internal/models"
	"referral-engine/internal/repository"
)

// Fraud flag severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Minimum converted visits from one IP before the clustering scan
// flags it.
const ipClusterMinConversions = 3

// VelocityViolation flags a referrer whose visit volume exceeds the
// configured caps.
type VelocityViolation struct {
	ReferrerID  uint   `json:"referrer_id"`
	HourlyCount int64  `json:"hourly_count"`
	WindowCount int64  `json:"window_count"`
	Severity    string `json:"severity"`
}

// IPCluster flags a raw IP with multiple converted visits.
type IPCluster struct {
	IPAddress         string `json:"ip_address"`
	ConvertedVisits   int64  `json:"converted_visits"`
	UniqueAmbassadors int64  `json:"unique_ambassadors"`
	ReferrerIDs       []uint `json:"referrer_ids"`
}

// SpamFlag marks a landing page whose content matched spam keywords.
type SpamFlag struct {
	LandingPageID   uint     `json:"landing_page_id"`
	ReferrerID      uint     `json:"referrer_id"`
	Title           string   `json:"title"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// ScanReport aggregates the three independent scan sections. A failed
// section leaves its slice empty and records an error marker instead
// of aborting the whole scan.
type ScanReport struct {
	From               time.Time           `json:"from"`
	To                 time.Time           `json:"to"`
	VelocityViolations []VelocityViolation `json:"velocity_violations"`
	IPClusters         []IPCluster         `json:"ip_clusters"`
	SpamFlags          []SpamFlag          `json:"spam_flags"`
	SectionErrors      map[string]string   `json:"section_errors,omitempty"`
}

// TotalFlags counts findings across all sections.
func (r *ScanReport) TotalFlags() int {
	return len(r.VelocityViolations) + len(r.IPClusters) + len(r.SpamFlags)
}

// FraudService is pure read-side analysis over a caller-supplied date
// range, independent of the write path.
type FraudService struct {
	repo     *repository.Repository
	settings *config.AffiliateSettings
}

func NewFraudService(repo *repository.Repository, settings *config.AffiliateSettings) *FraudService {
	return &FraudService{repo: repo, settings: settings}
}

// Scan runs the velocity, IP-clustering and spam sections concurrently.
// The sections share no mutable state and read a point-in-time range,
// so no locking beyond the report assembly is needed.
func (s *FraudService) Scan(ctx context.Context, from, to time.Time) *ScanReport {
	report := &ScanReport{
		From:               from,
		To:                 to,
		VelocityViolations: []VelocityViolation{},
		IPClusters:         []IPCluster{},
		SpamFlags:          []SpamFlag{},
		SectionErrors:      map[string]string{},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		violations, err := s.scanVelocity(ctx, from, to)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.SectionErrors["velocity"] = err.Error()
			return
		}
		report.VelocityViolations = violations
	}()

	go func() {
		defer wg.Done()
		clusters, err := s.scanIPClusters(ctx, from, to)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.SectionErrors["ip_clusters"] = err.Error()
			return
		}
		report.IPClusters = clusters
	}()

	go func() {
		defer wg.Done()
		flags, err := s.scanSpam(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.SectionErrors["spam"] = err.Error()
			return
		}
		report.SpamFlags = flags
	}()

	wg.Wait()

	if len(report.SectionErrors) == 0 {
		report.SectionErrors = nil
	}
	return report
}

// scanVelocity flags referrers over the hourly cap or over the daily
// cap scaled to the window length. Severity is high past twice the
// hourly cap.
func (s *FraudService) scanVelocity(ctx context.Context, from, to time.Time) ([]VelocityViolation, error) {
	hourlyCap := int64(s.settings.MaxVisitsPerHour)
	dailyCap := int64(s.settings.MaxSignupsPerIPPerDay)

	windowDays := int64(math.Ceil(to.Sub(from).Hours() / 24))
	if windowDays < 1 {
		windowDays = 1
	}
	windowCap := dailyCap * windowDays

	windowCounts, err := s.repo.CountVisitsByReferrer(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("window visit counts: %w", err)
	}

	now := time.Now()
	hourlyCounts, err := s.repo.CountVisitsByReferrer(ctx, now.Add(-time.Hour), now)
	if err != nil {
		return nil, fmt.Errorf("hourly visit counts: %w", err)
	}

	hourlyByReferrer := make(map[uint]int64, len(hourlyCounts))
	for _, row := range hourlyCounts {
		hourlyByReferrer[row.ReferrerID] = row.Count
	}

	violations := []VelocityViolation{}
	for _, row := range windowCounts {
		hourly := hourlyByReferrer[row.ReferrerID]
		if hourly <= hourlyCap && row.Count <= windowCap {
			continue
		}

		severity := SeverityMedium
		if hourly > 2*hourlyCap {
			severity = SeverityHigh
		}

		violations = append(violations, VelocityViolation{
			ReferrerID:  row.ReferrerID,
			HourlyCount: hourly,
			WindowCount: row.Count,
			Severity:    severity,
		})
	}

	return violations, nil
}

// scanIPClusters flags IPs with three or more converted visits in
// range, skipping whitelisted addresses.
func (s *FraudService) scanIPClusters(ctx context.Context, from, to time.Time) ([]IPCluster, error) {
	whitelist, err := s.repo.ListWhitelistedIPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("whitelist lookup: %w", err)
	}
	whitelisted := make(map[string]bool, len(whitelist))
	for _, entry := range whitelist {
		whitelisted[entry.IPAddress] = true
	}

	groups, err := s.repo.ConvertedVisitGroupsByIP(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("converted visit grouping: %w", err)
	}

	clusters := []IPCluster{}
	for _, group := range groups {
		if group.ConvertedVisits < ipClusterMinConversions || whitelisted[group.IPAddress] {
			continue
		}

		referrerIDs, err := s.repo.ReferrerIDsForConvertedIP(ctx, group.IPAddress, from, to)
		if err != nil {
			return nil, fmt.Errorf("referrer lookup for clustered ip: %w", err)
		}

		clusters = append(clusters, IPCluster{
			IPAddress:         group.IPAddress,
			ConvertedVisits:   group.ConvertedVisits,
			UniqueAmbassadors: group.UniqueAmbassadors,
			ReferrerIDs:       referrerIDs,
		})
	}

	return clusters, nil
}

// scanSpam matches pending/approved landing pages against the
// configured keyword list, case-insensitively.
func (s *FraudService) scanSpam(ctx context.Context) ([]SpamFlag, error) {
	pages, err := s.repo.ListLandingPagesByStatus(ctx, models.LandingPageStatusPending, models.LandingPageStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("landing page lookup: %w", err)
	}

	flags := []SpamFlag{}
	for _, page := range pages {
		content := strings.ToLower(page.Content)

		var matched []string
		for _, keyword := range s.settings.SpamKeywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(keyword)) {
				matched = append(matched, keyword)
			}
		}

		if len(matched) > 0 {
			flags = append(flags, SpamFlag{
				LandingPageID:   page.ID,
				ReferrerID:      page.ReferrerID,
				Title:           page.Title,
				MatchedKeywords: matched,
			})
		}
	}

	return flags, nil
}
