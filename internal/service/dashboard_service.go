package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

const (
	dashboardCachePattern = "dashboard:*"
	dashboardStatsKey     = "dashboard:admin:stats"
	dashboardMonths       = 12
)

type dashboardApplicationLister interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
}

type dashboardVerifiedLister interface {
	ListKeysForApplications(ctx context.Context, ids []int64) (map[int64][]models.DocumentKey, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService aggregates admissions statistics for administrators.
type DashboardService struct {
	apps     dashboardApplicationLister
	verified dashboardVerifiedLister
	cache    dashboardCache
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(apps dashboardApplicationLister, verified dashboardVerifiedLister, cache dashboardCache, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{apps: apps, verified: verified, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Stats returns the admin dashboard summary and indicates cache utilisation.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	if s.cache != nil {
		var cached models.DashboardStats
		hit, err := s.cache.Get(ctx, dashboardStatsKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		if hit {
			return &cached, true, nil
		}
	}

	apps, err := s.apps.List(ctx, models.ApplicationFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}
	ids := make([]int64, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	verified, err := s.verified.ListKeysForApplications(ctx, ids)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verified documents")
	}

	stats := s.compute(apps, verified)
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, false, nil
}

func (s *DashboardService) compute(apps []models.Application, verified map[int64][]models.DocumentKey) *models.DashboardStats {
	stats := &models.DashboardStats{}
	programs := make(map[string]int)
	months := make(map[string]int)

	for i := range apps {
		app := &apps[i]
		if app.IsDraft() {
			continue
		}
		stats.TotalApplicants++
		switch app.Status {
		case models.StatusPending:
			stats.PendingVerifications++
			if awaitingVerification(app, verified[app.ID]) {
				stats.DocsAwaiting++
			}
		case models.StatusAccepted:
			stats.Accepted++
		case models.StatusRejected:
			stats.Rejected++
		}
		if len(app.MissingDocuments()) > 0 {
			stats.IncompleteRequirements++
		}

		program := "Unspecified"
		if app.ProgramName != nil && strings.TrimSpace(*app.ProgramName) != "" {
			program = strings.TrimSpace(*app.ProgramName)
		}
		programs[program]++
		months[app.CreatedAt.UTC().Format("2006-01")]++
	}

	stats.ProgramDistribution = make([]models.ProgramCount, 0, len(programs))
	for program, count := range programs {
		stats.ProgramDistribution = append(stats.ProgramDistribution, models.ProgramCount{Program: program, Count: count})
	}
	sort.Slice(stats.ProgramDistribution, func(i, j int) bool {
		a, b := stats.ProgramDistribution[i], stats.ProgramDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Program < b.Program
	})

	// Trailing window ending with the current month, zero-filled.
	stats.MonthlyApplicants = make([]models.MonthlyCount, 0, dashboardMonths)
	current := s.now().UTC()
	start := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(dashboardMonths - 1), 0)
	for i := 0; i < dashboardMonths; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		stats.MonthlyApplicants = append(stats.MonthlyApplicants, models.MonthlyCount{Month: month, Count: months[month]})
	}
	return stats
}

// awaitingVerification reports whether some uploaded document is unverified.
func awaitingVerification(app *models.Application, verified []models.DocumentKey) bool {
	done := make(map[models.DocumentKey]struct{}, len(verified))
	for _, key := range verified {
		done[key] = struct{}{}
	}
	for _, key := range app.Uploaded() {
		if _, ok := done[key]; !ok {
			return true
		}
	}
	return false
}
