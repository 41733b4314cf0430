package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/processors"
)

type dashboardServiceImpl struct {
	uploadService      UploadService
	dashboardProcessor processors.DashboardProcessor
	reportCache        *cache.Cache
}

func NewDashboardService(uploadService UploadService, dashboardProcessor processors.DashboardProcessor, reportCache *cache.Cache) DashboardService {
	return &dashboardServiceImpl{
		uploadService:      uploadService,
		dashboardProcessor: dashboardProcessor,
		reportCache:        reportCache,
	}
}

// ResolveRange turns a preset or explicit from/to pair into a DateRange.
// A preset wins over explicit bounds.
func ResolveRange(query RangeQuery) (models.DateRange, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	if strings.TrimSpace(query.Preset) != "" {
		r, err := processors.RangeForPreset(query.Preset, now)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
		}
		return r, nil
	}

	var r models.DateRange
	if from := strings.TrimSpace(query.From); from != "" {
		t, err := time.Parse(models.DateLayout, from)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("%w: from %q must be yyyy-MM-dd", ErrInvalidDateRange, from)
		}
		r.From = &t
	}
	if to := strings.TrimSpace(query.To); to != "" {
		t, err := time.Parse(models.DateLayout, to)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("%w: to %q must be yyyy-MM-dd", ErrInvalidDateRange, to)
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return models.DateRange{}, fmt.Errorf("%w: to is before from", ErrInvalidDateRange)
	}
	return r, nil
}

func (s *dashboardServiceImpl) BuildDashboard(records []models.SalesRecord, query RangeQuery) (*models.Dashboard, error) {
	r, err := ResolveRange(query)
	if err != nil {
		return nil, err
	}
	dashboard := s.dashboardProcessor.Process(records, r)
	return &dashboard, nil
}

func (s *dashboardServiceImpl) GetDashboard(ctx context.Context, userID, uploadID string, query RangeQuery) (*models.Dashboard, error) {
	r, err := ResolveRange(query)
	if err != nil {
		return nil, err
	}

	records, err := s.uploadService.GetSalesRecords(ctx, userID, uploadID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf(ckDashboardPrefix, uploadID) + rangeKey(r)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.FromContext(ctx).Debug("Cache hit for dashboard", "uploadID", uploadID, "key", cacheKey)
		return cached.(*models.Dashboard), nil
	}

	dashboard := s.dashboardProcessor.Process(records, r)
	s.reportCache.Set(cacheKey, &dashboard, cache.DefaultExpiration)
	logger.FromContext(ctx).Info("Computed dashboard", "userID", userID, "uploadID", uploadID, "records", dashboard.Metrics.RecordCount)
	return &dashboard, nil
}

func rangeKey(r models.DateRange) string {
	from, to := "*", "*"
	if r.From != nil {
		from = r.From.Format(models.DateLayout)
	}
	if r.To != nil {
		to = r.To.Format(models.DateLayout)
	}
	return from + "_" + to
}
