// backend/src/processors/dashboard_processor.go
package processors

import (
	"github.com/username/tidyguru/backend/src/models"
)

type dashboardProcessorImpl struct{}

func NewDashboardProcessor() DashboardProcessor {
	return &dashboardProcessorImpl{}
}

// Process filters once and derives every aggregate from the same filtered set.
func (p *dashboardProcessorImpl) Process(records []models.SalesRecord, r models.DateRange) models.Dashboard {
	filtered := FilterByDateRange(records, r)
	return models.Dashboard{
		Range:         r,
		Metrics:       ComputeMetrics(filtered),
		RevenueSeries: ComputeRevenueSeries(filtered),
		TopProducts:   ComputeTopProducts(filtered),
	}
}
