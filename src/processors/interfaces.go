package processors

import (
	"github.com/username/tidyguru/backend/src/models"
)

// DashboardProcessor builds the full dashboard for a record set and date range.
type DashboardProcessor interface {
	Process(records []models.SalesRecord, r models.DateRange) models.Dashboard
}
