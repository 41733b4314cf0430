// backend/src/processors/revenue_series_processor.go
package processors

import (
	"sort"

	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/utils"
)

const seriesLabelLayout = "Jan 02"

// ComputeRevenueSeries returns one point per calendar date with the summed
// net revenue, in ascending date order.
func ComputeRevenueSeries(records []models.SalesRecord) []models.RevenuePoint {
	groups := groupNetRevenue(records, func(r models.SalesRecord) string {
		return utils.CivilDate(r.Date).Format(models.DateLayout)
	})

	points := make([]models.RevenuePoint, 0, len(groups))
	for _, g := range groups {
		day := utils.CivilDate(g.sample.Date)
		points = append(points, models.RevenuePoint{
			Date:    day,
			Label:   day.Format(seriesLabelLayout),
			Revenue: g.total.InexactFloat64(),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
