// backend/src/processors/metrics_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/tidyguru/backend/src/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeMetrics derives the KPI cards from an already filtered record set.
// Empty input yields all-zero metrics. Ties for best product go to the product seen first.
func ComputeMetrics(records []models.SalesRecord) models.AggregateMetrics {
	var gross, refunds, fees decimal.Decimal
	orders := 0
	for _, rec := range records {
		gross = gross.Add(decimal.NewFromFloat(rec.Amount))
		refunds = refunds.Add(decimal.NewFromFloat(rec.Refund))
		fees = fees.Add(decimal.NewFromFloat(rec.Fees))
		if rec.Amount > 0 {
			orders++
		}
	}

	metrics := models.AggregateMetrics{
		GrossSales:   gross.InexactFloat64(),
		TotalRefunds: refunds.InexactFloat64(),
		TotalFees:    fees.InexactFloat64(),
		NetRevenue:   gross.Sub(refunds).Sub(fees).InexactFloat64(),
		OrdersCount:  orders,
		RecordCount:  len(records),
	}

	if orders > 0 {
		metrics.AvgOrderValue = gross.Div(decimal.NewFromInt(int64(orders))).InexactFloat64()
	}
	if len(records) > 0 {
		metrics.ConversionRate = decimal.NewFromInt(int64(orders)).
			Div(decimal.NewFromInt(int64(len(records)))).
			Mul(hundred).InexactFloat64()
	}

	groups := groupNetRevenue(records, func(r models.SalesRecord) string { return r.Product })
	best := -1
	for i, g := range groups {
		if best < 0 || g.total.GreaterThan(groups[best].total) {
			best = i
		}
	}
	if best >= 0 {
		metrics.BestProduct = groups[best].key
		metrics.BestProductRevenue = groups[best].total.InexactFloat64()
	}
	return metrics
}
