package processors

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/parsers/heuristic"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(date time.Time, product string, amount, refund, fees float64) models.SalesRecord {
	return models.SalesRecord{Date: date, Product: product, Amount: amount, Refund: refund, Fees: fees, Quantity: 1}
}

func sampleRecords() []models.SalesRecord {
	return []models.SalesRecord{
		sale(day(2025, 1, 15), "Premium", 99, 0, 2.97),
		sale(day(2025, 1, 15), "Starter", 29, 0, 0.87),
		sale(day(2025, 1, 16), "Premium", 99, 0, 2.97),
		sale(day(2025, 1, 18), "Starter", 0, 29, 0),
		sale(day(2025, 1, 20), "Enterprise", 199, 0, 5.97),
	}
}

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics(sampleRecords())
	assert.InDelta(t, 426.0, m.GrossSales, 1e-9)
	assert.InDelta(t, 29.0, m.TotalRefunds, 1e-9)
	assert.InDelta(t, 12.78, m.TotalFees, 1e-9)
	assert.InDelta(t, 384.22, m.NetRevenue, 1e-9)
	assert.Equal(t, 4, m.OrdersCount)
	assert.Equal(t, 5, m.RecordCount)
	assert.InDelta(t, 106.5, m.AvgOrderValue, 1e-9)
	assert.InDelta(t, 80.0, m.ConversionRate, 1e-9)
	assert.Equal(t, "Enterprise", m.BestProduct)
	assert.InDelta(t, 193.03, m.BestProductRevenue, 1e-9)
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil)
	assert.Equal(t, models.AggregateMetrics{}, m)
	assert.Equal(t, "", m.BestProduct)
}

func TestComputeMetricsOnlyRefunds(t *testing.T) {
	m := ComputeMetrics([]models.SalesRecord{sale(day(2025, 1, 1), "A", 0, 10, 0)})
	assert.Zero(t, m.OrdersCount)
	assert.Zero(t, m.AvgOrderValue)
	assert.Zero(t, m.ConversionRate)
	assert.InDelta(t, -10.0, m.NetRevenue, 1e-9)
	assert.Equal(t, "A", m.BestProduct)
}

func TestComputeMetricsBestProductTieGoesToFirstSeen(t *testing.T) {
	m := ComputeMetrics([]models.SalesRecord{
		sale(day(2025, 1, 1), "B", 10, 0, 0),
		sale(day(2025, 1, 2), "A", 10, 0, 0),
	})
	assert.Equal(t, "B", m.BestProduct)
}

func TestComputeMetricsIgnoresFloatDrift(t *testing.T) {
	records := make([]models.SalesRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, sale(day(2025, 1, 1), "A", 0.1, 0, 0))
	}
	assert.Equal(t, 1.0, ComputeMetrics(records).GrossSales)
}

func TestAggregatesOverParsedOversizedCells(t *testing.T) {
	file := "Date,Product,Amount,Fees\n" +
		"2025-01-15,A,1e400,0\n" +
		"2025-01-15,B," + strings.Repeat("9", 400) + "," + strings.Repeat("9", 400) + "\n" +
		"2025-01-16,C,10.00,0.30\n"
	result, err := heuristic.NewParser().Parse(strings.NewReader(file))
	require.NoError(t, err)

	var m models.AggregateMetrics
	require.NotPanics(t, func() { m = ComputeMetrics(result.Records) })
	assert.InDelta(t, 11.0, m.GrossSales, 1e-9)
	assert.InDelta(t, 10.7, m.NetRevenue, 1e-9)

	require.NotPanics(t, func() {
		NewDashboardProcessor().Process(result.Records, models.DateRange{})
	})
}

func TestComputeRevenueSeriesGroupsByDay(t *testing.T) {
	records := []models.SalesRecord{
		sale(day(2025, 1, 16), "A", 5, 0, 0),
		sale(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), "A", 10, 0, 0),
		sale(time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC), "B", 20, 0, 0),
	}
	series := ComputeRevenueSeries(records)
	require.Len(t, series, 2)
	assert.Equal(t, day(2025, 1, 15), series[0].Date)
	assert.Equal(t, "Jan 15", series[0].Label)
	assert.InDelta(t, 30.0, series[0].Revenue, 1e-9)
	assert.Equal(t, day(2025, 1, 16), series[1].Date)
	assert.InDelta(t, 5.0, series[1].Revenue, 1e-9)
}

func TestComputeRevenueSeriesEmpty(t *testing.T) {
	series := ComputeRevenueSeries(nil)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestComputeTopProducts(t *testing.T) {
	records := []models.SalesRecord{
		sale(day(2025, 1, 1), "A", 10, 0, 0),
		sale(day(2025, 1, 1), "B", 60, 0, 0),
		sale(day(2025, 1, 1), "C", 30, 0, 0),
		sale(day(2025, 1, 1), "D", 30, 0, 0),
		sale(day(2025, 1, 1), "E", 0, 5, 0),
		sale(day(2025, 1, 1), "An Extremely Long Product Name For Charts", 40, 0, 0),
		sale(day(2025, 1, 1), "F", 2, 0, 0),
		sale(day(2025, 1, 1), "A", 15, 0, 0),
	}
	top := ComputeTopProducts(records)
	require.Len(t, top, TopProductsLimit)

	names := make([]string, 0, len(top))
	for _, p := range top {
		names = append(names, p.Product)
	}
	// Seven distinct products; the two lowest (F and E) are cut.
	assert.Equal(t, []string{"B", "An Extremely Long Product Name For Charts", "C", "D", "A"}, names)
	assert.NotContains(t, names, "E")
	assert.NotContains(t, names, "F")
	assert.Equal(t, "An Extremely Long Pr...", top[1].DisplayProduct)
	assert.Equal(t, "B", top[0].DisplayProduct)
	assert.InDelta(t, 25.0, top[4].Revenue, 1e-9)
}

func TestComputeTopProductsKeepsRefundedProducts(t *testing.T) {
	top := ComputeTopProducts([]models.SalesRecord{
		sale(day(2025, 1, 1), "A", 0, 5, 0),
		sale(day(2025, 1, 1), "B", 3, 0, 0),
	})
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Product)
	assert.InDelta(t, -5.0, top[1].Revenue, 1e-9)
}

func TestTruncateLabelCountsRunes(t *testing.T) {
	exact := strings.Repeat("é", 20)
	assert.Equal(t, exact, truncateLabel(exact, 20))
	assert.Equal(t, exact+"...", truncateLabel(strings.Repeat("é", 22), 20))
}

func TestFilterByDateRange(t *testing.T) {
	records := sampleRecords()
	from, to := day(2025, 1, 16), day(2025, 1, 18)

	filtered := FilterByDateRange(records, models.DateRange{From: &from, To: &to})
	require.Len(t, filtered, 2)
	assert.Equal(t, day(2025, 1, 16), filtered[0].Date)
	assert.Equal(t, day(2025, 1, 18), filtered[1].Date)
}

func TestFilterByDateRangeExcludesDayAfterTo(t *testing.T) {
	from, to := day(2025, 1, 15), day(2025, 1, 16)
	records := []models.SalesRecord{
		sale(day(2025, 1, 14), "before", 1, 0, 0),
		sale(day(2025, 1, 15), "from", 1, 0, 0),
		sale(time.Date(2025, 1, 16, 23, 59, 59, 0, time.UTC), "to", 1, 0, 0),
		sale(day(2025, 1, 17), "after", 1, 0, 0),
	}
	filtered := FilterByDateRange(records, models.DateRange{From: &from, To: &to})
	require.Len(t, filtered, 2)
	assert.Equal(t, "from", filtered[0].Product)
	assert.Equal(t, "to", filtered[1].Product)
}

func TestFilterByDateRangeIncludesWholeEndDay(t *testing.T) {
	from := day(2025, 1, 15)
	to := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	records := []models.SalesRecord{sale(time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC), "A", 1, 0, 0)}
	assert.Len(t, FilterByDateRange(records, models.DateRange{From: &from, To: &to}), 1)
}

func TestFilterByDateRangeOpenBounds(t *testing.T) {
	records := sampleRecords()
	from := day(2025, 1, 18)
	assert.Len(t, FilterByDateRange(records, models.DateRange{From: &from}), 2)
	assert.Len(t, FilterByDateRange(records, models.DateRange{}), len(records))

	to := day(2025, 1, 15)
	assert.Len(t, FilterByDateRange(records, models.DateRange{To: &to}), len(records))
}

func TestRangeForPreset(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 1, 22, 14, 0, 0, 0, time.UTC)

	week, err := RangeForPreset("week", now)
	require.NoError(t, err)
	require.NotNil(t, week.From)
	assert.Equal(t, day(2025, 1, 19), *week.From)
	assert.Equal(t, now, *week.To)

	month, err := RangeForPreset("last_30_days", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -30), *month.From)

	all, err := RangeForPreset("all", now)
	require.NoError(t, err)
	assert.Nil(t, all.From)
	assert.Nil(t, all.To)

	_, err = RangeForPreset("fortnight", now)
	assert.Error(t, err)
}

func TestDashboardProcessorUsesOneFilteredSet(t *testing.T) {
	from, to := day(2025, 1, 15), day(2025, 1, 16)
	r := models.DateRange{From: &from, To: &to}
	d := NewDashboardProcessor().Process(sampleRecords(), r)

	assert.Equal(t, 3, d.Metrics.RecordCount)
	assert.Len(t, d.RevenueSeries, 2)
	assert.Len(t, d.TopProducts, 2)
	assert.Equal(t, "Premium", d.TopProducts[0].Product)
	assert.Equal(t, r, d.Range)
}
