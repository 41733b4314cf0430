package heuristic

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/tidyguru/backend/src/models"
)

var fixedNow = time.Date(2025, 2, 10, 15, 4, 5, 0, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{Now: func() time.Time { return fixedNow }}
}

func row(headers []string, fields ...string) models.RawRecord {
	return models.NewRawRecord(headers, fields)
}

var basicHeaders = []string{"Date", "Product", "Amount"}

func basicMapping() models.ColumnMapping {
	return DetectColumns(basicHeaders)
}

func TestNormalizeSale(t *testing.T) {
	rec := testNormalizer().Normalize(row(basicHeaders, "2025-01-15", "Pro Plan", "$49.00"), basicMapping())
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "Pro Plan", rec.Product)
	assert.Equal(t, 49.0, rec.Amount)
	assert.Zero(t, rec.Refund)
	assert.Zero(t, rec.Fees)
	assert.Equal(t, 1, rec.Quantity)
	assert.Equal(t, "Pro Plan", rec.RawData.Get("Product"))
}

func TestNormalizeNegativeAmountBecomesRefund(t *testing.T) {
	rec := testNormalizer().Normalize(row(basicHeaders, "2025-01-18", "Starter Plan", "-29.00"), basicMapping())
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 29.0, rec.Refund)
	assert.Zero(t, rec.Quantity)
	assert.Equal(t, -29.0, rec.Net())
}

func TestNormalizeParenthesizedAmountBecomesRefund(t *testing.T) {
	rec := testNormalizer().Normalize(row(basicHeaders, "2025-01-18", "Starter Plan", "(45.00)"), basicMapping())
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 45.0, rec.Refund)
}

func TestNormalizeRowMentioningRefund(t *testing.T) {
	headers := []string{"Date", "Product", "Amount", "Status"}
	rec := testNormalizer().Normalize(row(headers, "2025-01-18", "Pro Plan", "49.00", "REFUNDED"), DetectColumns(headers))
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 49.0, rec.Refund)
	assert.Zero(t, rec.Quantity)
}

func TestNormalizeRefundColumnTakesPriority(t *testing.T) {
	headers := []string{"Date", "Product", "Amount", "Refund", "Fees"}
	rec := testNormalizer().Normalize(row(headers, "2025-01-18", "Starter Plan", "29.00", "-10.00", "-0.87"), DetectColumns(headers))
	assert.Equal(t, 29.0, rec.Amount)
	assert.Equal(t, 10.0, rec.Refund)
	assert.Equal(t, 0.87, rec.Fees)
	assert.Equal(t, 1, rec.Quantity)
}

func TestNormalizeRefundHeaderDoesNotMarkEveryRow(t *testing.T) {
	headers := []string{"Date", "Product", "Amount", "Refund"}
	rec := testNormalizer().Normalize(row(headers, "2025-01-18", "Starter Plan", "29.00", "0"), DetectColumns(headers))
	assert.Equal(t, 29.0, rec.Amount)
	assert.Zero(t, rec.Refund)
}

func TestNormalizeDefaults(t *testing.T) {
	rec := testNormalizer().Normalize(row(basicHeaders, "someday", "  ", "n/a"), basicMapping())
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, UnknownProduct, rec.Product)
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 1, rec.Quantity)
}

func TestNormalizeUnmappedRow(t *testing.T) {
	headers := []string{"foo"}
	rec := testNormalizer().Normalize(row(headers, "bar"), DetectColumns(headers))
	assert.Equal(t, UnknownProduct, rec.Product)
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 1, rec.Quantity)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), rec.Date)
}

func TestNormalizeQuantityColumn(t *testing.T) {
	headers := []string{"Date", "Product", "Amount", "Quantity"}
	mapping := DetectColumns(headers)
	assert.Equal(t, 3, testNormalizer().Normalize(row(headers, "2025-01-01", "A", "10", "3"), mapping).Quantity)
	assert.Equal(t, 1, testNormalizer().Normalize(row(headers, "2025-01-01", "A", "10", ""), mapping).Quantity)
}

func TestNormalizeOversizedCellsStayFinite(t *testing.T) {
	headers := []string{"Date", "Product", "Amount", "Fees", "Quantity"}
	mapping := DetectColumns(headers)
	n := testNormalizer()

	rec := n.Normalize(row(headers, "2025-01-15", "A", "1e400", strings.Repeat("9", 500), "99999999999999999999"), mapping)
	assert.Equal(t, 1.0, rec.Amount)
	assert.Zero(t, rec.Fees)
	assert.Equal(t, 1, rec.Quantity)

	rec = n.Normalize(row(headers, "2025-01-15", "A", "-"+strings.Repeat("9", 500), "", "9223372036854775808"), mapping)
	assert.Zero(t, rec.Amount)
	assert.Zero(t, rec.Refund)
	assert.False(t, math.IsInf(rec.Refund, 0))
	assert.GreaterOrEqual(t, rec.Quantity, 0)
}

func TestNormalizeShortRowReadsMissingCellsAsEmpty(t *testing.T) {
	rec := testNormalizer().Normalize(row(basicHeaders, "2025-01-15"), basicMapping())
	assert.Equal(t, UnknownProduct, rec.Product)
	assert.Zero(t, rec.Amount)
	assert.Equal(t, "", rec.RawData.Get("Amount"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	r := row(basicHeaders, "01/15/2025", "Pro Plan", "$1,049.50")
	n := testNormalizer()
	assert.Equal(t, n.Normalize(r, basicMapping()), n.Normalize(r, basicMapping()))
}

func TestNormalizeRowUsesProcessClock(t *testing.T) {
	rec := NormalizeRow(row(basicHeaders, "2025-01-15", "Pro Plan", "49"), basicMapping())
	assert.Equal(t, 49.0, rec.Amount)
}
