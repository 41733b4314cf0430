package heuristic

import (
	"strings"
	"time"

	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/utils"
)

// UnknownProduct labels rows without a usable product value.
const UnknownProduct = "Unknown"

// Normalizer converts raw rows into sales records. Now supplies the default
// date for rows whose date is missing or unparseable.
type Normalizer struct {
	Now func() time.Time
}

var defaultNormalizer = Normalizer{Now: time.Now}

// NormalizeRow converts one raw row using the process clock for date defaults.
func NormalizeRow(row models.RawRecord, mapping models.ColumnMapping) models.SalesRecord {
	return defaultNormalizer.Normalize(row, mapping)
}

// Normalize never fails: cells that cannot be coerced fall back to defaults.
func (n Normalizer) Normalize(row models.RawRecord, mapping models.ColumnMapping) models.SalesRecord {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	var dateStr string
	if mapping.DateColumn != "" {
		dateStr = row.Get(mapping.DateColumn)
	}
	date := utils.ParseDateOr(dateStr, now())

	product := UnknownProduct
	if mapping.ProductColumn != "" {
		if p := strings.TrimSpace(row.Get(mapping.ProductColumn)); p != "" {
			product = p
		}
	}

	amount := 0.0
	if mapping.AmountColumn != "" {
		amount = utils.ParseCurrency(row.Get(mapping.AmountColumn))
	}

	isRefundRow := rowMentionsRefund(row)

	var refund float64
	switch {
	case mapping.RefundColumn != "":
		refund = abs(utils.ParseCurrency(row.Get(mapping.RefundColumn)))
	case isRefundRow:
		refund = abs(amount)
	case amount < 0:
		refund = abs(amount)
	}

	fees := 0.0
	if mapping.FeesColumn != "" {
		fees = abs(utils.ParseCurrency(row.Get(mapping.FeesColumn)))
	}

	record := models.SalesRecord{
		Date:    date,
		Product: product,
		Refund:  refund,
		Fees:    fees,
		RawData: row,
	}

	if isRefundRow || amount < 0 {
		// Refunded units are not counted as sold.
		record.Amount = 0
		record.Quantity = 0
		return record
	}

	record.Amount = abs(amount)
	record.Quantity = 1
	if mapping.QuantityColumn != "" {
		record.Quantity = utils.ParseQuantity(row.Get(mapping.QuantityColumn), 1)
	}
	return record
}

// rowMentionsRefund reports whether any cell contains "refund", case-insensitively.
func rowMentionsRefund(row models.RawRecord) bool {
	for _, col := range row.Columns {
		if strings.Contains(strings.ToLower(row.Values[col]), "refund") {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
