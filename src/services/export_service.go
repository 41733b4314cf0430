package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/security/validation"
)

// ExportHeader is the column layout of exported CSV files.
var ExportHeader = []string{"Date", "Product", "Amount", "Refund", "Fees", "Net"}

// SampleFilename is the download name of the sample CSV.
const SampleFilename = "tidyguru-sample-data.csv"

var sampleRows = [][]string{
	{"2025-01-15", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-15", "Starter Plan", "29.00", "0", "0.87"},
	{"2025-01-16", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-16", "Pro Plan", "49.00", "0", "1.47"},
	{"2025-01-17", "Enterprise Plan", "199.00", "0", "5.97"},
	{"2025-01-17", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-18", "Starter Plan", "29.00", "29.00", "0.87"},
	{"2025-01-18", "Pro Plan", "49.00", "0", "1.47"},
	{"2025-01-19", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-19", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-20", "Enterprise Plan", "199.00", "0", "5.97"},
	{"2025-01-20", "Pro Plan", "49.00", "0", "1.47"},
	{"2025-01-21", "Starter Plan", "29.00", "0", "0.87"},
	{"2025-01-21", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-22", "Pro Plan", "49.00", "0", "1.47"},
	{"2025-01-22", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-23", "Enterprise Plan", "199.00", "0", "5.97"},
	{"2025-01-23", "Premium Analytics Dashboard", "99.00", "0", "2.97"},
	{"2025-01-24", "Starter Plan", "29.00", "0", "0.87"},
	{"2025-01-24", "Pro Plan", "49.00", "0", "1.47"},
}

type exportServiceImpl struct{}

func NewExportService() ExportService {
	return &exportServiceImpl{}
}

// WriteCSV writes records with two-decimal money columns and yyyy-MM-dd dates.
func (s *exportServiceImpl) WriteCSV(w io.Writer, records []models.SalesRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("error writing export header: %w", err)
	}
	for i, rec := range records {
		amount := decimal.NewFromFloat(rec.Amount)
		refund := decimal.NewFromFloat(rec.Refund)
		fees := decimal.NewFromFloat(rec.Fees)
		row := []string{
			rec.Date.Format(models.DateLayout),
			validation.SanitizeForFormulaInjection(validation.StripUnprintable(rec.Product)),
			amount.StringFixed(2),
			refund.StringFixed(2),
			fees.StringFixed(2),
			amount.Sub(refund).Sub(fees).StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing export row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSampleCSV writes a small demo file in the generic Date,Product,Amount,Refund,Fees layout.
func (s *exportServiceImpl) WriteSampleCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader[:5]); err != nil {
		return err
	}
	if err := cw.WriteAll(sampleRows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportFilename names an export of upload after its file and the range it covers.
func ExportFilename(upload string, r models.DateRange) string {
	base := strings.TrimSuffix(strings.TrimSpace(upload), ".csv")
	if base == "" {
		base = "sales-data"
	}
	if r.From != nil {
		base += "-" + r.From.Format(models.DateLayout)
	}
	if r.To != nil {
		base += "-to-" + r.To.Format(models.DateLayout)
	}
	return base + ".csv"
}
