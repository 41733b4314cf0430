// backend/src/models/sales.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the civil-date format used for storage and export.
const DateLayout = "2006-01-02"

// RawRecord is one CSV row keyed by header, keeping the file's column order.
type RawRecord struct {
	Columns []string
	Values  map[string]string
}

// NewRawRecord pairs a header row with one record. Missing trailing cells read as "".
func NewRawRecord(headers, fields []string) RawRecord {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(fields) {
			values[h] = fields[i]
		} else {
			values[h] = ""
		}
	}
	return RawRecord{Columns: headers, Values: values}
}

// Get returns the value for column, or "" when the column is absent.
func (r RawRecord) Get(column string) string {
	return r.Values[column]
}

// MarshalJSON writes the record as a JSON object with keys in column order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a record, recovering column order from the token stream.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = RawRecord{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("raw record must be a JSON object")
	}
	out := RawRecord{Values: map[string]string{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// Non-string values are kept as their JSON literal text.
			s = string(raw)
		}
		if _, seen := out.Values[key]; !seen {
			out.Columns = append(out.Columns, key)
		}
		out.Values[key] = s
	}
	*r = out
	return nil
}

// ColumnMapping links each logical field to a source header. "" means unmapped.
type ColumnMapping struct {
	DateColumn     string `json:"dateColumn"`
	ProductColumn  string `json:"productColumn"`
	AmountColumn   string `json:"amountColumn"`
	RefundColumn   string `json:"refundColumn"`
	FeesColumn     string `json:"feesColumn"`
	QuantityColumn string `json:"quantityColumn"`
}

// SalesRecord is the canonical, platform-agnostic form of one CSV row.
type SalesRecord struct {
	Date     time.Time `json:"-"`
	Product  string    `json:"product"`
	Amount   float64   `json:"amount"`
	Refund   float64   `json:"refund"`
	Fees     float64   `json:"fees"`
	Quantity int       `json:"quantity"`
	RawData  RawRecord `json:"rawData"`
}

// Net is amount minus refund minus fees.
func (s SalesRecord) Net() float64 {
	return s.Amount - s.Refund - s.Fees
}

type salesRecordJSON struct {
	Date string `json:"date"`
	salesRecordAlias
}

type salesRecordAlias SalesRecord

func (s SalesRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(salesRecordJSON{
		Date:             s.Date.Format(DateLayout),
		salesRecordAlias: salesRecordAlias(s),
	})
}

func (s *SalesRecord) UnmarshalJSON(data []byte) error {
	var aux salesRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = SalesRecord(aux.salesRecordAlias)
	if aux.Date != "" {
		d, err := time.Parse(DateLayout, aux.Date)
		if err != nil {
			return fmt.Errorf("invalid sales record date %q: %w", aux.Date, err)
		}
		s.Date = d
	}
	return nil
}

// ParseResult is the output of parsing one file.
type ParseResult struct {
	Records []SalesRecord `json:"records"`
	Columns []string      `json:"columns"`
	Mapping ColumnMapping `json:"mapping"`
}

// DateRange restricts aggregation to an inclusive civil-date interval.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// AggregateMetrics are the dashboard KPIs for a filtered record set.
type AggregateMetrics struct {
	GrossSales         float64 `json:"grossSales"`
	TotalRefunds       float64 `json:"totalRefunds"`
	TotalFees          float64 `json:"totalFees"`
	NetRevenue         float64 `json:"netRevenue"`
	OrdersCount        int     `json:"ordersCount"`
	AvgOrderValue      float64 `json:"avgOrderValue"`
	BestProduct        string  `json:"bestProduct"`
	BestProductRevenue float64 `json:"bestProductRevenue"`
	ConversionRate     float64 `json:"conversionRate"`
	RecordCount        int     `json:"recordCount"`
}

// RevenuePoint is one day on the revenue trend.
type RevenuePoint struct {
	Date    time.Time `json:"-"`
	Label   string    `json:"label"`
	Revenue float64   `json:"revenue"`
}

func (p RevenuePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date    string  `json:"date"`
		Label   string  `json:"label"`
		Revenue float64 `json:"revenue"`
	}{p.Date.Format(DateLayout), p.Label, p.Revenue})
}

// ProductRevenue is one bar on the top-products chart.
type ProductRevenue struct {
	Product        string  `json:"product"`
	DisplayProduct string  `json:"displayProduct"`
	Revenue        float64 `json:"revenue"`
}

// Dashboard bundles everything the dashboard view renders for one range.
type Dashboard struct {
	Range         DateRange        `json:"range"`
	Metrics       AggregateMetrics `json:"metrics"`
	RevenueSeries []RevenuePoint   `json:"revenueSeries"`
	TopProducts   []ProductRevenue `json:"topProducts"`
}
