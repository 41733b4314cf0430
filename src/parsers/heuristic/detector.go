// Package heuristic infers column semantics from arbitrary sales-export headers
// and normalizes rows into canonical sales records.
package heuristic

import (
	"strings"

	"github.com/username/tidyguru/backend/src/models"
)

// Field is a logical column the aggregation layer needs.
type Field int

const (
	FieldDate Field = iota
	FieldProduct
	FieldAmount
	FieldRefund
	FieldFees
	FieldQuantity
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldProduct:
		return "product"
	case FieldAmount:
		return "amount"
	case FieldRefund:
		return "refund"
	case FieldFees:
		return "fees"
	case FieldQuantity:
		return "quantity"
	}
	return "unknown"
}

type fieldKeywords struct {
	field    Field
	keywords []string
}

// detectionTable is evaluated top to bottom; each field resolves independently.
var detectionTable = []fieldKeywords{
	{FieldDate, []string{"date", "time", "created"}},
	{FieldProduct, []string{"product", "item", "name", "title"}},
	{FieldAmount, []string{"amount", "price", "total", "gross"}},
	{FieldRefund, []string{"refund", "return"}},
	{FieldFees, []string{"fee", "charge", "commission"}},
	{FieldQuantity, []string{"quantity", "qty", "units", "count"}},
}

// Preset lists preferred header names per field for a known export format.
// Names are compared case-insensitively after trimming.
type Preset struct {
	Name    string
	Headers map[Field][]string
}

// DetectColumns maps each logical field to the first header, in file order,
// whose lower-cased text contains one of the field's keywords.
// The same header may be chosen for more than one field.
func DetectColumns(headers []string) models.ColumnMapping {
	return DetectColumnsWithPreset(headers, nil)
}

// DetectColumnsWithPreset tries the preset's exact header names before keyword matching.
func DetectColumnsWithPreset(headers []string, preset *Preset) models.ColumnMapping {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	resolved := make(map[Field]string, len(detectionTable))
	for _, entry := range detectionTable {
		if preset != nil {
			if h, ok := matchExact(headers, lower, preset.Headers[entry.field]); ok {
				resolved[entry.field] = h
				continue
			}
		}
		if h, ok := matchKeywords(headers, lower, entry.keywords); ok {
			resolved[entry.field] = h
		}
	}

	return models.ColumnMapping{
		DateColumn:     resolved[FieldDate],
		ProductColumn:  resolved[FieldProduct],
		AmountColumn:   resolved[FieldAmount],
		RefundColumn:   resolved[FieldRefund],
		FeesColumn:     resolved[FieldFees],
		QuantityColumn: resolved[FieldQuantity],
	}
}

func matchKeywords(headers, lower []string, keywords []string) (string, bool) {
	for i, h := range lower {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return headers[i], true
			}
		}
	}
	return "", false
}

func matchExact(headers, lower []string, names []string) (string, bool) {
	for _, name := range names {
		want := strings.ToLower(strings.TrimSpace(name))
		for i, h := range lower {
			if h == want {
				return headers[i], true
			}
		}
	}
	return "", false
}
