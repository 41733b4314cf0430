package heuristic

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/models"
)

var (
	ErrParse       = errors.New("csv parse failed")
	ErrStructural  = fmt.Errorf("%w: malformed csv", ErrParse)
	ErrNoHeader    = fmt.Errorf("%w: missing header row", ErrParse)
	ErrNoDataRows  = fmt.Errorf("%w: file has no data rows", ErrParse)
	ErrTooManyRows = fmt.Errorf("%w: file exceeds the row limit", ErrParse)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Parser struct {
	preset     *Preset
	maxRows    int
	normalizer Normalizer
}

type Option func(*Parser)

// WithPreset makes detection prefer the preset's header names.
func WithPreset(p *Preset) Option {
	return func(parser *Parser) { parser.preset = p }
}

// WithMaxRows caps the number of data rows. n <= 0 means no cap.
func WithMaxRows(n int) Option {
	return func(parser *Parser) { parser.maxRows = n }
}

// WithClock sets the clock used for rows without a usable date.
func WithClock(now func() time.Time) Option {
	return func(parser *Parser) { parser.normalizer.Now = now }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{normalizer: Normalizer{Now: time.Now}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse tokenizes the whole file, detects the column mapping once and
// normalizes every data row. It fails only on structural problems.
func (p *Parser) Parse(file io.Reader) (*models.ParseResult, error) {
	reader := csv.NewReader(skipBOM(file))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrStructural, err)
	}

	mapping := DetectColumnsWithPreset(headers, p.preset)
	logger.L.Debug("Detected column mapping",
		"preset", presetName(p.preset),
		"date", mapping.DateColumn,
		"product", mapping.ProductColumn,
		"amount", mapping.AmountColumn,
		"refund", mapping.RefundColumn,
		"fees", mapping.FeesColumn,
		"quantity", mapping.QuantityColumn)

	var records []models.SalesRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStructural, err)
		}
		if p.maxRows > 0 && len(records) >= p.maxRows {
			return nil, fmt.Errorf("%w (max %d)", ErrTooManyRows, p.maxRows)
		}
		records = append(records, p.normalizer.Normalize(models.NewRawRecord(headers, fields), mapping))
	}

	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	return &models.ParseResult{
		Records: records,
		Columns: headers,
		Mapping: mapping,
	}, nil
}

// skipBOM drops a leading UTF-8 byte order mark, common in spreadsheet exports.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func presetName(p *Preset) string {
	if p == nil {
		return "none"
	}
	return p.Name
}
