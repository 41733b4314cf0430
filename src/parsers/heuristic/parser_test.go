package heuristic

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(opts ...Option) *Parser {
	return NewParser(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestParseGenericFile(t *testing.T) {
	input := "Date,Product,Amount,Refund,Fees\n" +
		"2025-01-15,Premium Analytics Dashboard,99.00,0,2.97\n" +
		"2025-01-18,Starter Plan,29.00,29.00,0.87\n"

	result, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Product", "Amount", "Refund", "Fees"}, result.Columns)
	assert.Equal(t, "Amount", result.Mapping.AmountColumn)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "Premium Analytics Dashboard", result.Records[0].Product)
	assert.Equal(t, 99.0, result.Records[0].Amount)
	assert.Equal(t, 2.97, result.Records[0].Fees)
	assert.Equal(t, 29.0, result.Records[1].Refund)
	assert.Equal(t, 29.0, result.Records[1].Amount)
}

func TestParseRefundScenario(t *testing.T) {
	result, err := newTestParser().Parse(strings.NewReader("Date,Product,Amount\n2025-01-18,Starter Plan,-29.00\n"))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Zero(t, rec.Amount)
	assert.Equal(t, 29.0, rec.Refund)
	assert.Zero(t, rec.Quantity)
}

func TestParseStripsByteOrderMark(t *testing.T) {
	input := "\xEF\xBB\xBF\"Date\",Product,Amount\n2025-01-15,A,10\n"
	result, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Date", result.Columns[0])
	assert.Equal(t, "Date", result.Mapping.DateColumn)
}

func TestParseQuotedFieldsWithCommas(t *testing.T) {
	input := "Date,Product,Amount\n2025-01-15,\"Course, Advanced\",\"$1,234.56\"\n"
	result, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Course, Advanced", result.Records[0].Product)
	assert.Equal(t, 1234.56, result.Records[0].Amount)
}

func TestParseRaggedRows(t *testing.T) {
	input := "Date,Product,Amount\n2025-01-15,A\n2025-01-16,B,5,extra\n"
	result, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Zero(t, result.Records[0].Amount)
	assert.Equal(t, 5.0, result.Records[1].Amount)
}

func TestParseBlankLinesAreSkipped(t *testing.T) {
	input := "Date,Product,Amount\n\n2025-01-15,A,1\n\n2025-01-16,B,2\n"
	result, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty file", "", ErrNoHeader},
		{"header only", "Date,Product,Amount\n", ErrNoDataRows},
		{"unterminated quote", "Date,Product,Amount\n2025-01-15,\"Broken,10\n", ErrStructural},
		{"bare quote in header", "Da\"te,Product\n2025-01-15,A\n", ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestParser().Parse(strings.NewReader(tt.input))
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParseRowLimit(t *testing.T) {
	input := "Date,Product,Amount\n2025-01-15,A,1\n2025-01-16,B,2\n2025-01-17,C,3\n"

	_, err := newTestParser(WithMaxRows(2)).Parse(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrTooManyRows)

	result, err := newTestParser(WithMaxRows(3)).Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
}

func TestParseWithShopifyPreset(t *testing.T) {
	input := "Name,Created at,Lineitem name,Lineitem quantity,Subtotal,Total\n" +
		"#1001,2025-01-15 10:00:00 -0500,Poster,2,20.00,24.00\n"
	result, err := newTestParser(WithPreset(ShopifyPreset)).Parse(strings.NewReader(input))
	require.NoError(t, err)
	rec := result.Records[0]
	assert.Equal(t, "Poster", rec.Product)
	assert.Equal(t, 24.0, rec.Amount)
	assert.Equal(t, 2, rec.Quantity)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), rec.Date)
}

func TestParseIsDeterministic(t *testing.T) {
	input := "Date,Product,Amount\n2025-01-15,A,10\n2025-01-16,B,-3\n"
	first, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	second, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
