package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tidyguru/backend/src/models"
)

const salesCSV = `Date,Product,Amount,Refund,Fees
2025-01-16,Pro Plan,49.00,0,1.47
2025-01-15,Premium,99.00,0,2.97
2025-01-15,Starter,29.00,0,0.87
2025-01-18,Starter,0,29.00,0
`

func TestParseFileDoesNotPersist(t *testing.T) {
	db := newTestDB(t)
	svc := NewUploadService(db, newTestCache(), 0)

	result, err := svc.ParseFile(strings.NewReader(salesCSV), "")
	require.NoError(t, err)
	assert.Len(t, result.Records, 4)
	assert.Equal(t, "Date", result.Mapping.DateColumn)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM uploads`).Scan(&count))
	assert.Zero(t, count)
}

func TestParseFileWrapsParserErrors(t *testing.T) {
	svc := NewUploadService(newTestDB(t), newTestCache(), 0)

	_, err := svc.ParseFile(strings.NewReader(""), "")
	assert.ErrorIs(t, err, ErrParsingFailed)

	_, err = svc.ParseFile(strings.NewReader(salesCSV), "gumroad-classic")
	assert.ErrorIs(t, err, ErrParsingFailed)
}

func TestProcessUploadStoresRowsInDateOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewUploadService(db, newTestCache(), 0)

	upload, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "user-1", " january.csv ", "")
	require.NoError(t, err)
	assert.NotEmpty(t, upload.ID)
	assert.Equal(t, "january.csv", upload.Filename)
	assert.Equal(t, "auto", upload.Source)
	assert.Equal(t, 4, upload.RowCount)
	assert.Equal(t, []string{"Date", "Product", "Amount", "Refund", "Fees"}, upload.Columns)

	var stored int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sales_data WHERE upload_id = ?`, upload.ID).Scan(&stored))
	assert.Equal(t, 4, stored)

	// A fresh service has an empty cache and reads from the database.
	cold := NewUploadService(db, newTestCache(), 0)
	fromDB, err := cold.GetUpload(ctx, "user-1", upload.ID)
	require.NoError(t, err)
	fromCache, err := svc.GetUpload(ctx, "user-1", upload.ID)
	require.NoError(t, err)

	products := func(records []models.SalesRecord) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.Product)
		}
		return out
	}
	assert.Equal(t, []string{"Premium", "Starter", "Pro Plan", "Starter"}, products(fromDB.SalesData))
	assert.Equal(t, products(fromDB.SalesData), products(fromCache.SalesData))
	assert.Equal(t, "99.00", fromDB.SalesData[0].RawData.Get("Amount"))
	assert.Equal(t, upload.Columns, fromDB.Columns)
}

func TestProcessUploadBatchesLargeFiles(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Product,Amount\n")
	total := insertBatchSize*2 + 7
	for i := 0; i < total; i++ {
		fmt.Fprintf(&b, "2025-01-%02d,Item %d,1.00\n", i%28+1, i)
	}
	db := newTestDB(t)
	svc := NewUploadService(db, newTestCache(), 0)

	upload, err := svc.ProcessUpload(context.Background(), strings.NewReader(b.String()), "user-1", "big.csv", "generic")
	require.NoError(t, err)
	assert.Equal(t, total, upload.RowCount)

	var stored, maxIndex int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(row_index) FROM sales_data WHERE upload_id = ?`, upload.ID).Scan(&stored, &maxIndex))
	assert.Equal(t, total, stored)
	assert.Equal(t, total-1, maxIndex)
}

func TestUploadsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewUploadService(newTestDB(t), newTestCache(), 0)

	upload, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "owner", "a.csv", "")
	require.NoError(t, err)

	_, err = svc.GetUpload(ctx, "intruder", upload.ID)
	assert.ErrorIs(t, err, ErrUploadNotFound)
	_, err = svc.GetSalesRecords(ctx, "intruder", upload.ID)
	assert.ErrorIs(t, err, ErrUploadNotFound)
	_, err = svc.RenameUpload(ctx, "intruder", upload.ID, "mine.csv")
	assert.ErrorIs(t, err, ErrUploadNotFound)
	assert.ErrorIs(t, svc.DeleteUpload(ctx, "intruder", upload.ID), ErrUploadNotFound)

	list, err := svc.ListUploads(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListUploadsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := NewUploadService(newTestDB(t), newTestCache(), 0)

	first, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "user-1", "first.csv", "")
	require.NoError(t, err)
	second, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "user-1", "second.csv", "")
	require.NoError(t, err)

	list, err := svc.ListUploads(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestRenameUpload(t *testing.T) {
	ctx := context.Background()
	svc := NewUploadService(newTestDB(t), newTestCache(), 0)
	upload, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "user-1", "a.csv", "")
	require.NoError(t, err)

	renamed, err := svc.RenameUpload(ctx, "user-1", upload.ID, "  Q1 sales.csv ")
	require.NoError(t, err)
	assert.Equal(t, "Q1 sales.csv", renamed.Filename)
	assert.False(t, renamed.UpdatedAt.Before(upload.UpdatedAt))

	_, err = svc.RenameUpload(ctx, "user-1", upload.ID, "   ")
	assert.Error(t, err)
}

func TestDeleteUploadRemovesRowsAndCache(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	c := newTestCache()
	svc := NewUploadService(db, c, 0)
	upload, err := svc.ProcessUpload(ctx, strings.NewReader(salesCSV), "user-1", "a.csv", "")
	require.NoError(t, err)

	c.SetDefault(fmt.Sprintf(ckDashboardPrefix, upload.ID)+"*_*", &models.Dashboard{})
	c.SetDefault(fmt.Sprintf(ckDashboardPrefix, "other")+"*_*", &models.Dashboard{})

	require.NoError(t, svc.DeleteUpload(ctx, "user-1", upload.ID))

	var stored int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sales_data WHERE upload_id = ?`, upload.ID).Scan(&stored))
	assert.Zero(t, stored)

	_, found := c.Get(fmt.Sprintf(ckUploadRecords, upload.ID))
	assert.False(t, found)
	_, found = c.Get(fmt.Sprintf(ckDashboardPrefix, upload.ID) + "*_*")
	assert.False(t, found)
	_, found = c.Get(fmt.Sprintf(ckDashboardPrefix, "other") + "*_*")
	assert.True(t, found)

	_, err = svc.GetUpload(ctx, "user-1", upload.ID)
	assert.True(t, errors.Is(err, ErrUploadNotFound))
}
