// backend/src/services/upload_service.go
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/parsers"
)

const (
	ckUploadRecords   = "upload_records_%s"
	ckDashboardPrefix = "dashboard_%s_"

	CacheCleanupInterval = 30 * time.Minute

	insertBatchSize = 1000
	salesDataCols   = 9

	// storedTimeLayout is fixed-width so timestamps sort lexically.
	storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type uploadServiceImpl struct {
	db          *sql.DB
	reportCache *cache.Cache
	maxRows     int
}

func NewUploadService(db *sql.DB, reportCache *cache.Cache, maxRows int) UploadService {
	return &uploadServiceImpl{
		db:          db,
		reportCache: reportCache,
		maxRows:     maxRows,
	}
}

// ParseFile runs the parser for source without persisting anything.
func (s *uploadServiceImpl) ParseFile(fileReader io.Reader, source string) (*models.ParseResult, error) {
	parser, err := parsers.GetParser(source, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	result, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return result, nil
}

func (s *uploadServiceImpl) ProcessUpload(ctx context.Context, fileReader io.Reader, userID, filename, source string) (*models.Upload, error) {
	overallStartTime := time.Now()
	log := logger.FromContext(ctx)
	log.Info("ProcessUpload START", "userID", userID, "filename", filename, "source", source)

	result, err := s.ParseFile(fileReader, source)
	if err != nil {
		return nil, err
	}

	if source == "" {
		source = "auto"
	}
	now := time.Now().UTC()
	upload := &models.Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  strings.TrimSpace(filename),
		Source:    strings.ToLower(source),
		RowCount:  len(result.Records),
		Columns:   result.Columns,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if upload.Filename == "" {
		upload.Filename = "upload.csv"
	}
	columnsJSON, err := json.Marshal(upload.Columns)
	if err != nil {
		return nil, fmt.Errorf("error encoding upload columns: %w", err)
	}

	// --- Database Insertion ---
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO uploads (id, user_id, filename, source, row_count, columns_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID, upload.UserID, upload.Filename, upload.Source, upload.RowCount, string(columnsJSON),
		upload.CreatedAt.Format(storedTimeLayout), upload.UpdatedAt.Format(storedTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("error inserting upload: %w", err)
	}

	for start := 0; start < len(result.Records); start += insertBatchSize {
		end := min(start+insertBatchSize, len(result.Records))
		if err := insertSalesBatch(ctx, dbTx, upload.ID, start, result.Records[start:end]); err != nil {
			return nil, err
		}
		log.Debug("Inserted sales batch", "uploadID", upload.ID, "from", start, "to", end)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing upload: %w", err)
	}

	s.reportCache.Set(fmt.Sprintf(ckUploadRecords, upload.ID), sortedByDate(result.Records), cache.DefaultExpiration)

	log.Info("ProcessUpload END", "userID", userID, "uploadID", upload.ID, "rows", upload.RowCount, "duration", time.Since(overallStartTime))
	return upload, nil
}

// insertSalesBatch writes records as one multi-row INSERT. offset is the row index of records[0].
func insertSalesBatch(ctx context.Context, tx *sql.Tx, uploadID string, offset int, records []models.SalesRecord) error {
	if len(records) == 0 {
		return nil
	}
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", salesDataCols), ",") + ")"
	query := `INSERT INTO sales_data (upload_id, row_index, date, product, amount, refund, fees, quantity, raw_data) VALUES ` +
		strings.TrimSuffix(strings.Repeat(placeholders+",", len(records)), ",")

	args := make([]interface{}, 0, len(records)*salesDataCols)
	for i, rec := range records {
		rawJSON, err := json.Marshal(rec.RawData)
		if err != nil {
			return fmt.Errorf("error encoding raw data of row %d: %w", offset+i, err)
		}
		args = append(args, uploadID, offset+i, rec.Date.Format(models.DateLayout), rec.Product,
			rec.Amount, rec.Refund, rec.Fees, rec.Quantity, string(rawJSON))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error inserting sales rows %d-%d: %w", offset, offset+len(records)-1, err)
	}
	return nil
}

func (s *uploadServiceImpl) ListUploads(ctx context.Context, userID string) ([]models.Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, filename, source, row_count, columns_json, created_at, updated_at FROM uploads WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying uploads for userID %s: %w", userID, err)
	}
	defer rows.Close()

	uploads := []models.Upload{}
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning upload row for userID %s: %w", userID, err)
		}
		uploads = append(uploads, *upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over upload rows for userID %s: %w", userID, err)
	}
	return uploads, nil
}

func (s *uploadServiceImpl) getUploadRow(ctx context.Context, userID, uploadID string) (*models.Upload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, source, row_count, columns_json, created_at, updated_at FROM uploads WHERE id = ? AND user_id = ?`, uploadID, userID)
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("error loading upload %s: %w", uploadID, err)
	}
	return upload, nil
}

func (s *uploadServiceImpl) GetUpload(ctx context.Context, userID, uploadID string) (*models.UploadWithData, error) {
	upload, err := s.getUploadRow(ctx, userID, uploadID)
	if err != nil {
		return nil, err
	}
	records, err := s.loadSalesRecords(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &models.UploadWithData{Upload: *upload, SalesData: records}, nil
}

// GetSalesRecords returns the upload's records ordered by date, then file order.
func (s *uploadServiceImpl) GetSalesRecords(ctx context.Context, userID, uploadID string) ([]models.SalesRecord, error) {
	if _, err := s.getUploadRow(ctx, userID, uploadID); err != nil {
		return nil, err
	}
	return s.loadSalesRecords(ctx, uploadID)
}

func (s *uploadServiceImpl) loadSalesRecords(ctx context.Context, uploadID string) ([]models.SalesRecord, error) {
	cacheKey := fmt.Sprintf(ckUploadRecords, uploadID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.FromContext(ctx).Debug("Cache hit for sales records", "uploadID", uploadID)
		return cached.([]models.SalesRecord), nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, product, amount, refund, fees, quantity, raw_data FROM sales_data WHERE upload_id = ? ORDER BY date ASC, row_index ASC`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("error querying sales data for upload %s: %w", uploadID, err)
	}
	defer rows.Close()

	records := []models.SalesRecord{}
	for rows.Next() {
		var rec models.SalesRecord
		var date, rawJSON string
		if err := rows.Scan(&date, &rec.Product, &rec.Amount, &rec.Refund, &rec.Fees, &rec.Quantity, &rawJSON); err != nil {
			return nil, fmt.Errorf("error scanning sales row for upload %s: %w", uploadID, err)
		}
		if rec.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q for upload %s: %w", date, uploadID, err)
		}
		if err := json.Unmarshal([]byte(rawJSON), &rec.RawData); err != nil {
			return nil, fmt.Errorf("invalid stored raw data for upload %s: %w", uploadID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over sales rows for upload %s: %w", uploadID, err)
	}

	s.reportCache.Set(cacheKey, records, cache.DefaultExpiration)
	logger.FromContext(ctx).Info("DB fetch complete.", "uploadID", uploadID, "recordCount", len(records))
	return records, nil
}

func (s *uploadServiceImpl) RenameUpload(ctx context.Context, userID, uploadID, filename string) (*models.Upload, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("filename must not be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET filename = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		filename, time.Now().UTC().Format(storedTimeLayout), uploadID, userID)
	if err != nil {
		return nil, fmt.Errorf("error renaming upload %s: %w", uploadID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUploadNotFound
	}
	s.InvalidateUploadCache(uploadID)
	return s.getUploadRow(ctx, userID, uploadID)
}

func (s *uploadServiceImpl) DeleteUpload(ctx context.Context, userID, uploadID string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `DELETE FROM uploads WHERE id = ? AND user_id = ?`, uploadID, userID)
	if err != nil {
		return fmt.Errorf("error deleting upload %s: %w", uploadID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUploadNotFound
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM sales_data WHERE upload_id = ?`, uploadID); err != nil {
		return fmt.Errorf("error deleting sales data of upload %s: %w", uploadID, err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing upload deletion: %w", err)
	}

	s.InvalidateUploadCache(uploadID)
	logger.FromContext(ctx).Info("Deleted upload", "userID", userID, "uploadID", uploadID)
	return nil
}

// InvalidateUploadCache drops the cached records and every cached dashboard of an upload.
func (s *uploadServiceImpl) InvalidateUploadCache(uploadID string) {
	s.reportCache.Delete(fmt.Sprintf(ckUploadRecords, uploadID))
	prefix := fmt.Sprintf(ckDashboardPrefix, uploadID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.reportCache.Delete(key)
		}
	}
	logger.L.Debug("Invalidated caches for upload", "uploadID", uploadID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUpload(row rowScanner) (*models.Upload, error) {
	var upload models.Upload
	var columnsJSON, createdAt, updatedAt string
	if err := row.Scan(&upload.ID, &upload.UserID, &upload.Filename, &upload.Source, &upload.RowCount, &columnsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(columnsJSON), &upload.Columns); err != nil {
		return nil, fmt.Errorf("invalid stored columns: %w", err)
	}
	upload.CreatedAt, _ = time.Parse(storedTimeLayout, createdAt)
	upload.UpdatedAt, _ = time.Parse(storedTimeLayout, updatedAt)
	return &upload, nil
}

// sortedByDate returns a copy of records in the order they are read back from storage.
func sortedByDate(records []models.SalesRecord) []models.SalesRecord {
	sorted := make([]models.SalesRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}
