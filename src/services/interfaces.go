package services

import (
	"context"
	"io"
	"time"

	"github.com/username/tidyguru/backend/src/model"
	"github.com/username/tidyguru/backend/src/models"
)

// UploadService parses CSV files and owns persisted uploads and their sales rows.
type UploadService interface {
	ParseFile(fileReader io.Reader, source string) (*models.ParseResult, error)
	ProcessUpload(ctx context.Context, fileReader io.Reader, userID, filename, source string) (*models.Upload, error)
	ListUploads(ctx context.Context, userID string) ([]models.Upload, error)
	GetUpload(ctx context.Context, userID, uploadID string) (*models.UploadWithData, error)
	GetSalesRecords(ctx context.Context, userID, uploadID string) ([]models.SalesRecord, error)
	RenameUpload(ctx context.Context, userID, uploadID, filename string) (*models.Upload, error)
	DeleteUpload(ctx context.Context, userID, uploadID string) error
}

// DashboardService turns sales records into dashboard views.
type DashboardService interface {
	GetDashboard(ctx context.Context, userID, uploadID string, query RangeQuery) (*models.Dashboard, error)
	BuildDashboard(records []models.SalesRecord, query RangeQuery) (*models.Dashboard, error)
}

// ExportService renders sales records as CSV.
type ExportService interface {
	WriteCSV(w io.Writer, records []models.SalesRecord) error
	WriteSampleCSV(w io.Writer) error
}

// SubscriptionService mirrors Whop memberships into local subscriptions.
type SubscriptionService interface {
	HandleWebhook(ctx context.Context, event *WhopWebhookEvent) error
	GetStatus(ctx context.Context, userID, email string) (*SubscriptionStatus, error)
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
	Sync(ctx context.Context, userID, membershipID string) (*model.Subscription, error)
	Cancel(ctx context.Context, userID string) error
}

// WhopClient is the subset of the Whop REST API the backend calls.
type WhopClient interface {
	GetMembership(ctx context.Context, membershipID string) (*WhopMembership, error)
}

// RangeQuery is the raw date-range selection of a dashboard or export request.
type RangeQuery struct {
	From   string
	To     string
	Preset string
	Now    time.Time
}

// SubscriptionStatus is what the client needs to gate paid features.
type SubscriptionStatus struct {
	Active       bool                `json:"active"`
	Required     bool                `json:"required"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}
