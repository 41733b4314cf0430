package handlers

import (
	"fmt"
	"net/http"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/processors"
	"github.com/username/tidyguru/backend/src/security/validation"
	"github.com/username/tidyguru/backend/src/services"
	"github.com/username/tidyguru/backend/src/utils"
)

type DashboardHandler struct {
	uploadService    services.UploadService
	dashboardService services.DashboardService
	exportService    services.ExportService
}

func NewDashboardHandler(uploadService services.UploadService, dashboardService services.DashboardService, exportService services.ExportService) *DashboardHandler {
	return &DashboardHandler{
		uploadService:    uploadService,
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

func (h *DashboardHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	uploadID := r.PathValue("id")
	logger.FromContext(r.Context()).Debug("Handling dashboard request with ETag support", "userID", userID, "uploadID", uploadID)

	dashboard, err := h.dashboardService.GetDashboard(r.Context(), userID, uploadID, rangeQueryFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err, "computing dashboard")
		return
	}
	writeJSONWithETag(w, r, dashboard)
}

// HandleExportCSV streams the upload's records in the selected range as CSV.
func (h *DashboardHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	uploadID := r.PathValue("id")

	dateRange, err := services.ResolveRange(rangeQueryFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err, "exporting csv")
		return
	}
	upload, err := h.uploadService.GetUpload(r.Context(), userID, uploadID)
	if err != nil {
		handleServiceError(w, r, err, "exporting csv")
		return
	}
	records := processors.FilterByDateRange(upload.SalesData, dateRange)

	filename := validation.SanitizeFilename(services.ExportFilename(upload.Filename, dateRange))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if err := h.exportService.WriteCSV(w, records); err != nil {
		logger.FromContext(r.Context()).Error("Error writing CSV export", "userID", userID, "uploadID", uploadID, "error", err)
		return
	}
	logger.FromContext(r.Context()).Info("Exported CSV", "userID", userID, "uploadID", uploadID, "rows", len(records))
}

func (h *DashboardHandler) HandleSampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", services.SampleFilename))
	if err := h.exportService.WriteSampleCSV(w); err != nil {
		logger.FromContext(r.Context()).Error("Error writing sample CSV", "error", err)
	}
}
