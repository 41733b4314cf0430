// backend/src/handlers/upload_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/security"
	"github.com/username/tidyguru/backend/src/security/validation"
	"github.com/username/tidyguru/backend/src/services"
	"github.com/username/tidyguru/backend/src/utils"
)

type UploadHandler struct {
	uploadService    services.UploadService
	dashboardService services.DashboardService
	maxUploadBytes   int64
}

func NewUploadHandler(uploadService services.UploadService, dashboardService services.DashboardService, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{
		uploadService:    uploadService,
		dashboardService: dashboardService,
		maxUploadBytes:   maxUploadBytes,
	}
}

// parseResponse is the body of POST /api/parse.
type parseResponse struct {
	*models.ParseResult
	Dashboard *models.Dashboard `json:"dashboard"`
}

type renameRequest struct {
	Filename string `json:"filename"`
}

// readCSVFile extracts and validates the "file" part of a multipart upload.
// On failure it has already written the error response.
func (h *UploadHandler) readCSVFile(w http.ResponseWriter, r *http.Request, userID string) (multipart.File, *multipart.FileHeader, bool) {
	log := logger.FromContext(r.Context())
	maxMB := h.maxUploadBytes / (1024 * 1024)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", maxMB), http.StatusBadRequest)
		return nil, nil, false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, nil, false
	}

	fail := func(msg string, status int) (multipart.File, *multipart.FileHeader, bool) {
		file.Close()
		utils.SendJSONError(w, msg, status)
		return nil, nil, false
	}

	if fileHeader.Size > h.maxUploadBytes {
		log.Warn("Uploaded file too large", "userID", userID, "fileSize", fileHeader.Size, "limit", h.maxUploadBytes)
		return fail(fmt.Sprintf("File too large, max %d MB", maxMB), http.StatusBadRequest)
	}
	if err := validation.ValidateFilename(fileHeader.Filename); err != nil {
		log.Warn("Invalid upload filename", "userID", userID, "filename", fileHeader.Filename, "error", err)
		return fail(err.Error(), http.StatusBadRequest)
	}
	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		log.Warn("Invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		return fail(err.Error(), http.StatusBadRequest)
	}
	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		log.Warn("Server-side file content validation failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		return fail(err.Error(), http.StatusBadRequest)
	}
	log.Debug("File content validated", "userID", userID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)
	return file, fileHeader, true
}

// HandleParse parses a file and returns records, mapping and dashboard without storing anything.
func (h *UploadHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	file, _, ok := h.readCSVFile(w, r, userID)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.uploadService.ParseFile(file, r.FormValue("source"))
	if err != nil {
		handleServiceError(w, r, err, "parsing file")
		return
	}
	dashboard, err := h.dashboardService.BuildDashboard(result.Records, rangeQueryFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err, "building dashboard")
		return
	}
	writeJSON(w, r, http.StatusOK, parseResponse{ParseResult: result, Dashboard: dashboard})
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	file, fileHeader, ok := h.readCSVFile(w, r, userID)
	if !ok {
		return
	}
	defer file.Close()

	logger.FromContext(r.Context()).Info("Processing upload request", "userID", userID, "filename", fileHeader.Filename)
	upload, err := h.uploadService.ProcessUpload(r.Context(), file, userID, fileHeader.Filename, r.FormValue("source"))
	if err != nil {
		handleServiceError(w, r, err, "processing upload")
		return
	}
	writeJSON(w, r, http.StatusCreated, upload)
}

func (h *UploadHandler) HandleListUploads(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	uploads, err := h.uploadService.ListUploads(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "listing uploads")
		return
	}
	writeJSON(w, r, http.StatusOK, uploads)
}

func (h *UploadHandler) HandleGetUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	upload, err := h.uploadService.GetUpload(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err, "loading upload")
		return
	}
	writeJSONWithETag(w, r, upload)
}

func (h *UploadHandler) HandleRenameUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	var req renameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		utils.SendJSONError(w, "filename is required", http.StatusBadRequest)
		return
	}
	upload, err := h.uploadService.RenameUpload(r.Context(), userID, r.PathValue("id"), validation.StripUnprintable(req.Filename))
	if err != nil {
		handleServiceError(w, r, err, "renaming upload")
		return
	}
	writeJSON(w, r, http.StatusOK, upload)
}

func (h *UploadHandler) HandleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.uploadService.DeleteUpload(r.Context(), userID, r.PathValue("id")); err != nil {
		handleServiceError(w, r, err, "deleting upload")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service sentinels to HTTP statuses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		log.Warn("Request rejected by file validation", "action", action, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrParsingFailed):
		log.Warn("CSV parsing failed", "action", action, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidDateRange):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUploadNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, security.ErrInvalidSignature), errors.Is(err, security.ErrInvalidToken):
		utils.SendJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrSubscriptionRequired):
		utils.SendJSONError(w, err.Error(), http.StatusPaymentRequired)
	default:
		log.Error("Internal error", "action", action, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("Error encoding JSON response", "path", r.URL.Path, "error", err)
	}
}

// writeJSONWithETag answers 304 when If-None-Match carries the current ETag of data.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, data interface{}) {
	log := logger.FromContext(r.Context())
	currentETag, etagErr := utils.GenerateETag(data)
	if etagErr != nil {
		log.Error("Failed to generate ETag", "path", r.URL.Path, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				log.Debug("ETag match", "path", r.URL.Path, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	writeJSON(w, r, http.StatusOK, data)
}

func rangeQueryFromRequest(r *http.Request) services.RangeQuery {
	q := r.URL.Query()
	return services.RangeQuery{
		From:   q.Get("from"),
		To:     q.Get("to"),
		Preset: q.Get("preset"),
	}
}
