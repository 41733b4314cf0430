package validation

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/username/tidyguru/backend/src/logger"
)

// ErrValidationFailed marks uploads rejected before parsing.
var ErrValidationFailed = errors.New("file validation failed")

// allowedClientContentTypes are the MIME types browsers send for CSV files.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                    true,
	"application/csv":             true,
	"text/comma-separated-values": true,
	"application/vnd.ms-excel":    true,
	"text/plain":                  true,
	"application/octet-stream":    true,
}

// allowedDetectedTypes are the sniffed types a CSV body may produce.
var allowedDetectedTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
}

var allowedExtensions = map[string]bool{
	".csv": true,
	".txt": true,
	"":     true,
}

// ValidateClientContentType checks the Content-Type the client declared for the file part.
// An empty value is accepted since some clients omit it.
func ValidateClientContentType(contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: malformed content type '%s'", ErrValidationFailed, contentType)
	}
	if !allowedClientContentTypes[strings.ToLower(mediaType)] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: file type '%s' is not allowed for CSV upload", ErrValidationFailed, contentType)
	}
	return nil
}

// ValidateFilename rejects files whose extension is clearly not CSV.
func ValidateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: file extension '%s' is not allowed, upload a .csv file", ErrValidationFailed, ext)
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the first 512 bytes and rewinds file.
// It returns the detected content type.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.TrimSpace(strings.Split(detected, ";")[0]))

	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detected)
		return detected, fmt.Errorf("%w: detected content type '%s' is not consistent with a CSV file", ErrValidationFailed, detected)
	}
	return detected, nil
}
