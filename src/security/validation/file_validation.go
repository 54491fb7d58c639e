package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/spendfolio/backend/src/logger"
)

// ErrValidationFailed wraps any row- or file-level validation failure so
// handlers can map it to a 400 response.
var ErrValidationFailed = errors.New("validation failed")

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // Often used for CSV by older Excel
	"text/plain":               true, // CSVs are often plain text
	"application/octet-stream": true, // Fallback, but be more cautious
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false, // .xlsx, explicitly disallow for CSV endpoint
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	if allowed, exists := AllowedClientContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed for CSV upload", ErrValidationFailed, contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual file content signature (magic bytes).
// It returns the detected content type and an error if validation fails.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, 512) // Read first 512 bytes for MIME detection
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the file read pointer so the actual parser can read the full file.
	_, seekErr := file.Seek(0, io.SeekStart)
	if seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0]) // Normalize (e.g. "text/plain; charset=utf-8")

	// For CSV we mainly care that the payload is text-based. octet-stream is
	// allowed here; strict parsing later rejects anything that is not CSV.
	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true,
	}

	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("%w: detected file content type '%s' is not consistent with a CSV file", ErrValidationFailed, detectedContentType)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
