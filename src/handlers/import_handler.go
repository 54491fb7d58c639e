// backend/src/handlers/import_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/spendfolio/backend/src/config"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/security/validation"
	"github.com/username/spendfolio/backend/src/services"
	"github.com/username/spendfolio/backend/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: service,
	}
}

// HandleImport receives one Meta Ads export as multipart form data and runs
// the synchronous batch import. Optional form fields: "source" (defaults to
// meta), "exchange_rate" and "expected_total".
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file header reports size too large", "userID", userID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB (header check)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("File content validated by magic bytes", "userID", userID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	opts := services.ImportOptions{
		Source: r.FormValue("source"),
	}
	if rateStr := r.FormValue("exchange_rate"); rateStr != "" {
		rate, parseErr := strconv.ParseFloat(rateStr, 64)
		if parseErr != nil || rate <= 0 {
			utils.SendJSONError(w, "exchange_rate must be a positive number", http.StatusBadRequest)
			return
		}
		opts.ExchangeRate = rate
	}
	if expectedStr := r.FormValue("expected_total"); expectedStr != "" {
		expected, parseErr := strconv.ParseFloat(expectedStr, 64)
		if parseErr != nil || expected < 0 {
			utils.SendJSONError(w, "expected_total must be a non-negative number", http.StatusBadRequest)
			return
		}
		opts.ExpectedTotal = expected
	}

	logger.L.Info("Processing import request", "userID", userID, "filename", fileHeader.Filename)
	summary, err := h.importService.ProcessImport(file, userID, opts)
	if err != nil {
		if errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Import failed due to CSV parsing errors", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrPersistenceFailed) {
			// The upsert runs as one transaction; nothing from this batch was
			// committed and the caller should retry the whole file.
			logger.L.Error("Import failed while writing attributions", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "Failed to persist the batch; no records were written. Please retry the upload.", http.StatusInternalServerError)
		} else {
			logger.L.Error("Internal error processing import", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		logger.L.Error("Error encoding JSON response for import summary", "userID", userID, "error", err)
	}
}
