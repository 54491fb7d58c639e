// backend/src/handlers/attribution_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/services"
	"github.com/username/spendfolio/backend/src/utils"
)

type AttributionHandler struct {
	importService services.ImportService
}

func NewAttributionHandler(service services.ImportService) *AttributionHandler {
	return &AttributionHandler{
		importService: service,
	}
}

// HandleGetAttributions returns persisted attribution records for an
// inclusive date range, newest first, with ETag support.
func (h *AttributionHandler) HandleGetAttributions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if err := utils.ValidateDateRange(start, end); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.importService.GetAttributions(userID, start, end)
	if err != nil {
		logger.L.Error("Error retrieving attributions", "userID", userID, "start", start, "end", end, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving attributions for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	currentETag, etagErr := utils.GenerateETag(records)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Debug("ETag match for attribution range", "userID", userID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error or empty ETag", "userID", userID)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		logger.L.Error("Error generating JSON response for attributions", "userID", userID, "error", err)
	}
}

// HandleDeleteAllAttributions wipes the user's attribution history. Triggered
// from the dashboard settings, never by the import engine.
func (h *AttributionHandler) HandleDeleteAllAttributions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	deleted, err := h.importService.DeleteAllAttributions(userID)
	if err != nil {
		logger.L.Error("Error deleting attributions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete attribution records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "All attribution records deleted",
		"records_deleted": deleted,
	})
}

// HandleCheckUserData reports whether the user has imported anything yet, so
// the dashboard can show an onboarding state.
func (h *AttributionHandler) HandleCheckUserData(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	hasData, err := h.importService.HasData(userID)
	if err != nil {
		logger.L.Error("Error checking user data", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to check user data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"has_data": hasData})
}
