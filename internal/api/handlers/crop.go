package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/agrimet/internal/crop"
	"github.com/wonny/agrimet/pkg/logger"
)

// CropHandler handles crop recommendation
type CropHandler struct {
	recommender *crop.Recommender
	logger      *logger.Logger
}

// NewCropHandler creates a new crop handler
func NewCropHandler(recommender *crop.Recommender, log *logger.Logger) *CropHandler {
	return &CropHandler{recommender: recommender, logger: log}
}

// Recommend returns the crop best suited to the given conditions
// POST /api/crop/recommend
func (h *CropHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var in crop.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.recommender.Recommend(r.Context(), in)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Crop recommendation failed")
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
