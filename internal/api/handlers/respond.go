package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/crop"
)

// dateLayout API 날짜 형식
const dateLayout = "2006-01-02"

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor 도메인 오류 → HTTP 상태
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInvalidHorizon),
		errors.Is(err, contracts.ErrSchemaMismatch),
		errors.Is(err, crop.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrUnparsableDate),
		errors.Is(err, contracts.ErrDuplicateDate),
		errors.Is(err, contracts.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseDate 빈 문자열은 zero time
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
