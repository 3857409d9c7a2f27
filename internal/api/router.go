package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/agrimet/internal/api/handlers"
	"github.com/wonny/agrimet/pkg/logger"
)

// Handlers API 핸들러 묶음. nil 인 핸들러의 라우트는 등록하지 않는다.
type Handlers struct {
	Series   *handlers.SeriesHandler
	Forecast *handlers.ForecastHandler
	Crop     *handlers.CropHandler

	// Checks /health 에서 실행할 의존성 점검 (database, redis, dataset)
	Checks map[string]HealthCheck

	// DisableMetrics true 면 /metrics 미등록 (METRICS_ENABLED=false)
	DisableMetrics bool
}

// HealthCheck 의존성 하나를 점검한다
type HealthCheck func(ctx context.Context) error

// healthCheckTimeout 점검 하나당 제한 시간
const healthCheckTimeout = 2 * time.Second

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.Checks)).Methods("GET")

	// Prometheus
	if !h.DisableMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Series endpoints
	if h.Series != nil {
		api.HandleFunc("/series", h.Series.GetSeries).Methods("GET")
		api.HandleFunc("/series/summary", h.Series.GetSummary).Methods("GET")
		api.HandleFunc("/series/report", h.Series.GetReport).Methods("GET")
	}

	// Forecast endpoints
	if h.Forecast != nil {
		api.HandleFunc("/models", h.Forecast.Models).Methods("GET")
		api.HandleFunc("/forecast", h.Forecast.Create).Methods("POST")
		api.HandleFunc("/forecast", h.Forecast.List).Methods("GET")
		api.HandleFunc("/forecast/{id}", h.Forecast.Get).Methods("GET")
		api.HandleFunc("/forecast/{id}/csv", h.Forecast.GetCSV).Methods("GET")
		api.HandleFunc("/evaluate", h.Forecast.Evaluate).Methods("POST")
	}

	// Crop endpoints
	if h.Crop != nil {
		api.HandleFunc("/crop/recommend", h.Crop.Recommend).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler 점검이 하나라도 실패하면 503 + "degraded"
func healthCheckHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check(ctx)
			cancel()

			if err != nil {
				results[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := map[string]interface{}{
			"status":  status,
			"service": "agrimet-api",
		}
		if len(results) > 0 {
			body["checks"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}

// statusRecorder 응답 코드 기록용
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
