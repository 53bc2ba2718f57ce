package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carenest/patient-portal/pkg/logging"
)

const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db     *sql.DB
	redis  redis.UniversalClient
	logger *logging.Logger
}

// NewHealthHandler creates the probe handler. db and redis are optional; a
// missing dependency is reported as "disabled".
func NewHealthHandler(db *sql.DB, rdb redis.UniversalClient, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, redis: rdb, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{
		"postgres": h.check(ctx, "postgres", h.pingDB),
		"redis":    h.check(ctx, "redis", h.pingRedis),
	}
	status, code := "ok", http.StatusOK
	for _, v := range checks {
		if v == "down" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeHealth(w, code, healthResponse{Status: status, Checks: checks})
}

func (h *HealthHandler) pingDB(ctx context.Context) (bool, error) {
	if h.db == nil {
		return false, nil
	}
	return true, h.db.PingContext(ctx)
}

func (h *HealthHandler) pingRedis(ctx context.Context) (bool, error) {
	if h.redis == nil {
		return false, nil
	}
	return true, h.redis.Ping(ctx).Err()
}

func (h *HealthHandler) check(ctx context.Context, name string, ping func(context.Context) (bool, error)) string {
	enabled, err := ping(ctx)
	switch {
	case !enabled:
		return "disabled"
	case err != nil:
		h.logger.Warn("readiness check failed", "dependency", name, "error", err)
		return "down"
	default:
		return "up"
	}
}

func writeHealth(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
