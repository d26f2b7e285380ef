package rest

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/performance-management/internal"
)

// HealthHandler reports gateway readiness: the audit database and the
// session/revocation Redis both need to answer.
type HealthHandler struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func NewHealthHandler(db *sql.DB, redisClient redis.UniversalClient) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := healthStatus{
		Status: "ok",
		Checks: map[string]string{},
	}
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status.Checks["database"] = err.Error()
			status.Status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			status.Checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Checks["redis"] = err.Error()
			status.Status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(status)
}

func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "pong"})
}
