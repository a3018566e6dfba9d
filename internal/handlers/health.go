package handlers

import (
	"context"
	"net/http"
	"time"

	"authsystem/internal/logger"
	helpers "authsystem/internal/utils/helpres"

	"go.uber.org/zap"
)

// Pinger: проверка доступности БД (pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	project string
	version string
}

func NewHealthHandler(db Pinger, project, version string) *HealthHandler {
	return &HealthHandler{db: db, project: project, version: version}
}

type healthResponse struct {
	Status   string `json:"status"`
	Project  string `json:"project"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Health godoc
// @Summary Состояние сервиса
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Project: h.project, Version: h.version, Database: "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.db == nil || h.db.Ping(ctx) != nil {
		logger.WithCtx(r.Context()).Warn("Health: БД недоступна", zap.String("project", h.project))
		resp.Status = "unhealthy"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	helpers.JSON(w, status, resp)
}
