package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/player"
)

// HealthResponse reports service, database and player health in one view.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Player   string                 `json:"player"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db     *db.DB
	engine *player.Engine
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(database *db.DB, engine *player.Engine) *HealthHandler {
	return &HealthHandler{db: database, engine: engine}
}

// Check reports ok while the database answers a ping and the player is out
// of the error phase; a failed catalog load degrades the service without
// taking it down.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}

	snap := h.engine.Snapshot()
	response.Player = snap.Phase
	response.Details["channels"] = len(snap.Channels)
	if snap.Error != "" {
		response.Status = "degraded"
		response.Details["player_error"] = snap.Error
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, engine *player.Engine) {
	handler := NewHealthHandler(database, engine)
	apiGroup.GET("/health", handler.Check)
}
