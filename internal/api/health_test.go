package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusel95/whitenoise/internal/catalog"
	"github.com/rusel95/whitenoise/internal/config"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/player"
)

func setupHealthRouter(t *testing.T, libraryDir string) (*gin.Engine, *player.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := &config.Config{
		Fade: config.FadeConfig{
			StepRate: 200,
			In:       20 * time.Millisecond,
			Out:      20 * time.Millisecond,
		},
	}
	engine := player.NewEngine(cfg, catalog.New(libraryDir, "sounds.json"), nullFactory{}, nil)
	require.NoError(t, engine.Start())
	t.Cleanup(engine.Stop)

	router := gin.New()
	SetupHealthRoutes(router.Group("/api"), database, engine)
	return router, engine
}

func TestHealthReportsPlayerAndDatabase(t *testing.T) {
	router, engine := setupHealthRouter(t, writeTestLibrary(t))
	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return !s.Loading && len(s.Channels) == 2
	})

	w := doRequest(router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "healthy", resp.Database)
	assert.Equal(t, "idle", resp.Player)
	assert.Equal(t, float64(2), resp.Details["channels"])
}

func TestHealthDegradedAfterFailedCatalogLoad(t *testing.T) {
	// An empty library dir has no manifest; the load fails and the player
	// lands in the error phase, which degrades health without failing it.
	router, engine := setupHealthRouter(t, t.TempDir())
	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return s.Phase == "error"
	})

	w := doRequest(router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Database)
	assert.Equal(t, "error", resp.Player)
	assert.NotEmpty(t, resp.Details["player_error"])
}
