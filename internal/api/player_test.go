package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusel95/whitenoise/internal/audio"
	"github.com/rusel95/whitenoise/internal/catalog"
	"github.com/rusel95/whitenoise/internal/config"
	"github.com/rusel95/whitenoise/internal/player"
)

type nullOutput struct {
	mu      sync.Mutex
	volume  float64
	playing bool
}

func (o *nullOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = v
}

func (o *nullOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *nullOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = true
}

func (o *nullOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *nullOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *nullOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

type nullFactory struct{}

func (nullFactory) NewOutput(string) (audio.Output, error) {
	return &nullOutput{}, nil
}

func writeTestLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	manifest := `{
		"sounds": [
			{"id": "rain", "name": "Rain", "volume": 0.5,
			 "variants": [{"id": "light", "file": "rain_light.mp3"}, {"id": "heavy", "file": "rain_heavy.mp3"}]},
			{"id": "wind", "name": "Wind", "volume": 0.3,
			 "variants": [{"id": "steady", "file": "wind.mp3"}]}
		]
	}`
	for _, f := range []string{"rain_light.mp3", "rain_heavy.mp3", "wind.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("audio"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sounds.json"), []byte(manifest), 0o644))
	return dir
}

func setupTestRouter(t *testing.T) (*gin.Engine, *player.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Fade: config.FadeConfig{
			StepRate:    200,
			In:          20 * time.Millisecond,
			Out:         20 * time.Millisecond,
			Reversal:    10 * time.Millisecond,
			TimerExpiry: 20 * time.Millisecond,
		},
		Timer: config.TimerConfig{PresetMinutes: []int{5, 10, 30}},
	}

	engine := player.NewEngine(cfg, catalog.New(writeTestLibrary(t), "sounds.json"), nullFactory{}, nil)
	require.NoError(t, engine.Start())
	t.Cleanup(engine.Stop)

	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return !s.Loading && len(s.Channels) == 2
	})

	router := gin.New()
	apiGroup := router.Group("/api")
	SetupPlayerRoutes(apiGroup, engine, cfg.Timer.PresetMinutes)
	SetupStreamRoutes(apiGroup, engine)
	return router, engine
}

func waitForEngine(t *testing.T, e *player.Engine, cond func(player.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond(e.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached, last snapshot: %+v", e.Snapshot())
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetState(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/state", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"idle"`)
	assert.Contains(t, w.Body.String(), `"id":"rain"`)
	assert.Contains(t, w.Body.String(), `"id":"wind"`)
}

func TestTogglePlayback(t *testing.T) {
	router, engine := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/playback/toggle", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	waitForEngine(t, engine, func(s player.Snapshot) bool { return s.Phase == "playing" })
}

func TestSetVolume(t *testing.T) {
	router, engine := setupTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/channels/rain/volume", `{"volume": 0.8}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return len(s.Channels) > 0 && s.Channels[0].Volume == 0.8
	})
}

func TestSetVolumeValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{name: "missing volume", path: "/api/channels/rain/volume", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "volume above range", path: "/api/channels/rain/volume", body: `{"volume": 1.5}`, wantCode: http.StatusBadRequest},
		{name: "volume below range", path: "/api/channels/rain/volume", body: `{"volume": -0.1}`, wantCode: http.StatusBadRequest},
		{name: "unknown channel", path: "/api/channels/ocean/volume", body: `{"volume": 0.5}`, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSetVariant(t *testing.T) {
	router, engine := setupTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/channels/rain/variant", `{"variant_id": "heavy"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return len(s.Channels) > 0 && s.Channels[0].VariantID == "heavy"
	})
}

func TestSetVariantValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/channels/rain/variant", `{"variant_id": "thunder"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(router, http.MethodPut, "/api/channels/ocean/variant", `{"variant_id": "light"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPut, "/api/channels/rain/variant", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetTimer(t *testing.T) {
	router, engine := setupTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/timer", `{"seconds": 600}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	waitForEngine(t, engine, func(s player.Snapshot) bool {
		return s.Timer.ModeSeconds == 600
	})
}

func TestSetTimerValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/timer", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPut, "/api/timer", `{"seconds": -10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Zero is valid: it turns the timer off.
	w = doRequest(router, http.MethodPut, "/api/timer", `{"seconds": 0}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGetTimerPresets(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/timer/presets", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"presets_minutes": [5, 10, 30]}`, w.Body.String())
}

func TestReload(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}
