package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rusel95/whitenoise/internal/player"
)

// Request/Response DTOs

// ErrorResponse represents an API error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SetVolumeRequest represents a request to change one channel's volume
type SetVolumeRequest struct {
	Volume *float64 `json:"volume" binding:"required,gte=0,lte=1"`
}

// SetVariantRequest represents a request to switch a channel's sound variant
type SetVariantRequest struct {
	VariantID string `json:"variant_id" binding:"required"`
}

// SetTimerRequest represents a request to select a sleep timer mode.
// Zero seconds turns the timer off.
type SetTimerRequest struct {
	Seconds *int `json:"seconds" binding:"required,gte=0"`
}

// TimerPresetsResponse lists the selectable sleep timer durations
type TimerPresetsResponse struct {
	PresetsMinutes []int `json:"presets_minutes"`
}

// PlayerHandler handles playback control API requests.
//
// Every mutation goes through engine.Dispatch, the same path the websocket
// and any future surface use. Handlers respond with the snapshot current at
// the time of the request; the authoritative post-transition state arrives
// over the websocket stream.
type PlayerHandler struct {
	engine         *player.Engine
	presetsMinutes []int
}

// NewPlayerHandler creates a new playback control handler
func NewPlayerHandler(engine *player.Engine, presetsMinutes []int) *PlayerHandler {
	return &PlayerHandler{engine: engine, presetsMinutes: presetsMinutes}
}

// GetState handles GET /api/state
func (h *PlayerHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// TogglePlayback handles POST /api/playback/toggle
func (h *PlayerHandler) TogglePlayback(c *gin.Context) {
	h.engine.Dispatch(player.TappedPlayPause{})
	c.JSON(http.StatusAccepted, h.engine.Snapshot())
}

// SetVolume handles PUT /api/channels/:id/volume
func (h *PlayerHandler) SetVolume(c *gin.Context) {
	channelID := c.Param("id")
	if !h.channelExists(channelID) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
		return
	}

	var req SetVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.engine.Dispatch(player.VolumeChanged{ChannelID: channelID, Volume: *req.Volume})
	c.JSON(http.StatusAccepted, h.engine.Snapshot())
}

// SetVariant handles PUT /api/channels/:id/variant
func (h *PlayerHandler) SetVariant(c *gin.Context) {
	channelID := c.Param("id")
	ch, ok := h.findChannel(channelID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
		return
	}

	var req SetVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if !hasVariant(ch, req.VariantID) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "unknown variant for channel",
			Details: req.VariantID,
		})
		return
	}

	h.engine.Dispatch(player.VariantSelected{ChannelID: channelID, VariantID: req.VariantID})
	c.JSON(http.StatusAccepted, h.engine.Snapshot())
}

// SetTimer handles PUT /api/timer
func (h *PlayerHandler) SetTimer(c *gin.Context) {
	var req SetTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.engine.Dispatch(player.TimerSelected{Seconds: *req.Seconds})
	c.JSON(http.StatusAccepted, h.engine.Snapshot())
}

// GetTimerPresets handles GET /api/timer/presets
func (h *PlayerHandler) GetTimerPresets(c *gin.Context) {
	c.JSON(http.StatusOK, TimerPresetsResponse{PresetsMinutes: h.presetsMinutes})
}

// Reload handles POST /api/reload
func (h *PlayerHandler) Reload(c *gin.Context) {
	h.engine.Dispatch(player.ReloadRequested{})
	c.JSON(http.StatusAccepted, h.engine.Snapshot())
}

func (h *PlayerHandler) findChannel(id string) (player.ChannelSnapshot, bool) {
	for _, ch := range h.engine.Snapshot().Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return player.ChannelSnapshot{}, false
}

func (h *PlayerHandler) channelExists(id string) bool {
	_, ok := h.findChannel(id)
	return ok
}

func hasVariant(ch player.ChannelSnapshot, variantID string) bool {
	for _, v := range ch.VariantIDs {
		if v == variantID {
			return true
		}
	}
	return false
}

// SetupPlayerRoutes registers playback control routes
func SetupPlayerRoutes(apiGroup *gin.RouterGroup, engine *player.Engine, presetsMinutes []int) {
	handler := NewPlayerHandler(engine, presetsMinutes)

	apiGroup.GET("/state", handler.GetState)
	apiGroup.POST("/playback/toggle", handler.TogglePlayback)
	apiGroup.PUT("/channels/:id/volume", handler.SetVolume)
	apiGroup.PUT("/channels/:id/variant", handler.SetVariant)
	apiGroup.PUT("/timer", handler.SetTimer)
	apiGroup.GET("/timer/presets", handler.GetTimerPresets)
	apiGroup.POST("/reload", handler.Reload)
}
