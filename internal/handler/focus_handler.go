package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

type FocusHandler struct {
	focusService *service.FocusService
}

type breakOverrideRequest struct {
	Minutes int `json:"minutes"`
}

type updateSettingsRequest struct {
	WorkMinutes             int `json:"workMinutes"`
	ShortBreakMinutes       int `json:"shortBreakMinutes"`
	LongBreakMinutes        int `json:"longBreakMinutes"`
	LongBreakIntervalCycles int `json:"longBreakIntervalCycles"`
	DailyGoalMinutes        int `json:"dailyGoalMinutes"`
}

func NewFocusHandler(focusService *service.FocusService) *FocusHandler {
	return &FocusHandler{focusService: focusService}
}

func (h *FocusHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return
	}

	state, apiErr := h.focusService.State(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Command returns a handler for one engine operation. Invalid transitions
// are no-ops in the engine, so the response is always the fresh snapshot.
func (h *FocusHandler) Command(command string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		state, apiErr := h.focusService.Command(c.Request.Context(), userID, command)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

func (h *FocusHandler) SetBreakOverride(c *gin.Context) {
	var req breakOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.focusService.SetBreakOverride(c.Request.Context(), userID, req.Minutes)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *FocusHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	prefs, apiErr := h.focusService.UpdateSettings(c.Request.Context(), userID, service.UpdateSettingsInput{
		WorkMinutes:             req.WorkMinutes,
		ShortBreakMinutes:       req.ShortBreakMinutes,
		LongBreakMinutes:        req.LongBreakMinutes,
		LongBreakIntervalCycles: req.LongBreakIntervalCycles,
		DailyGoalMinutes:        req.DailyGoalMinutes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (h *FocusHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return
	}

	day := c.Query("date")
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	records, apiErr := h.focusService.History(c.Request.Context(), userID, day)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

func (h *FocusHandler) GetToday(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return
	}

	today, apiErr := h.focusService.Today(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"today": today})
}

// Events streams engine events over SSE until the client disconnects.
// Disconnecting unsubscribes the observer.
func (h *FocusHandler) Events(c *gin.Context) {
	userID := middleware.UserID(c)
	handle, events, apiErr := h.focusService.Subscribe(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	defer h.focusService.Unsubscribe(userID, handle)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
