package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
	breakPolicy    service.BreakPolicy
}

type startRequest struct {
	Label           string `json:"label"`
	DurationMinutes int    `json:"durationMinutes"`
}

func NewSessionHandler(sessionService *service.SessionService, breakPolicy service.BreakPolicy) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, breakPolicy: breakPolicy}
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req startRequest
	// Both fields are optional, so a missing body means all defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	session, apiErr := h.sessionService.Start(c.Request.Context(), userID, service.StartInput{
		Label:           req.Label,
		DurationMinutes: req.DurationMinutes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (h *SessionHandler) Pause(c *gin.Context) {
	userID := middleware.UserID(c)
	session, apiErr := h.sessionService.Pause(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Resume(c *gin.Context) {
	userID := middleware.UserID(c)
	session, apiErr := h.sessionService.Resume(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Stop(c *gin.Context) {
	userID := middleware.UserID(c)
	session, apiErr := h.sessionService.Stop(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Active(c *gin.Context) {
	userID := middleware.UserID(c)
	session, apiErr := h.sessionService.Active(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) History(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 50
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.sessionService.History(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) StatsToday(c *gin.Context) {
	userID := middleware.UserID(c)
	stats, apiErr := h.sessionService.StatsToday(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *SessionHandler) NextBreak(c *gin.Context) {
	userID := middleware.UserID(c)
	next, apiErr := h.sessionService.NextBreak(c.Request.Context(), userID, h.breakPolicy)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"break": next})
}
