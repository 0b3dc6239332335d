package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/notify"
)

// EventsHandler streams session lifecycle events over SSE so a sound or
// toast layer can react to natural expiry without polling.
type EventsHandler struct {
	broker *notify.Broker
}

func NewEventsHandler(broker *notify.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	userID := middleware.UserID(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "streaming_unsupported", "message": "streaming not supported"},
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(sub)

	if err := sendEvent(c.Writer, flusher, notify.Event{Type: "connected", Data: gin.H{"ownerId": userID}}); err != nil {
		return
	}

	heartbeat := time.NewTicker(notify.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-sub.Done:
			return

		case event := <-sub.Events:
			if err := sendEvent(c.Writer, flusher, event); err != nil {
				log.Debug().Str("ownerId", userID).Err(err).Msg("sse send failed, closing stream")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event notify.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
