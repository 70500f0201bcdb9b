package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"peerhelp/internal/core/domain"
	"peerhelp/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// EventsHandler streams help lifecycle events over SSE
type EventsHandler struct {
	notifyService *services.NotifyService
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(notifyService *services.NotifyService) *EventsHandler {
	return &EventsHandler{notifyService: notifyService}
}

// Stream opens an SSE connection for the authenticated user. Admin tokens
// additionally receive every lifecycle event on the platform.
// @Summary Event stream
// @Description Server-sent events for the caller's help lifecycle
// @Tags Events
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200
// @Router /events [get]
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return fiber.ErrUnauthorized
	}
	role, _ := c.Locals("role").(string)
	isAdmin := role == string(domain.RoleAdmin)

	clientID := fmt.Sprintf("sse-%d-%d", userID, time.Now().UnixNano())

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := &services.SSEClient{
			ID:      clientID,
			UserID:  userID,
			Channel: make(chan domain.Event, 50),
			IsAdmin: isAdmin,
		}

		h.notifyService.Hub.Register(client)
		defer h.notifyService.Hub.Unregister(clientID)

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":\"%s\"}\n\n", clientID)
		w.Flush()

		// Heartbeat ticker
		heartbeat := time.NewTicker(30 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				writeSSEEvent(w, event)
				w.Flush()

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("📡 SSE client disconnected: %s", clientID)
					return
				}
			}
		}
	})

	return nil
}

// writeSSEEvent writes a formatted SSE event to the writer
func writeSSEEvent(w *bufio.Writer, event domain.Event) {
	fmt.Fprintf(w, "event: %s\n", event.Name)

	payload, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(w, "data: {}\n\n")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
