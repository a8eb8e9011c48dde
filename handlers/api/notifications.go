package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"mailagent/utils"
)

// Notification is a real-time processing event pushed to subscribers.
type Notification struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"` // "email_processed"
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Time    time.Time              `json:"time"`
}

// NotificationHandler fans processing events out to SSE and WebSocket
// subscribers.
type NotificationHandler struct {
	subscribers map[string]chan Notification
	mu          sync.RWMutex
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		subscribers: make(map[string]chan Notification),
	}
}

// subscribe registers a new subscriber channel.
func (h *NotificationHandler) subscribe() (string, chan Notification) {
	subscriberID := uuid.New().String()
	messageChan := make(chan Notification, 10)

	h.mu.Lock()
	h.subscribers[subscriberID] = messageChan
	h.mu.Unlock()

	return subscriberID, messageChan
}

// unsubscribe removes a subscriber and closes its channel.
func (h *NotificationHandler) unsubscribe(subscriberID string) {
	h.mu.Lock()
	if ch, ok := h.subscribers[subscriberID]; ok {
		delete(h.subscribers, subscriberID)
		close(ch)
	}
	h.mu.Unlock()
}

// HandleSSE streams notifications over Server-Sent Events.
func (h *NotificationHandler) HandleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	subscriberID, messageChan := h.subscribe()
	utils.Log.Info("SSE subscriber connected: %s", subscriberID)

	ctx := c.Context()
	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			h.unsubscribe(subscriberID)
			utils.Log.Info("SSE subscriber disconnected: %s", subscriberID)
		}()

		// Keep-alive ticker
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-messageChan:
				if !ok {
					return
				}
				data, _ := json.Marshal(notification)
				w.WriteString("data: " + string(data) + "\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}))

	return nil
}

// HandleWebSocket streams notifications over a WebSocket connection.
func (h *NotificationHandler) HandleWebSocket(c *websocket.Conn) {
	subscriberID, messageChan := h.subscribe()

	defer func() {
		h.unsubscribe(subscriberID)
		c.Close()
		utils.Log.Info("WebSocket subscriber disconnected: %s", subscriberID)
	}()

	utils.Log.Info("WebSocket subscriber connected: %s", subscriberID)

	for notification := range messageChan {
		if err := c.WriteJSON(notification); err != nil {
			utils.Log.Error("Failed to send WebSocket notification: %v", err)
			break
		}
	}
}

// Broadcast sends a notification to all subscribers. Subscribers with
// a full channel are skipped rather than blocked on.
func (h *NotificationHandler) Broadcast(notification Notification) {
	notification.ID = uuid.New().String()
	notification.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID, ch := range h.subscribers {
		select {
		case ch <- notification:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", subscriberID)
		}
	}
}
