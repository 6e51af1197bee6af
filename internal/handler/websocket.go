package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 5 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Time allowed to read the next pong message from the peer.
	// Must be greater than pingPeriod.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxStreamMessageSize = 4 << 20

	// Budget for one dispatch spawned off the stream.
	streamDispatchTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		// In production, validate against allowed origins
		return true
	},
}

// StreamRequest is one dispatch request on the stream. The request_id
// is echoed back so the caller can correlate the response; responses
// arrive in completion order, not submission order.
type StreamRequest struct {
	RequestID string `json:"request_id"`
	dispatcher.SendRequest
}

// StreamResponse is the outcome of one streamed dispatch
type StreamResponse struct {
	RequestID      string        `json:"request_id,omitempty"`
	Success        bool          `json:"success"`
	NotificationID *uuid.UUID    `json:"notification_id,omitempty"`
	Status         domain.Status `json:"status,omitempty"`
	Error          *Error        `json:"error,omitempty"`
}

// StreamHandler handles the bidirectional dispatch stream
type StreamHandler struct {
	sender Sender
	logger *slog.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(sender Sender, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		sender: sender,
		logger: logger,
	}
}

// streamClient is one connected stream peer
type streamClient struct {
	conn   *websocket.Conn
	sender Sender
	logger *slog.Logger
	id     string

	send chan []byte
	done chan struct{}
	wg   sync.WaitGroup
}

// SendNotificationStream upgrades the connection and serves the dispatch stream
// @Summary Notification dispatch stream
// @Description Bidirectional WebSocket stream. Each inbound message is a send request with a request_id; each is dispatched on its own goroutine and answered with a correlated response.
// @Tags stream
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/notifications [get]
func (h *StreamHandler) SendNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	client := &streamClient{
		conn:   conn,
		sender: h.sender,
		logger: h.logger,
		id:     uuid.New().String(),
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	h.logger.Info("stream client connected", "client_id", client.id)

	go client.writePump()
	go client.readPump()
}

// readPump reads dispatch requests and spawns one goroutine per request.
// When the read loop ends it waits for in-flight dispatches before the
// write side is released, so no accepted request loses its response.
func (c *streamClient) readPump() {
	defer func() {
		c.wg.Wait()
		close(c.send)
		c.logger.Info("stream client disconnected", "client_id", c.id)
	}()

	c.conn.SetReadLimit(maxStreamMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("stream read error", "client_id", c.id, "error", err)
			}
			break
		}

		var req StreamRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(StreamResponse{
				Success: false,
				Error: &Error{
					Code:    string(domain.CodeInvalidArgument),
					Message: "invalid JSON: " + err.Error(),
				},
			})
			continue
		}

		c.wg.Add(1)
		go c.dispatch(req)
	}
}

// dispatch runs one send request and replies with its outcome
func (c *streamClient) dispatch(req StreamRequest) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), streamDispatchTimeout)
	defer cancel()

	notification, err := c.sender.Dispatch(ctx, req.SendRequest)
	if err != nil {
		c.reply(StreamResponse{
			RequestID: req.RequestID,
			Success:   false,
			Error:     streamError(err),
		})
		return
	}

	c.reply(StreamResponse{
		RequestID:      req.RequestID,
		Success:        true,
		NotificationID: &notification.ID,
		Status:         notification.Status,
	})
}

// reply queues one response for the write pump
func (c *streamClient) reply(resp StreamResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("failed to marshal stream response", "client_id", c.id, "error", err)
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
	}
}

// writePump owns all writes on the connection: queued responses and the
// periodic ping. It exits when the send channel is drained and closed,
// or on a write failure.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued responses to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// streamError maps a dispatch error onto the stream error payload
func streamError(err error) *Error {
	var validationErr domain.ValidationError
	if errors.As(err, &validationErr) {
		return &Error{
			Code:    string(domain.CodeInvalidArgument),
			Message: validationErr.Message,
			Details: map[string]string{"field": validationErr.Field},
		}
	}

	return &Error{
		Code:    "INTERNAL_ERROR",
		Message: "Dispatch failed",
	}
}
