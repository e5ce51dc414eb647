package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"taskmate/internal/models"
	"taskmate/internal/services"
)

// Read deadline sized for long tool-calling turns (model round trips can
// take minutes) with pings keeping the connection alive in between
const (
	readDeadline = 360 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocketHandler handles the chat WebSocket endpoint
type WebSocketHandler struct {
	connManager    *services.ConnectionManager
	chatService    *services.ChatService
	broadcaster    *services.Broadcaster
	messagesPerMin int
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager, chatService *services.ChatService, broadcaster *services.Broadcaster, messagesPerMin int) *WebSocketHandler {
	if messagesPerMin <= 0 {
		messagesPerMin = 30
	}
	return &WebSocketHandler{
		connManager:    connManager,
		chatService:    chatService,
		broadcaster:    broadcaster,
		messagesPerMin: messagesPerMin,
	}
}

// Handle handles a new WebSocket connection
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	clientIP, _ := c.Locals("client_ip").(string)
	if clientIP == "" {
		clientIP = c.RemoteAddr().String()
	}

	// Create a done channel to signal goroutines to stop
	done := make(chan struct{})

	userConn := &models.UserConnection{
		ConnID:    connID,
		ClientIP:  clientIP,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 100),
		StopChan:  make(chan bool, 1),
	}

	h.connManager.Register(userConn)
	if m := services.GetMetrics(); m != nil {
		m.RecordWebSocketConnect()
	}

	defer func() {
		close(done) // Signal all goroutines to stop
		h.connManager.Unregister(connID)
		h.chatService.ForgetSession(connID)
		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketDisconnect()
		}
	}()

	// Set read deadline to 6 minutes (allows for long tool turns + buffer)
	c.SetReadDeadline(time.Now().Add(readDeadline))

	c.SetPongHandler(func(appData string) error {
		// Reset read deadline on pong received
		c.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	// Start ping goroutine to keep connection alive
	go h.pingLoop(userConn, done)

	// Start write goroutine
	go h.writeLoop(userConn)

	// Every session starts with a full task snapshot
	if err := h.broadcaster.SendInitialTasks(context.Background(), connID); err != nil {
		log.Printf("⚠️  Failed to send initial tasks to %s: %v", connID, err)
	}

	// Read loop
	h.readLoop(userConn)
}

// pingLoop sends periodic pings to keep the WebSocket connection alive
// during long tool-calling turns
func (h *WebSocketHandler) pingLoop(userConn *models.UserConnection, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-userConn.StopChan:
			// Manager dropped the session (dead buffer), stop pinging
			return
		case <-ticker.C:
			userConn.Mutex.Lock()
			if err := userConn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("⚠️  Ping failed for %s: %v", userConn.ConnID, err)
				userConn.Mutex.Unlock()
				return
			}
			userConn.Mutex.Unlock()
		}
	}
}

// writeLoop drains WriteChan onto the socket. It exits when the channel is
// closed by Unregister or when a write fails.
func (h *WebSocketHandler) writeLoop(userConn *models.UserConnection) {
	for msg := range userConn.WriteChan {
		if err := userConn.Conn.WriteJSON(msg); err != nil {
			log.Printf("❌ WebSocket write error for %s: %v", userConn.ConnID, err)
			return
		}
		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketMessage(msg.Type, "outbound")
		}
	}
}

// readLoop handles incoming messages from the client
func (h *WebSocketHandler) readLoop(userConn *models.UserConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in readLoop: %v", r)
		}
	}()

	// Per-session inbound throttle with a small burst allowance
	limiter := rate.NewLimiter(rate.Limit(float64(h.messagesPerMin))/60, 5)

	for {
		_, msg, err := userConn.Conn.ReadMessage()
		if err != nil {
			log.Printf("👋 WebSocket closed for %s: %v", userConn.ConnID, err)
			break
		}

		// Reset read deadline after successful read
		userConn.Conn.SetReadDeadline(time.Now().Add(readDeadline))

		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketMessage("message", "inbound")
		}

		var clientMsg models.ClientMessage
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			log.Printf("⚠️  Invalid message format from %s: %v", userConn.ConnID, err)
			userConn.SafeSend(models.TextMessage(models.MsgError, "Invalid message format"))
			continue
		}

		text := strings.TrimSpace(clientMsg.Message)
		if text == "" {
			userConn.SafeSend(models.TextMessage(models.MsgError, "Message cannot be empty"))
			continue
		}

		if !limiter.Allow() {
			log.Printf("🚫 [RATE-LIMIT] Message throttled for %s", userConn.ConnID)
			userConn.SafeSend(models.TextMessage(models.MsgError, "You're sending messages too quickly. Please slow down."))
			continue
		}

		h.handleChatMessage(userConn, text)
	}
}

// handleChatMessage runs one full turn for a client message. Turns run inline
// in the read loop, so messages arriving mid-turn queue in the socket buffer
// and are processed in order once the current turn finishes.
func (h *WebSocketHandler) handleChatMessage(userConn *models.UserConnection, text string) {
	log.Printf("💬 Chat message from %s (length: %d chars)", userConn.ConnID, len(text))

	// Deliberately not tied to the socket: a turn keeps running if the
	// client disconnects, so mutations still land and broadcast
	outcome, err := h.chatService.RunTurn(context.Background(), userConn.ConnID, text)
	if err != nil {
		log.Printf("❌ Turn failed for %s: %v", userConn.ConnID, err)
		h.broadcaster.SendError(userConn.ConnID, "The assistant is temporarily unavailable. Please try again.")
		return
	}

	h.broadcaster.AfterTurn(context.Background(), userConn.ConnID, outcome)
}
