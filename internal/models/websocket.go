package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Envelope types emitted on the chat socket
const (
	MsgInitialTasks  = "initial_tasks"
	MsgAgentResponse = "agent_response"
	MsgTaskUpdate    = "task_update"
	MsgError         = "error"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Message string `json:"message"`
}

// ServerMessage represents a message sent to the client. Exactly four types
// go out: "initial_tasks", "agent_response", "task_update" and "error".
type ServerMessage struct {
	Type    string  `json:"type"`
	Message string  `json:"message,omitempty"`
	Tasks   *[]Task `json:"tasks,omitempty"` // pointer so an empty snapshot serializes as [] instead of being dropped
}

// SnapshotMessage builds a tasks-bearing envelope ("initial_tasks" or "task_update")
func SnapshotMessage(msgType string, tasks []Task) ServerMessage {
	if tasks == nil {
		tasks = []Task{}
	}
	return ServerMessage{Type: msgType, Tasks: &tasks}
}

// TextMessage builds a text-bearing envelope ("agent_response" or "error")
func TextMessage(msgType, text string) ServerMessage {
	return ServerMessage{Type: msgType, Message: text}
}

// UserConnection represents a single WebSocket connection
type UserConnection struct {
	ConnID    string
	ClientIP  string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan ServerMessage
	StopChan  chan bool
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend queues a message for the writer goroutine without blocking.
// Returns false if the connection is closed or its buffer is full (a client
// that stopped reading), so the caller can drop the session.
func (uc *UserConnection) SafeSend(msg ServerMessage) (ok bool) {
	uc.Mutex.Lock()
	if uc.closed {
		uc.Mutex.Unlock()
		return false
	}
	uc.Mutex.Unlock()

	// Use defer/recover to handle panic from send on closed channel
	defer func() {
		if r := recover(); r != nil {
			uc.Mutex.Lock()
			uc.closed = true
			uc.Mutex.Unlock()
			ok = false
		}
	}()

	select {
	case uc.WriteChan <- msg:
		return true
	default:
		return false
	}
}

// MarkClosed marks the connection as closed
func (uc *UserConnection) MarkClosed() {
	uc.Mutex.Lock()
	uc.closed = true
	uc.Mutex.Unlock()
}

// IsClosed returns true if the connection has been marked as closed
func (uc *UserConnection) IsClosed() bool {
	uc.Mutex.Lock()
	defer uc.Mutex.Unlock()
	return uc.closed
}
