package services

import (
	"log"
	"sync"

	"taskmate/internal/models"
)

// ConnectionManager manages all active WebSocket connections
type ConnectionManager struct {
	connections map[string]*models.UserConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.UserConnection),
	}
}

// Register adds a new connection
func (cm *ConnectionManager) Register(conn *models.UserConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ Connection registered: %s (Total: %d)", conn.ConnID, len(cm.connections))
}

// Unregister removes a connection. Safe to call more than once.
func (cm *ConnectionManager) Unregister(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	conn, exists := cm.connections[connID]
	if !exists {
		return
	}
	conn.MarkClosed()
	close(conn.WriteChan)
	close(conn.StopChan)
	delete(cm.connections, connID)
	log.Printf("❌ Connection unregistered: %s (Total: %d)", connID, len(cm.connections))
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.UserConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// GetAll returns all active connections
func (cm *ConnectionManager) GetAll() []*models.UserConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	conns := make([]*models.UserConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	return conns
}

// SendTo delivers a message to one session. A dead or backed-up session is
// unregistered; the failure is logged, never returned as an error.
func (cm *ConnectionManager) SendTo(connID string, msg models.ServerMessage) bool {
	conn, exists := cm.Get(connID)
	if !exists {
		return false
	}
	if !conn.SafeSend(msg) {
		log.Printf("⚠️  Dropping dead connection %s after failed send", connID)
		cm.Unregister(connID)
		return false
	}
	return true
}

// Broadcast delivers a message to every session. Failures are isolated per
// session: dead connections are dropped, the rest still get the message.
func (cm *ConnectionManager) Broadcast(msg models.ServerMessage) int {
	delivered := 0
	for _, conn := range cm.GetAll() {
		if conn.SafeSend(msg) {
			delivered++
			continue
		}
		log.Printf("⚠️  Dropping dead connection %s during broadcast", conn.ConnID)
		cm.Unregister(conn.ConnID)
	}
	return delivered
}
