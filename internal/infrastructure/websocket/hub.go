// Package websocket fans marketplace events out to clients following a
// listing. The feed is read-only; all mutations go through the HTTP API.
package websocket

import (
	"sync"

	"auction-marketplace/pkg/logger"
)

type Connection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ListingID() string
}

// Hub tracks the open connections per listing.
type Hub struct {
	connections map[string]map[string]Connection // listingID -> userID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[string]Connection),
		log:         log,
	}
}

func (h *Hub) Register(conn Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	listingID := conn.ListingID()
	if h.connections[listingID] == nil {
		h.connections[listingID] = make(map[string]Connection)
	}
	h.connections[listingID][conn.UserID()] = conn

	h.log.Info("Feed connection registered", "user_id", conn.UserID(), "listing_id", listingID)
}

func (h *Hub) Unregister(conn Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	listingID := conn.ListingID()
	if conns, exists := h.connections[listingID]; exists {
		delete(conns, conn.UserID())
		if len(conns) == 0 {
			delete(h.connections, listingID)
		}
	}
}

// BroadcastToListing sends message to every connection following the
// listing. Send failures drop the connection.
func (h *Hub) BroadcastToListing(listingID string, message interface{}) {
	h.mutex.RLock()
	var stale []Connection
	for _, conn := range h.connections[listingID] {
		if err := conn.Send(message); err != nil {
			stale = append(stale, conn)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range stale {
		h.log.Warn("Dropping stale feed connection", "user_id", conn.UserID(), "listing_id", listingID)
		conn.Close()
		h.Unregister(conn)
	}
}

// CloseListing closes and removes every connection following the listing.
func (h *Hub) CloseListing(listingID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, conn := range h.connections[listingID] {
		conn.Close()
	}
	delete(h.connections, listingID)
}
