package websocket

import (
	"net/http"
	"sync"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades feed requests and keeps connections registered until
// the client goes away.
type Handler struct {
	listingRepo domain.ListingRepository
	hub         *Hub
	log         logger.Logger
}

func NewHandler(listingRepo domain.ListingRepository, hub *Hub, log logger.Logger) *Handler {
	return &Handler{
		listingRepo: listingRepo,
		hub:         hub,
		log:         log,
	}
}

// Router returns the feed routes. The feed is served by its own router,
// separate from the REST API.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws/listings/{listingID}", h.HandleConnection)
	return router
}

// HandleConnection handles GET /ws/listings/{listingID}?user_id=...
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	listingID := vars["listingID"]

	if _, err := h.listingRepo.GetListing(r.Context(), listingID); err != nil {
		http.Error(w, "listing not found", http.StatusNotFound)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	feedConn := newFeedConnection(conn, userID, listingID)
	h.hub.Register(feedConn)

	go h.readLoop(feedConn)
}

// readLoop drains client frames so pings and close messages are processed;
// the feed itself is one-way.
func (h *Handler) readLoop(conn *feedConnection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type feedConnection struct {
	conn      *websocket.Conn
	userID    string
	listingID string
	writeMu   sync.Mutex
}

func newFeedConnection(conn *websocket.Conn, userID, listingID string) *feedConnection {
	return &feedConnection{
		conn:      conn,
		userID:    userID,
		listingID: listingID,
	}
}

func (c *feedConnection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *feedConnection) Close() error {
	return c.conn.Close()
}

func (c *feedConnection) UserID() string {
	return c.userID
}

func (c *feedConnection) ListingID() string {
	return c.listingID
}
