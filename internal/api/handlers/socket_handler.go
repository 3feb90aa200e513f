// Package handlers contains the handlers for the API
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
)

// Packet is the message envelope on the duplex channel. Every message
// in either direction carries a type.
type Packet struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
	Page  *int            `json:"page,omitempty"`
}

// searchResultsPacket is the reply to a search request. Query echoes
// the request's value verbatim so clients can discard stale replies
// after changing their query.
type searchResultsPacket struct {
	Type  string             `json:"type"`
	Value []models.FileModel `json:"value"`
	Query string             `json:"query"`
}

// socketClient is one bound connection. The identity is resolved once
// at the handshake and never re-checked; writes are serialized by mu
// because search handlers may complete out of order.
type socketClient struct {
	id     string
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (sc *socketClient) send(v interface{}) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.conn.WriteJSON(v)
}

// SocketHandler serves the duplex search channel
type SocketHandler struct {
	search   *service.SearchService
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*socketClient
}

// NewSocketHandler creates a new handler for the websocket API
func NewSocketHandler(search *service.SearchService) *SocketHandler {
	return &SocketHandler{
		search: search,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*socketClient),
	}
}

// Serve upgrades the request and pumps messages until the peer goes
// away. The session is checked once here; a session expiring
// mid-connection does not terminate the connection.
func (h *SocketHandler) Serve(c echo.Context) error {
	userID := middleware.RequesterID(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &socketClient{
		id:     uuid.NewString(),
		conn:   conn,
		userID: userID,
	}
	h.addClient(client)
	defer h.removeClient(client.id)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		h.handleMessage(client, data)
	}
}

// handleMessage dispatches one inbound packet. Anything malformed or
// of unknown type is dropped without a reply; a bad message must never
// take the connection down.
func (h *SocketHandler) handleMessage(client *socketClient, data []byte) {
	var packet Packet
	if err := json.Unmarshal(data, &packet); err != nil {
		return
	}

	switch packet.Type {
	case "search":
		h.handleSearch(client, packet)
	default:
		zaplogger.Debug("Ignoring unknown socket packet", zaplogger.Fields{
			"client": client.id,
			"type":   packet.Type,
		})
	}
}

func (h *SocketHandler) handleSearch(client *socketClient, packet Packet) {
	var query string
	if err := json.Unmarshal(packet.Value, &query); err != nil {
		return
	}

	page := 0
	if packet.Page != nil && *packet.Page > 0 {
		page = *packet.Page
	}

	results, err := h.search.Search(client.userID, query, page)
	if err != nil {
		zaplogger.Error("Socket search failed", zaplogger.Fields{
			"client": client.id,
			"error":  err.Error(),
		})
		return
	}

	reply := searchResultsPacket{
		Type:  "searchResults",
		Value: results,
		Query: query,
	}
	if err := client.send(reply); err != nil {
		zaplogger.Debug("Failed to write to socket client", zaplogger.Fields{
			"client": client.id,
			"error":  err.Error(),
		})
	}
}

func (h *SocketHandler) addClient(client *socketClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
}

func (h *SocketHandler) removeClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientID)
}

// ClientCount reports the number of live connections
func (h *SocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
