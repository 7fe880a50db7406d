package messaging

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/metrics"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

// StreamClient represents a single connected visibility stream client.
type StreamClient struct {
	Conn      *websocket.Conn
	TenantID  string
	SessionID string
	Send      chan []byte
}

// NewStreamClient wraps a websocket connection for the broadcaster.
func NewStreamClient(conn *websocket.Conn, tenantID, sessionID string) *StreamClient {
	return &StreamClient{
		Conn:      conn,
		TenantID:  tenantID,
		SessionID: sessionID,
		Send:      make(chan []byte, config.StreamSendBuffer),
	}
}

// resolutionEnvelope is the wire shape pushed to stream clients.
type resolutionEnvelope struct {
	Event         string                 `json:"event"`
	Accessible    []visibility.MapConfig `json:"accessible"`
	Public        []visibility.MapConfig `json:"public"`
	Restricted    []visibility.MapConfig `json:"restricted"`
	LoginRequired bool                   `json:"loginRequired"`
	HasCompleted  bool                   `json:"hasCompleted"`
}

// VisibilityBroadcaster manages all connected stream clients and pushes
// each committed resolution result to the session that owns it.
type VisibilityBroadcaster struct {
	tenantClients map[string]map[*StreamClient]bool
	register      chan *StreamClient
	unregister    chan *StreamClient
	logger        *logging.ChanneledLogger
	mu            sync.RWMutex
}

// NewVisibilityBroadcaster creates a new broadcaster instance.
func NewVisibilityBroadcaster(logger *logging.ChanneledLogger) *VisibilityBroadcaster {
	return &VisibilityBroadcaster{
		tenantClients: make(map[string]map[*StreamClient]bool),
		register:      make(chan *StreamClient),
		unregister:    make(chan *StreamClient),
		logger:        logger,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *VisibilityBroadcaster) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*StreamClient]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			b.mu.Unlock()
			metrics.StreamClientsGauge.Inc()
			b.logger.Stream().Debug("Stream client registered", "tenantId", client.TenantID, "sessionId", client.SessionID)

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					metrics.StreamClientsGauge.Dec()
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			b.mu.Unlock()
			b.logger.Stream().Debug("Stream client unregistered", "tenantId", client.TenantID, "sessionId", client.SessionID)
		}
	}
}

// Register queues a client for registration.
func (b *VisibilityBroadcaster) Register(client *StreamClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *VisibilityBroadcaster) Unregister(client *StreamClient) {
	b.unregister <- client
}

// PublishResolution pushes a committed resolution result to every
// stream client belonging to the given tenant session. Slow clients
// have the message dropped rather than blocking the resolver.
func (b *VisibilityBroadcaster) PublishResolution(tenantID, sessionID string, result *visibility.ResolutionResult) {
	envelope := resolutionEnvelope{
		Event:         "visibility_resolved",
		Accessible:    result.Accessible,
		Public:        result.Public,
		Restricted:    result.Restricted,
		LoginRequired: result.LoginRequired,
		HasCompleted:  result.HasCompleted,
	}

	message, err := json.Marshal(envelope)
	if err != nil {
		b.logger.Stream().Error("Failed to marshal resolution envelope", "error", err.Error(), "tenantId", tenantID)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	clients, ok := b.tenantClients[tenantID]
	if !ok {
		return
	}

	for client := range clients {
		if client.SessionID != sessionID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			b.logger.Stream().Warn("Stream channel full, message dropped", "tenantId", tenantID, "sessionId", sessionID)
		}
	}
}

// GetSessionClientCount returns the connection count for a specific tenant session.
func (b *VisibilityBroadcaster) GetSessionClientCount(tenantID, sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for client := range b.tenantClients[tenantID] {
		if client.SessionID == sessionID {
			count++
		}
	}
	return count
}
