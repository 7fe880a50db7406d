// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tallmanjamie/civquest-go/internal/application/container"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/messaging"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/middleware"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the domain validation middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandlers serves the websocket visibility stream. Each connected
// client is pinned to a session; every committed resolution pass for
// that session is pushed down the socket.
type StreamHandlers struct {
	container *container.Container
}

// NewStreamHandlers creates stream handlers
func NewStreamHandlers(container *container.Container) *StreamHandlers {
	return &StreamHandlers{container: container}
}

// GetStream handles GET /api/v1/visibility/stream - upgrades to a
// websocket, runs an initial resolution pass, and re-resolves whenever
// the client sends a message. Browsers cannot set headers on websocket
// requests, so the session token arrives as a query parameter.
func (h *StreamHandlers) GetStream(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}

	viewer := h.container.AuthService.ViewerFromToken(token, tenantCtx)
	sessionID := viewer.SessionID
	if sessionID == "" {
		// Anonymous streams key on a client-supplied id so public map
		// updates can still be pushed.
		sessionID = c.Query("sessionId")
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session token or sessionId query parameter required"})
		return
	}

	if h.container.Broadcaster.GetSessionClientCount(tenantCtx.TenantID, sessionID) >= config.MaxStreamClientsPerUser {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many stream connections for this session"})
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.container.Logger.System().Error("Websocket upgrade failed", "error", err, "tenantId", tenantCtx.TenantID)
		return
	}

	client := messaging.NewStreamClient(conn, tenantCtx.TenantID, sessionID)
	h.container.Broadcaster.Register(client)

	resolver := h.container.ResolverRegistry.GetOrCreate(tenantCtx.TenantID, sessionID)
	resolver.Update(context.Background(), tenantCtx.Maps(), viewer)

	go h.writePump(client)
	go h.readPump(client, token)
}

// readPump consumes client messages until the socket closes. Any text
// message requests a fresh resolution pass; the viewer is rebuilt each
// time so newly linked identities or revoked tokens take effect.
func (h *StreamHandlers) readPump(client *messaging.StreamClient, token string) {
	defer func() {
		h.container.Broadcaster.Unregister(client)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}

		tenantCtx, err := h.container.TenantManager.NewContextFromID(client.TenantID)
		if err != nil {
			h.container.Logger.System().Warn("Stream refresh failed to load tenant", "error", err, "tenantId", client.TenantID)
			continue
		}
		viewer := h.container.AuthService.ViewerFromToken(token, tenantCtx)
		resolver := h.container.ResolverRegistry.GetOrCreate(client.TenantID, client.SessionID)
		resolver.Update(context.Background(), tenantCtx.Maps(), viewer)
		tenantCtx.Close()
	}
}

// writePump writes broadcast payloads and keepalive pings to the socket.
func (h *StreamHandlers) writePump(client *messaging.StreamClient) {
	ticker := time.NewTicker(config.StreamPingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
