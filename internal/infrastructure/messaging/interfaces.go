// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/tallmanjamie/civquest-go/internal/domain/visibility"

// Broadcaster defines the interface for managing visibility stream
// clients and pushing committed resolution results to them.
type Broadcaster interface {
	Register(client *StreamClient)
	Unregister(client *StreamClient)
	PublishResolution(tenantID, sessionID string, result *visibility.ResolutionResult)
	GetSessionClientCount(tenantID, sessionID string) int
}
