package services

import (
	"context"
	"sync"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/messaging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/metrics"
)

// Resolver re-runs the visibility service whenever a session's inputs
// change and guards against a stale, slower pass overwriting the result
// of a newer, faster one. Each Update tags its pass with a sequence
// number taken from the current snapshot; only the pass whose number is
// still current at completion time commits.
type Resolver struct {
	svc         *VisibilityService
	broadcaster messaging.Broadcaster
	tenantID    string
	sessionID   string

	mu      sync.Mutex
	seq     uint64
	current *visibility.ResolutionResult
	commits chan *visibility.ResolutionResult
}

// NewResolver creates a resolver for one tenant session. The
// broadcaster may be nil when no stream client will ever subscribe.
func NewResolver(svc *VisibilityService, broadcaster messaging.Broadcaster, tenantID, sessionID string) *Resolver {
	return &Resolver{
		svc:         svc,
		broadcaster: broadcaster,
		tenantID:    tenantID,
		sessionID:   sessionID,
		commits:     make(chan *visibility.ResolutionResult, 8),
	}
}

// Update starts a resolution pass for a new input snapshot. The pass
// runs asynchronously; superseded passes are left to finish and then
// discarded rather than actively aborted.
func (r *Resolver) Update(ctx context.Context, maps []visibility.MapConfig, viewer visibility.Viewer) {
	r.mu.Lock()
	r.seq++
	snapshot := r.seq
	r.mu.Unlock()

	go func() {
		result := r.svc.Resolve(ctx, r.tenantID, maps, viewer)

		r.mu.Lock()
		if snapshot != r.seq {
			r.mu.Unlock()
			metrics.ResolutionDiscardedTotal.Inc()
			r.svc.logger.Visibility().Debug("Discarding superseded resolution pass",
				"tenantId", r.tenantID, "sessionId", r.sessionID, "passSeq", snapshot, "currentSeq", r.seq)
			return
		}
		r.current = result
		r.mu.Unlock()

		select {
		case r.commits <- result:
		default:
		}

		if r.broadcaster != nil {
			r.broadcaster.PublishResolution(r.tenantID, r.sessionID, result)
		}
	}()
}

// Current returns the last committed result, or nil if no pass has
// committed yet.
func (r *Resolver) Current() *visibility.ResolutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Commits exposes committed results as they land, for consumers that
// want to react without polling. Superseded passes never appear here.
func (r *Resolver) Commits() <-chan *visibility.ResolutionResult {
	return r.commits
}

// ResolverRegistry hands out one resolver per tenant session so that
// map reloads and auth changes funnel through the same staleness guard.
type ResolverRegistry struct {
	svc         *VisibilityService
	broadcaster messaging.Broadcaster

	mu        sync.Mutex
	resolvers map[string]*Resolver
}

// NewResolverRegistry creates an empty registry.
func NewResolverRegistry(svc *VisibilityService, broadcaster messaging.Broadcaster) *ResolverRegistry {
	return &ResolverRegistry{
		svc:         svc,
		broadcaster: broadcaster,
		resolvers:   make(map[string]*Resolver),
	}
}

// GetOrCreate returns the resolver for a tenant session, creating it
// on first use.
func (rr *ResolverRegistry) GetOrCreate(tenantID, sessionID string) *Resolver {
	key := tenantID + ":" + sessionID

	rr.mu.Lock()
	defer rr.mu.Unlock()

	if resolver, ok := rr.resolvers[key]; ok {
		return resolver
	}
	resolver := NewResolver(rr.svc, rr.broadcaster, tenantID, sessionID)
	rr.resolvers[key] = resolver
	return resolver
}

// Remove drops the resolver for a tenant session, typically when the
// last stream client disconnects.
func (rr *ResolverRegistry) Remove(tenantID, sessionID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	delete(rr.resolvers, tenantID+":"+sessionID)
}
