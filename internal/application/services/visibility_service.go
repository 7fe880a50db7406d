// Package services contains the application services that orchestrate
// domain logic and infrastructure.
package services

import (
	"context"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/metrics"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
)

// SharingProber reports, per item identifier, whether the upstream
// platform considers the resource publicly shared.
type SharingProber interface {
	CheckMultipleSharing(ctx context.Context, tenantID string, itemIDs []string) map[string]visibility.SharingResult
}

// DelegatedProber reports which of the given non-public items the
// holder of a delegated token may access.
type DelegatedProber interface {
	CheckDelegatedAccess(ctx context.Context, itemIDs []string, token string) map[string]bool
}

// VisibilityService sequences the probers and the classifier to decide
// which of a tenant's maps a viewer may see. It is stateless; every
// call operates on the snapshot of maps and viewer it was handed.
type VisibilityService struct {
	sharing     SharingProber
	delegated   DelegatedProber
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewVisibilityService creates a new visibility service.
func NewVisibilityService(sharing SharingProber, delegated DelegatedProber, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *VisibilityService {
	return &VisibilityService{
		sharing:     sharing,
		delegated:   delegated,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Resolve runs one full resolution pass. It never returns an error:
// probe failures degrade to non-public results and every input
// combination has a defined output.
func (s *VisibilityService) Resolve(ctx context.Context, tenantID string, maps []visibility.MapConfig, viewer visibility.Viewer) *visibility.ResolutionResult {
	marker := s.perfTracker.StartOperationWithContext(ctx, "resolve_visibility", tenantID)
	defer s.perfTracker.CompleteOperation(marker)

	start := time.Now()
	defer func() {
		metrics.ResolutionPassesTotal.Inc()
		metrics.ResolutionDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if len(maps) == 0 {
		s.logger.Visibility().Debug("Empty map list, resolving immediately", "tenantId", tenantID)
		marker.AddMetadata("mapCount", 0)
		return &visibility.ResolutionResult{
			Accessible:    []visibility.MapConfig{},
			Public:        []visibility.MapConfig{},
			Restricted:    []visibility.MapConfig{},
			LoginRequired: true,
			HasCompleted:  true,
		}
	}

	itemIDs := make([]string, 0, len(maps))
	for _, m := range maps {
		if m.ArcGISItemID != "" {
			itemIDs = append(itemIDs, m.ArcGISItemID)
		}
	}

	sharing := s.sharing.CheckMultipleSharing(ctx, tenantID, itemIDs)
	public, configRestricted, platformRestricted := visibility.Partition(maps, sharing)
	marker.AddMetadata("mapCount", len(maps))
	marker.AddMetadata("effectivelyPublic", len(public))

	restricted := make([]visibility.MapConfig, 0, len(configRestricted)+len(platformRestricted))
	restricted = append(restricted, configRestricted...)
	restricted = append(restricted, platformRestricted...)

	result := &visibility.ResolutionResult{
		Public:       public,
		Restricted:   restricted,
		HasCompleted: true,
	}

	if !viewer.HasSession {
		result.Accessible = public
		result.LoginRequired = len(public) == 0
		s.logResolved(tenantID, "anonymous", result)
		return result
	}

	if !viewer.CanProbeDelegated() {
		// Config-restricted maps come first so a consumer picking the
		// first accessible map surfaces the intentionally-gated one.
		result.Accessible = concatMaps(configRestricted, public)
		result.LoginRequired = false
		s.logResolved(tenantID, "session", result)
		return result
	}

	restrictedIDs := make([]string, 0, len(platformRestricted))
	for _, m := range platformRestricted {
		restrictedIDs = append(restrictedIDs, m.ArcGISItemID)
	}

	accessibleSet := s.delegated.CheckDelegatedAccess(ctx, restrictedIDs, viewer.DelegatedToken)

	unlocked := make([]visibility.MapConfig, 0, len(platformRestricted))
	for _, m := range platformRestricted {
		if accessibleSet[m.ArcGISItemID] {
			unlocked = append(unlocked, m)
		}
	}
	marker.AddMetadata("unlockedPlatformRestricted", len(unlocked))

	result.Accessible = concatMaps(unlocked, configRestricted, public)
	result.LoginRequired = false
	s.logResolved(tenantID, "delegated", result)
	return result
}

func (s *VisibilityService) logResolved(tenantID, viewerKind string, result *visibility.ResolutionResult) {
	s.logger.Visibility().Info("Resolution pass completed",
		"tenantId", tenantID,
		"viewer", viewerKind,
		"accessible", len(result.Accessible),
		"public", len(result.Public),
		"restricted", len(result.Restricted),
		"loginRequired", result.LoginRequired)
}

func concatMaps(lists ...[]visibility.MapConfig) []visibility.MapConfig {
	size := 0
	for _, l := range lists {
		size += len(l)
	}
	out := make([]visibility.MapConfig, 0, size)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
