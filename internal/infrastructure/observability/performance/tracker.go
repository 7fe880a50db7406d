// Package performance provides performance tracking and monitoring
// capabilities for CivQuest operations with multi-tenant support.
package performance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker  // Active and completed markers by unique ID
	alerts     []*PerformanceAlert // Active performance alerts
	thresholds *AlertThresholds    // Configurable alert thresholds
	mu         sync.RWMutex        // Protects concurrent access
	started    time.Time           // When tracking started
	config     *TrackerConfig      // Tracker configuration
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int  `json:"maxMarkers"`   // Maximum number of markers to retain
	MaxAlerts    int  `json:"maxAlerts"`    // Maximum number of alerts to retain
	EnableAlerts bool `json:"enableAlerts"` // Whether to generate performance alerts
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   10000,
		MaxAlerts:    500,
		EnableAlerts: true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`     // 500ms
	VerySlowResponseThreshold time.Duration `json:"verySlowResponseThreshold"` // 2s
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"` // 5s

	// Operation-specific thresholds
	AuthOperationThreshold  time.Duration `json:"authOperationThreshold"`  // 200ms
	ResolutionPassThreshold time.Duration `json:"resolutionPassThreshold"` // 3s
	PlatformProbeThreshold  time.Duration `json:"platformProbeThreshold"`  // 2.5s
	DatabaseQueryThreshold  time.Duration `json:"databaseQueryThreshold"`  // 50ms
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     time.Millisecond * 500,
		VerySlowResponseThreshold: time.Second * 2,
		CriticalResponseThreshold: time.Second * 5,
		AuthOperationThreshold:    time.Millisecond * 200,
		ResolutionPassThreshold:   time.Second * 3,
		PlatformProbeThreshold:    2500 * time.Millisecond,
		DatabaseQueryThreshold:    time.Millisecond * 50,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers:    make(map[string]*Marker),
		alerts:     make([]*PerformanceAlert, 0),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	marker := &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%s_%d", tenantID, operation, time.Now().UnixNano())

	t.mu.Lock()
	if len(t.markers) < t.config.MaxMarkers {
		t.markers[markerID] = marker
	}
	t.mu.Unlock()

	return marker
}

// StartOperationWithContext creates a performance marker with context cancellation support
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation, tenantID string) *Marker {
	marker := t.StartOperation(operation, tenantID)

	go func() {
		<-ctx.Done()
		if !marker.Completed {
			marker.SetError(ctx.Err())
			marker.Complete()
		}
	}()

	return marker
}

// CompleteOperation manually completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}

	marker.Complete()

	if t.config.EnableAlerts {
		t.checkForAlerts(marker)
	}
}

// GetAlerts returns a copy of the currently retained alerts.
func (t *Tracker) GetAlerts() []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	alerts := make([]*PerformanceAlert, len(t.alerts))
	copy(alerts, t.alerts)
	return alerts
}

// Uptime returns how long this tracker has been running.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}

// checkForAlerts evaluates a completed marker against alert thresholds
func (t *Tracker) checkForAlerts(marker *Marker) {
	if marker == nil || !marker.Completed {
		return
	}

	alerts := t.evaluateThresholds(marker)

	t.mu.Lock()
	for _, alert := range alerts {
		t.alerts = append(t.alerts, alert)

		if len(t.alerts) > t.config.MaxAlerts {
			// Remove oldest alerts
			t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
		}
	}
	t.mu.Unlock()
}

// evaluateThresholds checks a marker against all relevant thresholds
func (t *Tracker) evaluateThresholds(marker *Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert

	if marker.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			"Operation exceeded critical response time threshold", t.thresholds.CriticalResponseThreshold))
	} else if marker.Duration > t.thresholds.VerySlowResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			"Operation exceeded slow response time threshold", t.thresholds.VerySlowResponseThreshold))
	}

	switch {
	case strings.Contains(marker.Operation, "auth"):
		if marker.Duration > t.thresholds.AuthOperationThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Authentication operation exceeded threshold", t.thresholds.AuthOperationThreshold))
		}
	case strings.Contains(marker.Operation, "resolve"):
		if marker.Duration > t.thresholds.ResolutionPassThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Visibility resolution pass exceeded threshold", t.thresholds.ResolutionPassThreshold))
		}
	case strings.Contains(marker.Operation, "probe"):
		if marker.Duration > t.thresholds.PlatformProbeThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Platform probe exceeded threshold", t.thresholds.PlatformProbeThreshold))
		}
	case strings.Contains(marker.Operation, "db") || strings.Contains(marker.Operation, "query"):
		if marker.Duration > t.thresholds.DatabaseQueryThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertInfo,
				"Database query exceeded threshold", t.thresholds.DatabaseQueryThreshold))
		}
	}

	return alerts
}

// createAlert builds a PerformanceAlert from a marker
func (t *Tracker) createAlert(marker *Marker, severity AlertSeverity, message string, threshold time.Duration) *PerformanceAlert {
	return &PerformanceAlert{
		ID:        fmt.Sprintf("alert_%s_%d", marker.Operation, time.Now().UnixNano()),
		Timestamp: time.Now(),
		TenantID:  marker.TenantID,
		Severity:  severity,
		Operation: marker.Operation,
		Threshold: threshold,
		Actual:    marker.Duration,
		Message:   message,
		Metadata:  marker.Metadata,
	}
}
