package services

import (
	"context"
	"log/slog"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	if err != nil {
		t.Fatalf("NewChanneledLogger: %v", err)
	}
	return logger
}

type fakeSharingProber struct {
	results map[string]visibility.SharingResult
	calls   atomic.Int32
}

func (f *fakeSharingProber) CheckMultipleSharing(ctx context.Context, tenantID string, itemIDs []string) map[string]visibility.SharingResult {
	f.calls.Add(1)
	out := make(map[string]visibility.SharingResult, len(itemIDs))
	for _, id := range itemIDs {
		if r, ok := f.results[id]; ok {
			out[id] = r
		} else {
			// Unknown item behaves like a failed lookup.
			out[id] = visibility.SharingResult{IsPublic: false, Detail: "lookup failed"}
		}
	}
	return out
}

type fakeDelegatedProber struct {
	accessible map[string]bool
	calls      atomic.Int32
	block      chan struct{}
}

func (f *fakeDelegatedProber) CheckDelegatedAccess(ctx context.Context, itemIDs []string, token string) map[string]bool {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	out := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = f.accessible[id]
	}
	return out
}

func newTestService(t *testing.T, sharing *fakeSharingProber, delegated *fakeDelegatedProber) *VisibilityService {
	t.Helper()
	tracker := performance.NewTracker(nil)
	return NewVisibilityService(sharing, delegated, newTestLogger(t), tracker)
}

func ids(maps []visibility.MapConfig) []string {
	out := make([]string, len(maps))
	for i, m := range maps {
		out[i] = m.ID
	}
	return out
}

func TestResolve(t *testing.T) {
	publicSharing := map[string]visibility.SharingResult{
		"x1": {IsPublic: true},
		"x2": {IsPublic: false},
	}

	tests := []struct {
		name              string
		maps              []visibility.MapConfig
		sharing           map[string]visibility.SharingResult
		delegated         map[string]bool
		viewer            visibility.Viewer
		wantAccessible    []string
		wantLoginRequired bool
	}{
		{
			name:              "public map visible to anonymous viewer",
			maps:              []visibility.MapConfig{{ID: "A", ArcGISItemID: "x1", Access: visibility.AccessPublic}},
			sharing:           publicSharing,
			viewer:            visibility.Viewer{},
			wantAccessible:    []string{"A"},
			wantLoginRequired: false,
		},
		{
			name:              "config override hides map from anonymous viewer",
			maps:              []visibility.MapConfig{{ID: "A", ArcGISItemID: "x1", Access: visibility.AccessPrivate}},
			sharing:           publicSharing,
			viewer:            visibility.Viewer{},
			wantAccessible:    []string{},
			wantLoginRequired: true,
		},
		{
			name:              "session alone unlocks config-restricted map",
			maps:              []visibility.MapConfig{{ID: "A", ArcGISItemID: "x1", Access: visibility.AccessPrivate}},
			sharing:           publicSharing,
			viewer:            visibility.Viewer{SessionID: "s1", HasSession: true},
			wantAccessible:    []string{"A"},
			wantLoginRequired: false,
		},
		{
			name:      "delegated token unlocks platform-restricted map",
			maps:      []visibility.MapConfig{{ID: "B", ArcGISItemID: "x2", Access: visibility.AccessPublic}},
			sharing:   publicSharing,
			delegated: map[string]bool{"x2": true},
			viewer: visibility.Viewer{
				SessionID: "s1", HasSession: true,
				LinkedArcGISUsername: "jdoe", DelegatedToken: "tok",
			},
			wantAccessible:    []string{"B"},
			wantLoginRequired: false,
		},
		{
			name:              "map without item ID never public, unlocked by session",
			maps:              []visibility.MapConfig{{ID: "C", Access: visibility.AccessPublic}},
			sharing:           publicSharing,
			viewer:            visibility.Viewer{SessionID: "s1", HasSession: true},
			wantAccessible:    []string{"C"},
			wantLoginRequired: false,
		},
		{
			name:              "map without item ID hidden from anonymous viewer",
			maps:              []visibility.MapConfig{{ID: "C", Access: visibility.AccessPublic}},
			sharing:           publicSharing,
			viewer:            visibility.Viewer{},
			wantAccessible:    []string{},
			wantLoginRequired: true,
		},
		{
			name: "token without linked identity skips delegated probe",
			maps: []visibility.MapConfig{{ID: "B", ArcGISItemID: "x2", Access: visibility.AccessPublic}},
			sharing: map[string]visibility.SharingResult{
				"x2": {IsPublic: false},
			},
			delegated: map[string]bool{"x2": true},
			viewer: visibility.Viewer{
				SessionID: "s1", HasSession: true, DelegatedToken: "tok",
			},
			wantAccessible:    []string{},
			wantLoginRequired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sharing := &fakeSharingProber{results: tt.sharing}
			delegated := &fakeDelegatedProber{accessible: tt.delegated}
			svc := newTestService(t, sharing, delegated)

			result := svc.Resolve(context.Background(), "t1", tt.maps, tt.viewer)

			got := ids(result.Accessible)
			if len(got) != len(tt.wantAccessible) || (len(got) > 0 && !reflect.DeepEqual(got, tt.wantAccessible)) {
				t.Errorf("accessible = %v, want %v", got, tt.wantAccessible)
			}
			if result.LoginRequired != tt.wantLoginRequired {
				t.Errorf("loginRequired = %v, want %v", result.LoginRequired, tt.wantLoginRequired)
			}
			if !result.HasCompleted {
				t.Error("hasCompleted should be true after a pass")
			}
		})
	}
}

func TestResolveEmptyMapList(t *testing.T) {
	sharing := &fakeSharingProber{}
	delegated := &fakeDelegatedProber{}
	svc := newTestService(t, sharing, delegated)

	result := svc.Resolve(context.Background(), "t1", nil, visibility.Viewer{})

	if len(result.Accessible) != 0 || len(result.Public) != 0 || len(result.Restricted) != 0 {
		t.Errorf("expected all-empty result, got %+v", result)
	}
	if !result.LoginRequired {
		t.Error("empty map list must resolve loginRequired=true")
	}
	if !result.HasCompleted {
		t.Error("empty map list must resolve hasCompleted=true")
	}
	if sharing.calls.Load() != 0 {
		t.Error("sharing prober must not be called for an empty map list")
	}
}

func TestResolveOrdering(t *testing.T) {
	maps := []visibility.MapConfig{
		{ID: "pub1", ArcGISItemID: "p1", Access: visibility.AccessPublic},
		{ID: "cfg1", ArcGISItemID: "c1", Access: visibility.AccessPrivate},
		{ID: "plat1", ArcGISItemID: "r1", Access: visibility.AccessPublic},
		{ID: "plat2", ArcGISItemID: "r2", Access: visibility.AccessPublic},
		{ID: "cfg2", ArcGISItemID: "c2", Access: visibility.AccessPrivate},
	}
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{
		"p1": {IsPublic: true},
		"c1": {IsPublic: true},
		"c2": {IsPublic: true},
		"r1": {IsPublic: false},
		"r2": {IsPublic: false},
	}}
	delegated := &fakeDelegatedProber{accessible: map[string]bool{"r1": true, "r2": true}}
	svc := newTestService(t, sharing, delegated)

	viewer := visibility.Viewer{
		SessionID: "s1", HasSession: true,
		LinkedArcGISUsername: "jdoe", DelegatedToken: "tok",
	}
	result := svc.Resolve(context.Background(), "t1", maps, viewer)

	want := []string{"plat1", "plat2", "cfg1", "cfg2", "pub1"}
	if got := ids(result.Accessible); !reflect.DeepEqual(got, want) {
		t.Errorf("accessible = %v, want %v", got, want)
	}
}

func TestResolveFailClosed(t *testing.T) {
	maps := []visibility.MapConfig{{ID: "A", ArcGISItemID: "broken", Access: visibility.AccessPublic}}
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{}}
	svc := newTestService(t, sharing, &fakeDelegatedProber{})

	result := svc.Resolve(context.Background(), "t1", maps, visibility.Viewer{})

	if len(result.Public) != 0 {
		t.Errorf("failed lookup must never land in effectivelyPublic, got %v", ids(result.Public))
	}
	if !result.LoginRequired {
		t.Error("anonymous viewer with no public maps must get loginRequired=true")
	}
}

func TestResolveIdempotent(t *testing.T) {
	maps := []visibility.MapConfig{
		{ID: "A", ArcGISItemID: "x1", Access: visibility.AccessPublic},
		{ID: "B", ArcGISItemID: "x2", Access: visibility.AccessPrivate},
	}
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{
		"x1": {IsPublic: true},
		"x2": {IsPublic: true},
	}}
	svc := newTestService(t, sharing, &fakeDelegatedProber{})
	viewer := visibility.Viewer{SessionID: "s1", HasSession: true}

	first := svc.Resolve(context.Background(), "t1", maps, viewer)
	second := svc.Resolve(context.Background(), "t1", maps, viewer)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveSessionWithoutTokenSkipsDelegatedProbe(t *testing.T) {
	maps := []visibility.MapConfig{{ID: "B", ArcGISItemID: "x2", Access: visibility.AccessPublic}}
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{
		"x2": {IsPublic: false},
	}}
	delegated := &fakeDelegatedProber{accessible: map[string]bool{"x2": true}}
	svc := newTestService(t, sharing, delegated)

	viewer := visibility.Viewer{SessionID: "s1", HasSession: true, LinkedArcGISUsername: "jdoe"}
	result := svc.Resolve(context.Background(), "t1", maps, viewer)

	if delegated.calls.Load() != 0 {
		t.Error("delegated prober must not run without a token")
	}
	if len(result.Accessible) != 0 {
		t.Errorf("platform-restricted map must stay locked, got %v", ids(result.Accessible))
	}
}
