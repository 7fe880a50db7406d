package services

import (
	"context"
	"testing"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
)

func waitForCommit(t *testing.T, r *Resolver) *visibility.ResolutionResult {
	t.Helper()
	select {
	case result := <-r.Commits():
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolution commit")
		return nil
	}
}

func TestResolverCommitsResult(t *testing.T) {
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{
		"x1": {IsPublic: true},
	}}
	svc := newTestService(t, sharing, &fakeDelegatedProber{})
	resolver := NewResolver(svc, nil, "t1", "s1")

	maps := []visibility.MapConfig{{ID: "A", ArcGISItemID: "x1", Access: visibility.AccessPublic}}
	resolver.Update(context.Background(), maps, visibility.Viewer{})

	result := waitForCommit(t, resolver)
	if len(result.Accessible) != 1 || result.Accessible[0].ID != "A" {
		t.Errorf("unexpected committed result: %+v", result)
	}
	if resolver.Current() != result {
		t.Error("Current() should return the committed result")
	}
}

func TestResolverStalenessGuard(t *testing.T) {
	sharing := &fakeSharingProber{results: map[string]visibility.SharingResult{
		"x2": {IsPublic: false},
	}}
	// Pass A goes through the delegated prober and blocks there until
	// released; pass B (anonymous viewer) never reaches it.
	delegated := &fakeDelegatedProber{
		accessible: map[string]bool{"x2": true},
		block:      make(chan struct{}),
	}
	svc := newTestService(t, sharing, delegated)
	resolver := NewResolver(svc, nil, "t1", "s1")

	maps := []visibility.MapConfig{{ID: "B", ArcGISItemID: "x2", Access: visibility.AccessPublic}}
	slowViewer := visibility.Viewer{
		SessionID: "s1", HasSession: true,
		LinkedArcGISUsername: "jdoe", DelegatedToken: "tok",
	}

	// Pass A: starts first, stalls inside the delegated probe.
	resolver.Update(context.Background(), maps, slowViewer)

	// Give pass A time to reach the blocking probe before superseding it.
	deadline := time.Now().Add(2 * time.Second)
	for delegated.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pass A never reached the delegated prober")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Pass B: newer inputs, completes immediately.
	resolver.Update(context.Background(), maps, visibility.Viewer{})
	committed := waitForCommit(t, resolver)

	// Release pass A and give it a chance to (incorrectly) commit.
	close(delegated.block)
	time.Sleep(50 * time.Millisecond)

	current := resolver.Current()
	if current != committed {
		t.Error("superseded pass overwrote the newer result")
	}
	if len(current.Accessible) != 0 || !current.LoginRequired {
		t.Errorf("committed result should be pass B's anonymous outcome, got %+v", current)
	}

	select {
	case late := <-resolver.Commits():
		t.Errorf("superseded pass must not commit, got %+v", late)
	default:
	}
}

func TestResolverRegistryReusesResolver(t *testing.T) {
	svc := newTestService(t, &fakeSharingProber{}, &fakeDelegatedProber{})
	registry := NewResolverRegistry(svc, nil)

	first := registry.GetOrCreate("t1", "s1")
	second := registry.GetOrCreate("t1", "s1")
	other := registry.GetOrCreate("t1", "s2")

	if first != second {
		t.Error("same tenant session should reuse one resolver")
	}
	if first == other {
		t.Error("different sessions must not share a resolver")
	}

	registry.Remove("t1", "s1")
	if registry.GetOrCreate("t1", "s1") == first {
		t.Error("removed resolver should not be returned again")
	}
}
