package arcgis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
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

// itemHandler serves a canned portal response per item ID.
func itemHandler(access map[string]string, requireToken map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := r.URL.Path[len("/sharing/rest/content/items/"):]
		token := r.URL.Query().Get("token")

		if requireToken[itemID] && token == "" {
			fmt.Fprintf(w, `{"error":{"code":403,"message":"You do not have permissions to access this resource"}}`)
			return
		}

		acc, ok := access[itemID]
		if !ok {
			fmt.Fprintf(w, `{"error":{"code":400,"message":"Item does not exist"}}`)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"access":%q}`, itemID, acc)
	}
}

func TestCheckMultipleSharing(t *testing.T) {
	srv := httptest.NewServer(itemHandler(map[string]string{
		"pub":  "public",
		"org":  "org",
		"priv": "private",
	}, nil))
	defer srv.Close()

	client := NewClient(srv.URL, nil, newTestLogger(t))
	results := client.CheckMultipleSharing(context.Background(), "t1", []string{"pub", "org", "priv", "", "missing"})

	if len(results) != 4 {
		t.Fatalf("expected 4 results (empty ID skipped), got %d", len(results))
	}
	if !results["pub"].IsPublic {
		t.Errorf("pub: expected IsPublic=true")
	}
	if results["org"].IsPublic {
		t.Errorf("org: expected IsPublic=false for org-shared item")
	}
	if results["priv"].IsPublic {
		t.Errorf("priv: expected IsPublic=false")
	}
	if results["missing"].IsPublic {
		t.Errorf("missing: expected IsPublic=false for unknown item")
	}
	if results["missing"].Detail == "" {
		t.Errorf("missing: expected diagnostic detail for failed lookup")
	}
}

func TestCheckMultipleSharingServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // probe against a dead server

	client := NewClient(srv.URL, nil, newTestLogger(t))
	results := client.CheckMultipleSharing(context.Background(), "t1", []string{"a", "b"})

	if len(results) != 2 {
		t.Fatalf("expected entries for every input, got %d", len(results))
	}
	for id, res := range results {
		if res.IsPublic {
			t.Errorf("%s: network failure must degrade to non-public", id)
		}
		if res.Detail == "" {
			t.Errorf("%s: expected failure detail", id)
		}
	}
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]visibility.SharingResult
	hits  int
	sets  int
}

func (c *mapCache) Get(tenantID, itemID string) (visibility.SharingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.items[tenantID+"/"+itemID]
	if ok {
		c.hits++
	}
	return res, ok
}

func (c *mapCache) Set(tenantID, itemID string, result visibility.SharingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]visibility.SharingResult)
	}
	c.items[tenantID+"/"+itemID] = result
	c.sets++
}

func TestCheckMultipleSharingUsesCache(t *testing.T) {
	var requests int32
	var mu sync.Mutex
	inner := itemHandler(map[string]string{"pub": "public"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		inner(w, r)
	}))
	defer srv.Close()

	cache := &mapCache{}
	client := NewClient(srv.URL, cache, newTestLogger(t))

	first := client.CheckMultipleSharing(context.Background(), "t1", []string{"pub"})
	second := client.CheckMultipleSharing(context.Background(), "t1", []string{"pub"})

	if !first["pub"].IsPublic || !second["pub"].IsPublic {
		t.Fatalf("expected public on both passes")
	}
	if requests != 1 {
		t.Errorf("expected 1 portal request, got %d", requests)
	}
	if cache.hits == 0 {
		t.Errorf("expected second pass to hit the cache")
	}
}

func TestCheckMultipleSharingDoesNotCacheFailures(t *testing.T) {
	srv := httptest.NewServer(itemHandler(nil, nil)) // every item errors
	defer srv.Close()

	cache := &mapCache{}
	client := NewClient(srv.URL, cache, newTestLogger(t))
	client.CheckMultipleSharing(context.Background(), "t1", []string{"x"})

	if cache.sets != 0 {
		t.Errorf("failed lookups must not be cached, got %d sets", cache.sets)
	}
}

func TestCheckDelegatedAccess(t *testing.T) {
	srv := httptest.NewServer(itemHandler(
		map[string]string{"granted": "private", "open": "public"},
		map[string]bool{"granted": true},
	))
	defer srv.Close()

	client := NewClient(srv.URL, nil, newTestLogger(t))

	accessible := client.CheckDelegatedAccess(context.Background(), []string{"granted", "denied"}, "tok123")
	if !accessible["granted"] {
		t.Errorf("granted: expected accessible with token")
	}
	if accessible["denied"] {
		t.Errorf("denied: unknown item must fail closed")
	}
}

func TestCheckDelegatedAccessNoToken(t *testing.T) {
	// The empty-token path must not touch the network at all.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected portal request with empty token: %s", r.URL)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, newTestLogger(t))
	accessible := client.CheckDelegatedAccess(context.Background(), []string{"a", "b"}, "")
	if len(accessible) != 0 {
		t.Errorf("expected empty set for missing token, got %v", accessible)
	}
}

func TestCheckDelegatedAccessServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, newTestLogger(t))
	accessible := client.CheckDelegatedAccess(context.Background(), []string{"a"}, "tok")
	if len(accessible) != 0 {
		t.Errorf("platform errors must deny access, got %v", accessible)
	}
}
