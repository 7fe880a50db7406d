// Package arcgis talks to the upstream ArcGIS portal's sharing REST
// API. It answers two questions about portal items: which are shared
// publicly, and which a delegated token may access. Both probes are
// fail-closed: a lookup that errors reports the item as non-public or
// inaccessible, never the reverse, and neither probe returns an error
// to the caller.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/metrics"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

// SharingCache is an optional read-through cache consulted before the
// portal is asked about an item's sharing state. Implementations live
// in the caching layer; a nil cache disables caching.
type SharingCache interface {
	Get(tenantID, itemID string) (visibility.SharingResult, bool)
	Set(tenantID, itemID string, result visibility.SharingResult)
}

// Client issues sharing and delegated-access probes against one portal.
type Client struct {
	portalURL   string
	http        *http.Client
	cache       SharingCache
	concurrency int
	logger      *logging.ChanneledLogger
}

// NewClient creates a portal client. portalURL defaults to the
// configured portal when empty; cache may be nil.
func NewClient(portalURL string, cache SharingCache, logger *logging.ChanneledLogger) *Client {
	if portalURL == "" {
		portalURL = config.ArcGISPortalURL
	}

	return &Client{
		portalURL:   portalURL,
		http:        &http.Client{Timeout: config.ArcGISProbeTimeout},
		cache:       cache,
		concurrency: config.ArcGISProbeConcurrency,
		logger:      logger,
	}
}

// itemResponse is the slice of the portal's item JSON this client needs.
type itemResponse struct {
	ID     string     `json:"id"`
	Access string     `json:"access"`
	Error  *restError `json:"error"`
}

type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CheckMultipleSharing looks up the sharing state of every item in the
// batch. Empty item IDs are skipped and absent from the result; every
// other input gets exactly one entry. Individual lookup failures
// degrade that item to non-public with the failure recorded in Detail.
func (c *Client) CheckMultipleSharing(ctx context.Context, tenantID string, itemIDs []string) map[string]visibility.SharingResult {
	metrics.SharingProbesTotal.Inc()
	start := time.Now()

	results := make(map[string]visibility.SharingResult, len(itemIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)

	for _, itemID := range itemIDs {
		if itemID == "" {
			continue
		}

		if c.cache != nil {
			if cached, ok := c.cache.Get(tenantID, itemID); ok {
				metrics.SharingCacheHitsTotal.Inc()
				mu.Lock()
				results[itemID] = cached
				mu.Unlock()
				continue
			}
			metrics.SharingCacheMissesTotal.Inc()
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(itemID string) {
			defer wg.Done()
			defer func() { <-sem }()

			result := c.probeSharing(ctx, itemID)

			if c.cache != nil && result.Detail == "" {
				c.cache.Set(tenantID, itemID, result)
			}

			mu.Lock()
			results[itemID] = result
			mu.Unlock()
		}(itemID)
	}

	wg.Wait()

	metrics.SharingProbeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return results
}

// probeSharing asks the portal about one item.
func (c *Client) probeSharing(ctx context.Context, itemID string) visibility.SharingResult {
	metrics.SharingProbeItemsTotal.Inc()

	item, err := c.fetchItem(ctx, itemID, "")
	if err != nil {
		metrics.SharingProbeFailuresTotal.Inc()
		c.logger.Platform().Warn("Sharing probe failed, treating item as non-public",
			"itemId", itemID, "error", err)
		return visibility.SharingResult{IsPublic: false, Detail: err.Error()}
	}

	return visibility.SharingResult{IsPublic: item.Access == "public"}
}

// CheckDelegatedAccess reports which of the given items the token's
// holder may access, verified against the portal's authorization model
// rather than the sharing flag. An empty token short-circuits to the
// empty set without touching the network; a portal error denies the
// affected item.
func (c *Client) CheckDelegatedAccess(ctx context.Context, itemIDs []string, token string) map[string]bool {
	accessible := make(map[string]bool)
	if token == "" || len(itemIDs) == 0 {
		return accessible
	}

	metrics.DelegatedProbesTotal.Inc()

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)

	for _, itemID := range itemIDs {
		if itemID == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(itemID string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.fetchItem(ctx, itemID, token)
			if err != nil {
				metrics.DelegatedProbeFailuresTotal.Inc()
				c.logger.Platform().Warn("Delegated-access probe failed, denying item",
					"itemId", itemID, "error", err)
				return
			}

			mu.Lock()
			accessible[itemID] = true
			mu.Unlock()
		}(itemID)
	}

	wg.Wait()
	return accessible
}

// fetchItem retrieves an item description from the portal, optionally
// authenticating with a delegated token. The portal reports
// authorization failures inside a 200 response body, so both transport
// and embedded errors are surfaced.
func (c *Client) fetchItem(ctx context.Context, itemID, token string) (*itemResponse, error) {
	endpoint := fmt.Sprintf("%s/sharing/rest/content/items/%s", c.portalURL, url.PathEscape(itemID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building item request: %w", err)
	}

	q := req.URL.Query()
	q.Set("f", "json")
	if token != "" {
		q.Set("token", token)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("item lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("item lookup returned status %d", resp.StatusCode)
	}

	var item itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decoding item response: %w", err)
	}

	if item.Error != nil {
		return nil, fmt.Errorf("portal error %d: %s", item.Error.Code, item.Error.Message)
	}

	return &item, nil
}
