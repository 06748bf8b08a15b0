package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// jwksCache holds Google's signing keys indexed by kid. Keys rotate, so an
// unknown kid triggers a refetch; a minimum interval between fetches keeps a
// flood of bad tokens from hammering the endpoint.
type jwksCache struct {
	url        string
	httpClient *http.Client

	mu        sync.Mutex
	keys      map[string]interface{}
	fetchedAt time.Time
}

const jwksMinRefetchInterval = time.Minute

func newJWKSCache(url string, client *http.Client) *jwksCache {
	return &jwksCache{url: url, httpClient: client}
}

func (c *jwksCache) keyFor(ctx context.Context, kid string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.keys[kid]; ok {
		return key, nil
	}

	if time.Since(c.fetchedAt) < jwksMinRefetchInterval {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

// refresh fetches and replaces the key set. Caller holds c.mu.
func (c *jwksCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("building jwks request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned %s", resp.Status)
	}

	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding jwks: %w", err)
	}

	keys := make(map[string]interface{}, len(doc.Keys))
	for _, raw := range doc.Keys {
		spec, err := parseJWK(raw)
		if err != nil {
			continue
		}
		keys[spec.kid] = spec.key
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks document from %s has no usable keys", c.url)
	}

	c.keys = keys
	c.fetchedAt = time.Now()
	return nil
}
