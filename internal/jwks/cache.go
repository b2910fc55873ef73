package jwks

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// staleAfter bounds how long cachedKeySet keeps reporting itself
// healthy after its last successful verification or background probe.
// oidc.RemoteKeySet has no notion of "healthy" at all — it only
// succeeds or fails a given VerifySignature call — so this is purely
// additive bookkeeping for /ready, not a substitute verification path.
const staleAfter = 10 * time.Minute

// probeInterval is how often the background loop re-checks the JWKS
// endpoint's reachability independent of request traffic, so a
// provider outage is visible in /ready before the first user request
// after it fails.
const probeInterval = 2 * time.Minute

// cachedKeySet wraps an oidc.KeySet (oidc.NewRemoteKeySet in
// production, a fake in tests) with retry-on-transient-failure and a
// health flag consulted by /ready. It deliberately does not attempt to
// serve a cached verification result for an unverified token — forging
// "stale but trusted" output would defeat the point of signature
// verification — the staleness this tracks is JWKS-endpoint
// reachability, not per-token trust.
type cachedKeySet struct {
	keySet  oidc.KeySet
	client  *http.Client
	jwksURL string

	mu          sync.RWMutex
	lastSuccess time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

func newCachedKeySet(keySet oidc.KeySet) *cachedKeySet {
	c := &cachedKeySet{
		keySet:      keySet,
		client:      &http.Client{Timeout: 5 * time.Second},
		lastSuccess: time.Now(),
		stopChan:    make(chan struct{}),
	}
	return c
}

// VerifySignature verifies tokenString against the wrapped key set,
// retrying once after a short delay on error since a JWKS fetch
// triggered by an unrecognized kid is the one failure mode worth a
// second attempt (a genuinely bad signature fails both tries
// identically).
func (c *cachedKeySet) VerifySignature(ctx context.Context, tokenString string) ([]byte, error) {
	payload, err := c.keySet.VerifySignature(ctx, tokenString)
	if err == nil {
		c.mu.Lock()
		c.lastSuccess = time.Now()
		c.mu.Unlock()
		return payload, nil
	}

	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	payload, err = c.keySet.VerifySignature(ctx, tokenString)
	if err == nil {
		c.mu.Lock()
		c.lastSuccess = time.Now()
		c.mu.Unlock()
	}
	return payload, err
}

// Healthy reports whether the key set has verified a token, or
// otherwise confirmed the JWKS endpoint reachable, within staleAfter.
func (c *cachedKeySet) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastSuccess) < staleAfter
}

// StartProbe begins a background loop that performs a lightweight GET
// against jwksURL every probeInterval, refreshing lastSuccess on a
// 2xx response even when no real request has exercised VerifySignature
// recently. Call Stop to end the loop during shutdown.
func (c *cachedKeySet) StartProbe(jwksURL string) {
	c.jwksURL = jwksURL
	go c.probeLoop()
}

func (c *cachedKeySet) probeLoop() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.probeOnce()
		}
	}
}

func (c *cachedKeySet) probeOnce() {
	if c.jwksURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.mu.Lock()
		c.lastSuccess = time.Now()
		c.mu.Unlock()
	}
}

// Stop ends the background probe loop, if one was started.
func (c *cachedKeySet) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}
