package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JWK is a single RSA key from the issuer's published set.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet is the issuer's published key set.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// KeyCache fetches the issuer's JWKS lazily and caches the parsed public keys.
// The cache is process-wide; concurrent refreshes converge to the same value,
// so last-writer-wins is fine.
type KeyCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	logger zerolog.Logger

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeyCache constructs a key cache for the given JWKS URL. A zero ttl
// defaults to one hour; the fetch timeout is fixed at ten seconds so an
// unreachable issuer cannot hang request handling.
func NewKeyCache(url string, ttl time.Duration, logger zerolog.Logger) *KeyCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &KeyCache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "jwks_cache").Logger(),
	}
}

// PublicKey returns the RSA key matching kid, refreshing the cache when stale.
func (c *KeyCache) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	if key, ok := c.keys[kid]; ok && time.Since(c.fetchedAt) < c.ttl {
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	keys, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyID, kid)
	}
	return key, nil
}

func (c *KeyCache) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", c.url).Msg("jwks fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", c.url).Msg("jwks fetch returned non-200")
		return nil, fmt.Errorf("%w: status %d", ErrKeySetUnavailable, resp.StatusCode)
	}

	var set JWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, err := jwk.publicKey()
		if err != nil {
			c.logger.Warn().Err(err).Str("kid", jwk.Kid).Msg("skipping unparsable jwk")
			continue
		}
		keys[jwk.Kid] = key
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug().Int("keys", len(keys)).Msg("jwks cache refreshed")
	return keys, nil
}

func (j JWK) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
