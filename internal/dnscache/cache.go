// Package dnscache provides a thread-safe, TTL-based cache for DNS MX lookups
// with singleflight deduplication for concurrent requests to the same domain.
package dnscache

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/optimode/emailvalidator/internal/resolver"
)

// Cache is a thread-safe DNS MX lookup cache wrapping a resolver.
// Concurrent lookups for the same domain are deduplicated:
// only one actual DNS query is performed, and all waiters receive the result.
// Definitive answers (records, NXDOMAIN, no MX) are cached; transient
// resolver errors are not.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]entry
	group         singleflight.Group
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	resolver      resolver.MXResolver
}

type entry struct {
	records []*net.MX
	err     error
	expires time.Time
}

// New creates a DNS cache in front of r with the given lookup timeout and cache TTL.
func New(r resolver.MXResolver, lookupTimeout, cacheTTL time.Duration) *Cache {
	return &Cache{
		entries:       make(map[string]entry),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		resolver:      r,
	}
}

// LookupMX returns MX records for the domain, using the cache when possible.
// The shared lookup is bounded by the cache's lookup timeout; ctx only
// bounds how long this caller waits for it.
func (c *Cache) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	c.mu.Lock()
	if e, ok := c.entries[domain]; ok {
		if time.Now().Before(e.expires) {
			c.mu.Unlock()
			return copyMX(e.records), e.err
		}
		delete(c.entries, domain)
	}
	c.mu.Unlock()

	ch := c.group.DoChan(domain, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		records, err := c.resolver.LookupMX(lctx, domain)
		if err == nil || definitive(err) {
			c.mu.Lock()
			c.entries[domain] = entry{records: records, err: err, expires: time.Now().Add(c.cacheTTL)}
			c.mu.Unlock()
		}
		return records, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		records, _ := res.Val.([]*net.MX)
		return copyMX(records), res.Err
	}
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func definitive(err error) bool {
	return errors.Is(err, resolver.ErrNXDomain) || errors.Is(err, resolver.ErrNoAnswer)
}

// copyMX returns a deep copy of MX records to prevent callers from
// mutating cached data (e.g., via sort.Slice).
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out
}
