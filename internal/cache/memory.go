package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/diewo77/go-faktur/internal/metrics"
	"github.com/diewo77/go-faktur/internal/models"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process cache for single-instance deployments and tests.
// Entries are stored as JSON so callers never share a mutable invoice.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uint]memEntry
	gens    map[uint]int64
}

func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		ttl:     ttl,
		now:     now,
		entries: make(map[uint]memEntry),
		gens:    make(map[uint]int64),
	}
}

func (c *Memory) Get(_ context.Context, id uint) (*models.Invoice, int64, bool) {
	c.mu.Lock()
	gen := c.gens[id]
	e, ok := c.entries[id]
	if ok && c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, id)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		metrics.CacheMisses.Inc()
		return nil, gen, false
	}
	var inv models.Invoice
	if err := json.Unmarshal(e.data, &inv); err != nil {
		metrics.CacheMisses.Inc()
		return nil, gen, false
	}
	metrics.CacheHits.Inc()
	return &inv, gen, true
}

func (c *Memory) Set(_ context.Context, inv *models.Invoice, gen int64) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[inv.ID] != gen {
		return
	}
	c.entries[inv.ID] = memEntry{data: data, expires: c.now().Add(c.ttl)}
}

func (c *Memory) Invalidate(_ context.Context, id uint) {
	c.mu.Lock()
	delete(c.entries, id)
	c.gens[id]++
	c.mu.Unlock()
}
