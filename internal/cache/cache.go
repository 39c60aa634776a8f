// Package cache holds the invoice read-model cache.
//
// Every invoice has a generation counter that Invalidate bumps. Get reports
// the generation it observed and Set only stores when that generation is
// still current, so a reader that loaded a row before a concurrent write
// committed cannot put the old row back after the writer invalidated it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/diewo77/go-faktur/internal/config"
	"github.com/diewo77/go-faktur/internal/logger"
	"github.com/diewo77/go-faktur/internal/metrics"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/redis/go-redis/v9"
)

// InvoiceCache stores assembled invoices by id.
// Failures are logged and reported as misses; the store stays authoritative.
type InvoiceCache interface {
	// Get returns the cached invoice and the generation seen at read time.
	// A negative generation means the cache is unusable and Set will skip.
	Get(ctx context.Context, id uint) (inv *models.Invoice, gen int64, ok bool)
	// Set stores inv unless the invoice was invalidated since gen was read.
	Set(ctx context.Context, inv *models.Invoice, gen int64)
	Invalidate(ctx context.Context, id uint)
}

// Nop is used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, uint) (*models.Invoice, int64, bool) { return nil, -1, false }
func (Nop) Set(context.Context, *models.Invoice, int64)              {}
func (Nop) Invalidate(context.Context, uint)                         {}

// New builds the cache selected by cfg.Driver: "memory", "redis", or
// "none". An empty driver means redis when an address is set, Nop otherwise.
func New(cfg config.CacheConfig) InvoiceCache {
	switch cfg.Driver {
	case "memory":
		return NewMemory(cfg.TTL, time.Now)
	case "none":
		return Nop{}
	case "redis":
	default:
		if cfg.RedisAddr == "" {
			return Nop{}
		}
	}
	return NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}), cfg.TTL)
}

func invoiceKey(id uint) string {
	return fmt.Sprintf("faktur:invoice:%d", id)
}

func genKey(id uint) string {
	return fmt.Sprintf("faktur:invoice:%d:gen", id)
}

// genTTL outlives any cached entry so a counter never resets under a reader.
const genTTL = 24 * time.Hour

var errStale = errors.New("invoice changed since read")

// Redis caches invoices as JSON next to a per-invoice generation counter.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, id uint) (*models.Invoice, int64, bool) {
	vals, err := c.rdb.MGet(ctx, invoiceKey(id), genKey(id)).Result()
	if err != nil {
		logger.WithCtx(ctx).Warn("invoice cache get failed", "invoice_id", id, "error", err)
		metrics.CacheMisses.Inc()
		return nil, -1, false
	}
	var gen int64
	if s, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			metrics.CacheMisses.Inc()
			return nil, -1, false
		}
	}
	s, ok := vals[0].(string)
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, gen, false
	}
	var inv models.Invoice
	if err := json.Unmarshal([]byte(s), &inv); err != nil {
		metrics.CacheMisses.Inc()
		return nil, gen, false
	}
	metrics.CacheHits.Inc()
	return &inv, gen, true
}

func (c *Redis) Set(ctx context.Context, inv *models.Invoice, gen int64) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return
	}
	gk := genKey(inv.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, invoiceKey(inv.ID), data, c.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		logger.WithCtx(ctx).Debug("invoice cache set skipped", "invoice_id", inv.ID, "reason", "stale")
	default:
		logger.WithCtx(ctx).Warn("invoice cache set failed", "invoice_id", inv.ID, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, id uint) {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, invoiceKey(id))
		p.Incr(ctx, genKey(id))
		p.Expire(ctx, genKey(id), genTTL)
		return nil
	})
	if err != nil {
		logger.WithCtx(ctx).Warn("invoice cache invalidate failed", "invoice_id", id, "error", err)
	}
}
