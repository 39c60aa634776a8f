package cache

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-faktur/internal/config"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsDriver(t *testing.T) {
	_, ok := New(config.CacheConfig{}).(Nop)
	assert.True(t, ok, "no address and no driver")

	_, ok = New(config.CacheConfig{Driver: "none", RedisAddr: "127.0.0.1:6379"}).(Nop)
	assert.True(t, ok, "explicit none")

	_, ok = New(config.CacheConfig{Driver: "memory", TTL: time.Minute}).(*Memory)
	assert.True(t, ok)

	r, ok := New(config.CacheConfig{RedisAddr: "127.0.0.1:1", TTL: time.Minute}).(*Redis)
	require.True(t, ok, "address implies redis")
	_ = r.rdb.Close()
}

func TestNopNeverHits(t *testing.T) {
	c := Nop{}
	c.Set(context.Background(), &models.Invoice{ID: 1}, 0)
	_, gen, hit := c.Get(context.Background(), 1)
	assert.False(t, hit)
	assert.Negative(t, gen)
}

func TestInvoiceKeys(t *testing.T) {
	assert.Equal(t, "faktur:invoice:42", invoiceKey(42))
	assert.Equal(t, "faktur:invoice:42:gen", genKey(42))
}

func TestRedisUnreachableIsMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewRedis(rdb, time.Minute)

	ctx := context.Background()
	_, gen, hit := c.Get(ctx, 9)
	assert.False(t, hit)
	assert.Negative(t, gen)
	c.Set(ctx, &models.Invoice{ID: 9, Number: "INV-20250101-0001"}, gen)
	c.Invalidate(ctx, 9)
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, nil)

	_, gen, hit := c.Get(ctx, 7)
	require.False(t, hit)
	c.Set(ctx, &models.Invoice{ID: 7, Number: "INV-20250811-0001"}, gen)

	inv, _, hit := c.Get(ctx, 7)
	require.True(t, hit)
	assert.Equal(t, "INV-20250811-0001", inv.Number)

	inv.Number = "mutated"
	again, _, _ := c.Get(ctx, 7)
	assert.Equal(t, "INV-20250811-0001", again.Number)
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 11, 9, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute, func() time.Time { return now })

	c.Set(ctx, &models.Invoice{ID: 3}, 0)
	_, _, hit := c.Get(ctx, 3)
	require.True(t, hit)

	now = now.Add(time.Minute)
	_, _, hit = c.Get(ctx, 3)
	assert.False(t, hit)
}

func TestMemorySetAfterInvalidateIsDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, nil)

	// reader misses and loads the old row
	_, gen, hit := c.Get(ctx, 5)
	require.False(t, hit)
	// writer commits and invalidates before the reader stores
	c.Invalidate(ctx, 5)
	c.Set(ctx, &models.Invoice{ID: 5, Number: "old"}, gen)

	_, gen, hit = c.Get(ctx, 5)
	assert.False(t, hit)
	assert.EqualValues(t, 1, gen)

	c.Set(ctx, &models.Invoice{ID: 5, Number: "new"}, gen)
	inv, _, hit := c.Get(ctx, 5)
	require.True(t, hit)
	assert.Equal(t, "new", inv.Number)
}
