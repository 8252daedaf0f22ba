package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache("redis://"+mr.Addr()+"/0", ttl)
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedis_SetGet(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	ctx := context.Background()

	if entry, err := c.Get(ctx, "missing"); err != nil || entry != nil {
		t.Fatalf("Expected a miss, got %v, %v", entry, err)
	}

	if err := c.Set(ctx, "k", &Entry{Data: []byte{0x00, 0xff}, Extension: ".gif"}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	entry, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if entry == nil || !bytes.Equal(entry.Data, []byte{0x00, 0xff}) || entry.Extension != ".gif" {
		t.Errorf("Expected the stored entry, got %+v", entry)
	}

	if ttl := mr.TTL(redisKeyPrefix + "k"); ttl != time.Hour {
		t.Errorf("Expected ttl 1h, got %s", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if entry, _ := c.Get(ctx, "k"); entry != nil {
		t.Error("Expected entry to expire")
	}
}

func TestRedis_Unreachable(t *testing.T) {
	if _, err := NewRedisCache("redis://127.0.0.1:1/0", 0); err == nil {
		t.Error("Expected an error for an unreachable server")
	}
	if _, err := NewRedisCache("not a url", 0); err == nil {
		t.Error("Expected an error for an invalid url")
	}
}
