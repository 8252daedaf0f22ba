package cache

import (
	"context"
	"testing"
)

func TestKey(t *testing.T) {
	a := Key([]byte("ab"), []byte("c"))
	b := Key([]byte("a"), []byte("bc"))
	if a == b {
		t.Error("Expected different keys for differently split parts")
	}
	if a != Key([]byte("ab"), []byte("c")) {
		t.Error("Expected keys to be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("Expected a hex sha256 key, got %q", a)
	}
}

func TestNewCache(t *testing.T) {
	c, err := NewCache("none", "", 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := c.Set(context.Background(), "k", &Entry{Data: []byte("x")}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if entry, _ := c.Get(context.Background(), "k"); entry != nil {
		t.Error("Expected the none cache to store nothing")
	}

	if _, err := NewCache("memcached", "", 0); err == nil {
		t.Error("Expected an error for an unknown cache type")
	}
}
