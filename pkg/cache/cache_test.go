package cache

import (
	"context"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "v" {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("missing key must not be found")
	}
}

func TestExpiry(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry must not be returned")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("deleted entry must not be returned")
	}

	// Deleting an absent key is a no-op.
	c.Delete(ctx, "missing")
}

func TestClear(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Minute)
	c.Clear()

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("clear left entries behind")
	}
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("clear left entries behind")
	}
}

func TestOverwrite(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", "old", time.Minute)
	c.Set(ctx, "k", "new", time.Minute)
	if got, _ := c.Get(ctx, "k"); got != "new" {
		t.Fatalf("Get = %q, want new", got)
	}
}
