package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_ReadThrough(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	var calls int32
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "k", time.Minute, load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(v) != "v" {
			t.Fatalf("got %q", v)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	n := 0
	load := func(context.Context) ([]byte, error) {
		n++
		return []byte{byte(n)}, nil
	}

	_, _ = c.Get(context.Background(), "k", time.Minute, load)
	now = now.Add(59 * time.Second)
	_, _ = c.Get(context.Background(), "k", time.Minute, load)
	if n != 1 {
		t.Fatalf("entry expired early, loader called %d times", n)
	}
	now = now.Add(2 * time.Second)
	v, _ := c.Get(context.Background(), "k", time.Minute, load)
	if n != 2 || v[0] != 2 {
		t.Errorf("expected reload after expiry, n=%d v=%v", n, v)
	}
}

func TestMemory_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	boom := errors.New("boom")
	if _, err := c.Get(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("failed load must not be cached")
	}
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	load := func(context.Context) ([]byte, error) { return []byte("v"), nil }
	_, _ = c.Get(context.Background(), "a", time.Minute, load)
	_, _ = c.Get(context.Background(), "b", time.Minute, load)

	if err := c.Delete(context.Background(), "a", "missing"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemory_DeduplicatesInFlight(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	release := make(chan struct{})
	var calls int32
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "k", time.Minute, load)
		}()
	}
	// give the goroutines time to pile up behind the first loader
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	c := NewMemory()
	got, err := GetJSON(context.Background(), c, Key("tenant", "x"), time.Minute, func(context.Context) (payload, error) {
		return payload{Name: "water", Count: 2}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "water" || got.Count != 2 {
		t.Errorf("got %+v", got)
	}

	// second read is served from cache
	got, err = GetJSON(context.Background(), c, Key("tenant", "x"), time.Minute, func(context.Context) (payload, error) {
		return payload{}, errors.New("should not be called")
	})
	if err != nil || got.Name != "water" {
		t.Errorf("cached read = %+v, %v", got, err)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("snapshot", "t1", "2025-10-15"); got != "agenda:snapshot:t1:2025-10-15" {
		t.Errorf("Key() = %q", got)
	}
}

func TestMemory_DeleteDuringLoadDropsResult(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	ctx := context.Background()
	n := 0
	load := func(context.Context) ([]byte, error) {
		n++
		if n == 1 {
			// the value was read, then invalidated before it could be stored
			if err := c.Delete(ctx, "k"); err != nil {
				t.Errorf("Delete() = %v", err)
			}
			return []byte("stale"), nil
		}
		return []byte("fresh"), nil
	}

	v, err := c.Get(ctx, "k", time.Minute, load)
	if err != nil || string(v) != "stale" {
		t.Fatalf("first Get() = %q, %v; want the loaded value", v, err)
	}
	if c.Len() != 0 {
		t.Error("a load invalidated mid-flight must not be stored")
	}

	v, err = c.Get(ctx, "k", time.Minute, load)
	if err != nil || string(v) != "fresh" {
		t.Errorf("second Get() = %q, %v; want fresh", v, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.gens) != 0 || len(c.loading) != 0 {
		t.Errorf("load bookkeeping leaked: gens=%v loading=%v", c.gens, c.loading)
	}
}

func TestMemory_DeleteWithoutLoadKeepsNoGeneration(t *testing.T) {
	t.Parallel()

	c := NewMemory()
	if err := c.Delete(context.Background(), "a", "b"); err != nil {
		t.Fatal(err)
	}
	if len(c.gens) != 0 {
		t.Errorf("gens = %v, want empty", c.gens)
	}
}
