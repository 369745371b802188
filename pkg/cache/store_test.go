package cache

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

// stores runs a test against every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	mem := NewInMemoryStore(time.Minute)
	bdg, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = mem.Close()
		_ = bdg.Close()
	})
	return map[string]Store{"memory": mem, "badger": bdg}
}

func TestStore_GetSetDelete(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got, err := store.Get("missing"); err != nil || got != nil {
				t.Errorf("Get(missing) = %v, %v; want nil, nil", got, err)
			}

			if err := store.Set("k", []byte("vector"), time.Hour); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := store.Get("k")
			if err != nil || !bytes.Equal(got, []byte("vector")) {
				t.Errorf("Get(k) = %q, %v", got, err)
			}

			if err := store.Delete("k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if got, _ := store.Get("k"); got != nil {
				t.Errorf("Get after Delete = %q, want nil", got)
			}
		})
	}
}

func TestStore_NoExpiry(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if err := store.Set("forever", []byte{1}, 0); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got, _ := store.Get("forever"); !bytes.Equal(got, []byte{1}) {
				t.Errorf("Get() = %v, want [1]", got)
			}
		})
	}
}

func TestInMemoryStore_TTLExpiration(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(time.Hour)
	defer store.Close()

	_ = store.Set("short", []byte("x"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if got, _ := store.Get("short"); got != nil {
		t.Errorf("Get() after expiry = %q, want nil", got)
	}

	store.cleanup()
	if n := store.Len(); n != 0 {
		t.Errorf("Len() after cleanup = %d, want 0", n)
	}
}

func TestInMemoryStore_Copies(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(0)
	defer store.Close()

	value := []byte("abc")
	_ = store.Set("k", value, time.Hour)
	value[0] = 'z'

	got, _ := store.Get("k")
	if string(got) != "abc" {
		t.Errorf("stored value changed with caller slice: %q", got)
	}
	got[1] = 'z'
	again, _ := store.Get("k")
	if string(again) != "abc" {
		t.Errorf("stored value changed through returned slice: %q", again)
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(time.Millisecond)
	defer store.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%5))
			_ = store.Set(key, []byte{byte(i)}, time.Minute)
			_, _ = store.Get(key)
			if i%7 == 0 {
				_ = store.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestBadgerStore_Persistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	if err := store.Set("k", []byte("kept"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if got, _ := reopened.Get("k"); string(got) != "kept" {
		t.Errorf("Get() after reopen = %q, want kept", got)
	}
}
