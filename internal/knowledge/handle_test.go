package knowledge

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tewou-sn/tewou/internal/log"
)

func TestHandleLoadsExactlyOnce(t *testing.T) {
	var opens atomic.Int32
	sentinel := &Store{}

	h := NewHandle(func() (*Store, error) {
		opens.Add(1)
		return sentinel, nil
	}, log.NewNop())

	first, ok := h.Get()
	if !ok || first != sentinel {
		t.Fatalf("first Get() = (%p, %v), want sentinel", first, ok)
	}

	second, ok := h.Get()
	if !ok || second != first {
		t.Fatalf("second Get() returned a different store")
	}

	if n := opens.Load(); n != 1 {
		t.Errorf("opener ran %d times, want exactly 1", n)
	}
}

func TestHandleConcurrentFirstCallers(t *testing.T) {
	var opens atomic.Int32
	sentinel := &Store{}

	h := NewHandle(func() (*Store, error) {
		opens.Add(1)
		return sentinel, nil
	}, log.NewNop())

	const goroutines = 16
	var wg sync.WaitGroup
	stores := make([]*Store, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, ok := h.Get()
			if !ok {
				t.Error("Get() reported unavailable")
			}
			stores[i] = s
		}()
	}
	wg.Wait()

	if n := opens.Load(); n != 1 {
		t.Fatalf("opener ran %d times under concurrent first callers, want 1", n)
	}
	for i, s := range stores {
		if s != sentinel {
			t.Errorf("goroutine %d got a different store", i)
		}
	}
}

func TestHandleCachesUnavailability(t *testing.T) {
	var opens atomic.Int32

	h := NewHandle(func() (*Store, error) {
		opens.Add(1)
		return nil, &UnavailableError{Reason: "missing"}
	}, log.NewNop())

	if _, ok := h.Get(); ok {
		t.Fatal("Get() = ok for an unavailable index")
	}
	if _, ok := h.Get(); ok {
		t.Fatal("second Get() = ok for an unavailable index")
	}
	if n := opens.Load(); n != 1 {
		t.Errorf("opener ran %d times, want 1 (failure must be cached)", n)
	}
}

func TestHandleReset(t *testing.T) {
	var opens atomic.Int32
	sentinel := &Store{}

	h := NewHandle(func() (*Store, error) {
		opens.Add(1)
		return sentinel, nil
	}, log.NewNop())

	h.Get()
	h.Reset()
	h.Get()

	if n := opens.Load(); n != 2 {
		t.Errorf("opener ran %d times after Reset, want 2", n)
	}
}

func TestDirOpenerMissingDirectory(t *testing.T) {
	open := DirOpener(t.TempDir()+"/does-not-exist", nil, log.NewNop())

	_, err := open()
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("open() error = %v, want *UnavailableError", err)
	}
}
