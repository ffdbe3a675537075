package externs

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestRegistryLoad(t *testing.T) {
	r, err := FromTables(map[string]map[string]uint64{
		"libc": {"puts": 1, "abs": 2},
		"libm": {"sqrt": 10},
	})
	if err != nil {
		t.Fatalf("FromTables: %v", err)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 symbols, got %d", r.Len())
	}
	if got := r.Libraries(); !slices.Equal(got, []string{"libc", "libm"}) {
		t.Errorf("libraries = %v", got)
	}

	h, err := r.Load("libm", "sqrt")
	if err != nil || h != 10 {
		t.Fatalf("Load(libm, sqrt) = %d, %v", h, err)
	}
	if _, err := r.Load("libz", "inflate"); !errors.Is(err, ErrUnknownLibrary) {
		t.Errorf("unknown library: got %v", err)
	}
	if _, err := r.Load("libc", "printf"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("unknown symbol: got %v", err)
	}

	reqs := r.Requests()
	if len(reqs) != 3 || reqs[0].Handle != 10 || reqs[2].Err == nil {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestRegistryAddRejectsConflicts(t *testing.T) {
	r := NewRegistry()
	if err := r.Add("libc", "puts", 0); err == nil {
		t.Error("handle 0 must be rejected")
	}
	if err := r.Add("libc", "puts", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add("libc", "puts", 1); err != nil {
		t.Errorf("re-adding the same handle: %v", err)
	}
	if err := r.Add("libc", "puts", 2); err == nil {
		t.Error("conflicting handle must be rejected")
	}
}

func TestRegistryConcurrentLoad(t *testing.T) {
	r := NewRegistry()
	if err := r.Add("lib", "f", 7); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := r.Load("lib", "f"); err != nil || h != 7 {
				t.Errorf("Load = %d, %v", h, err)
			}
		}()
	}
	wg.Wait()
	if n := len(r.Requests()); n != 8 {
		t.Errorf("expected 8 requests, got %d", n)
	}
}
