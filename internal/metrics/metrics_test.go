package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewTracksAllocatorCounters(t *testing.T) {
	r := New("test-image")

	r.Allocator.Allocs.Inc()
	r.Allocator.Allocs.Inc()
	r.Allocator.FreeBlocks.Set(12)

	if got := testutil.ToFloat64(r.Allocator.Allocs); got != 2 {
		t.Fatalf("alloc_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.Allocator.FreeBlocks); got != 12 {
		t.Fatalf("alloc_free_blocks = %v, want 12", got)
	}
}

func TestTwoRegistriesDontCollideOnLabel(t *testing.T) {
	a := New("image-a")
	b := New("image-b")

	a.Log.Commits.Inc()
	if got := testutil.ToFloat64(b.Log.Commits); got != 0 {
		t.Fatalf("image-b commits = %v, want 0 (separate registries)", got)
	}

	if _, err := a.Gatherer().Gather(); err != nil {
		t.Fatalf("Gather: %v", err)
	}
}
