package unixfs

import "testing"

func TestBallocZeroesAndMarksAllocated(t *testing.T) {
	fs := newTestFS(t, 2048)

	before, err := fs.alloc.FreeCount()
	if err != nil {
		t.Fatalf("FreeCount: %v", err)
	}

	fs.BeginOp()
	bno, err := fs.alloc.Balloc()
	fs.EndOp()
	if err != nil {
		t.Fatalf("Balloc: %v", err)
	}

	after, err := fs.alloc.FreeCount()
	if err != nil {
		t.Fatalf("FreeCount: %v", err)
	}
	if after != before-1 {
		t.Fatalf("free count = %d, want %d", after, before-1)
	}

	blk, err := fs.Bread(bno)
	if err != nil {
		t.Fatalf("Bread: %v", err)
	}
	for i, bv := range *blk.Data() {
		if bv != 0 {
			t.Fatalf("freshly allocated block not zeroed at byte %d", i)
		}
	}
	fs.Brelse(blk)

	fs.BeginOp()
	fs.alloc.Bfree(bno)
	fs.EndOp()

	restored, err := fs.alloc.FreeCount()
	if err != nil {
		t.Fatalf("FreeCount: %v", err)
	}
	if restored != before {
		t.Fatalf("free count after Bfree = %d, want %d", restored, before)
	}
}

func TestBfreeOfFreeBlockIsFatal(t *testing.T) {
	fs := newTestFS(t, 2048)

	fs.BeginOp()
	bno, err := fs.alloc.Balloc()
	fs.EndOp()
	if err != nil {
		t.Fatalf("Balloc: %v", err)
	}

	fs.BeginOp()
	fs.alloc.Bfree(bno)
	fs.EndOp()

	defer func() {
		r := recover()
		fe, ok := r.(*FatalError)
		if !ok {
			t.Fatalf("recovered value = %#v, want *FatalError", r)
		}
		if fe.Reason != FatalDoubleFree {
			t.Fatalf("reason = %v, want FatalDoubleFree", fe.Reason)
		}
	}()

	fs.BeginOp()
	defer fs.EndOp()
	fs.alloc.Bfree(bno)
}
