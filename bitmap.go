package unixfs

import (
	"sync"

	"github.com/lab9fs/unixfs/internal/metrics"
)

// BPB is the number of allocation bits a single bitmap block holds.
const BPB = BSIZE * 8

// allocator implements the bitmap block allocator of §4.3: one bit per data
// block, bit=0 free, bit=1 allocated, scanned in BPB-sized chunks. First-fit
// by block number, no hint cache -- determinism over locality, per spec.
type allocator struct {
	mu        sync.Mutex // serializes scans so two concurrent balloc calls don't race on the same bit
	dev       int
	start     uint32 // first bitmap block
	dataStart uint32 // first absolute disk block the bitmap describes (bit 0 == dataStart)
	nblocks   uint32 // total data blocks covered by the bitmap
	cache     *bufCache
	log       *logState
	metrics   *metrics.Allocator
}

func newAllocator(dev int, start, dataStart, nblocks uint32, cache *bufCache, log *logState, m *metrics.Allocator) *allocator {
	return &allocator{dev: dev, start: start, dataStart: dataStart, nblocks: nblocks, cache: cache, log: log, metrics: m}
}

// Balloc finds the first free data block, marks it allocated, zeroes it on
// disk, and returns its block number -- all inside the caller's current
// transaction. Returns (0, ErrNoSpace) when the device is full: per §4.3/§7
// this is a recoverable condition, not fatal.
func (a *allocator) Balloc() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for base := uint32(0); base < a.nblocks; base += BPB {
		bmBlock := a.start + base/BPB
		b, err := a.cache.Bread(a.dev, bmBlock)
		if err != nil {
			return 0, err
		}

		limit := BPB
		if remain := a.nblocks - base; remain < BPB {
			limit = int(remain)
		}

		for bi := 0; bi < limit; bi++ {
			byteIdx := bi / 8
			bit := uint(bi % 8)
			mask := byte(1) << bit
			if b.data[byteIdx]&mask != 0 {
				continue
			}
			b.data[byteIdx] |= mask
			a.log.LogWrite(b)
			a.cache.Brelse(b)

			bno := a.dataStart + base + uint32(bi)
			if err := a.zero(bno); err != nil {
				return 0, err
			}
			if a.metrics != nil {
				a.metrics.Allocs.Inc()
				a.metrics.FreeBlocks.Dec()
			}
			return bno, nil
		}
		a.cache.Brelse(b)
	}
	return 0, ErrNoSpace
}

// Bfree clears bno's allocation bit. Freeing an already-free block is a
// fatal programming error (§4.3, §7): it almost always means a double-free
// of the same block through two different code paths.
func (a *allocator) Bfree(bno uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rel := bno - a.dataStart
	bmBlock := a.start + rel/BPB
	bi := int(rel % BPB)
	byteIdx := bi / 8
	mask := byte(1) << uint(bi%8)

	b, err := a.cache.Bread(a.dev, bmBlock)
	if err != nil {
		fatalf(FatalDoubleFree, "bfree: cannot read bitmap block for %d: %v", bno, err)
	}
	if b.data[byteIdx]&mask == 0 {
		a.cache.Brelse(b)
		fatalf(FatalDoubleFree, "block %d already free", bno)
	}
	b.data[byteIdx] &^= mask
	a.log.LogWrite(b)
	a.cache.Brelse(b)
	if a.metrics != nil {
		a.metrics.Frees.Inc()
		a.metrics.FreeBlocks.Inc()
	}
}

// zero writes a block of zeroes to bno inside the current transaction,
// satisfying the "bitmap allocator never returns a block it has not just
// zeroed" invariant (§3 Non-goals: no holes inside allocated blocks).
func (a *allocator) zero(bno uint32) error {
	b, err := a.cache.Bread(a.dev, bno)
	if err != nil {
		return err
	}
	b.data = Block{}
	a.log.LogWrite(b)
	a.cache.Brelse(b)
	return nil
}

// FreeCount scans the bitmap and returns how many data blocks are currently
// unallocated. Used by fsck and by the initial metrics gauge seed; O(n) so
// not on any hot path.
func (a *allocator) FreeCount() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var free uint32
	for base := uint32(0); base < a.nblocks; base += BPB {
		bmBlock := a.start + base/BPB
		b, err := a.cache.Bread(a.dev, bmBlock)
		if err != nil {
			return 0, err
		}
		limit := BPB
		if remain := a.nblocks - base; remain < BPB {
			limit = int(remain)
		}
		for bi := 0; bi < limit; bi++ {
			byteIdx := bi / 8
			mask := byte(1) << uint(bi%8)
			if b.data[byteIdx]&mask == 0 {
				free++
			}
		}
		a.cache.Brelse(b)
	}
	return free, nil
}
