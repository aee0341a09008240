package unixfs

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lab9fs/unixfs/internal/metrics"
)

// Buf is one cached disk block (spec §3 "Buffer", §4.1). The teacher's
// tableReader (tablereader.go) read one block at a time straight off
// io.ReaderAt with a "TODO add buf cache to allow multiple accesses to same
// block without re-reading" -- this is that cache, generalized to a
// writable, lockable, LRU-evicted pool shared by every caller.
//
// Buf.mu *is* the per-buffer sleep-lock described in §4.1/§5: acquiring it
// confers exclusive access to Data. Brelse on a buffer whose lock is not
// held (e.g. a double brelse) hits sync.Mutex's unlock-of-unlocked-mutex
// check, an unrecoverable runtime fatal error; Bwrite checks the lock
// itself and panics with FatalBufNotLocked. Go mutexes have no owner, so a
// release or write from a goroutine other than the lock holder is not
// detected.
type Buf struct {
	mu sync.Mutex

	dev     int
	blockno uint32
	data    Block
	valid   bool

	// refcnt and lastUse are protected by the bucket lock that currently
	// owns this buffer (bucket.mu), never by mu.
	refcnt  int32
	lastUse uint64

	next *Buf // hash-chain link within its bucket
}

// Dev returns the device identifier this buffer belongs to.
func (b *Buf) Dev() int { return b.dev }

// Blockno returns the disk block number this buffer caches.
func (b *Buf) Blockno() uint32 { return b.blockno }

// Data returns the buffer's mutable block contents. Callers must hold the
// buffer's lock (i.e. have it from Bread/Bget and not yet have called
// Brelse) to read or write it safely.
func (b *Buf) Data() *Block { return &b.data }

type bucket struct {
	mu   sync.Mutex
	head *Buf
}

// bufCache implements spec §4.1: NBuf buffers sharded into NBucket hash
// buckets, each independently locked, with whole-table locking only on the
// (rarer) cache-miss path that needs to relocate a buffer between buckets.
type bufCache struct {
	dev     Disk
	buckets [NBucket]bucket
	all     []*Buf
	tick    uint64 // atomic monotonic counter stamped into lastUse
	metrics *metrics.Cache
}

func newBufCache(dev Disk, nbuf int, m *metrics.Cache) *bufCache {
	c := &bufCache{dev: dev, metrics: m}
	c.all = make([]*Buf, nbuf)
	for i := range c.all {
		c.all[i] = &Buf{}
	}
	return c
}

func bucketIndex(bno uint32) int {
	return int(bno % NBucket)
}

// bget implements the lookup path of §4.1: bucket-local hit, or a
// whole-table-locked miss path that performs global LRU eviction.
func (c *bufCache) bget(dev int, bno uint32) *Buf {
	idx := bucketIndex(bno)
	bk := &c.buckets[idx]

	bk.mu.Lock()
	for b := bk.head; b != nil; b = b.next {
		if b.dev == dev && b.blockno == bno {
			atomic.AddInt32(&b.refcnt, 1)
			bk.mu.Unlock()
			if c.metrics != nil {
				c.metrics.Hits.Inc()
			}
			b.mu.Lock()
			return b
		}
	}
	bk.mu.Unlock()

	// Miss: acquire every bucket lock, ascending index, to allow relocating
	// a buffer from whatever bucket currently holds it (global fence, §4.1
	// step 2). This pays a whole-table lock only on miss; hits above never
	// touch more than one bucket.
	for i := range c.buckets {
		c.buckets[i].mu.Lock()
	}
	// unlockAll releases every bucket lock in reverse order. Called
	// explicitly before taking any buffer's sleep-lock below (§4.1 step 4,
	// §5: a spin-lock may never be held while acquiring a sleep-lock), and
	// left as a deferred safety net only for the fatal/panic exit.
	unlocked := false
	unlockAll := func() {
		if unlocked {
			return
		}
		unlocked = true
		for i := len(c.buckets) - 1; i >= 0; i-- {
			c.buckets[i].mu.Unlock()
		}
	}
	defer unlockAll()

	// Re-check: another caller may have installed the entry while we were
	// acquiring the fence.
	for b := c.buckets[idx].head; b != nil; b = b.next {
		if b.dev == dev && b.blockno == bno {
			atomic.AddInt32(&b.refcnt, 1)
			if c.metrics != nil {
				c.metrics.Hits.Inc()
			}
			unlockAll()
			b.mu.Lock()
			return b
		}
	}

	// Global LRU: pick the buffer with refcnt==0 and the smallest lastUse
	// across the whole pool, regardless of which bucket currently holds it.
	var victim *Buf
	var victimBucket int
	evicting := false
	for bi := range c.buckets {
		for b := c.buckets[bi].head; b != nil; b = b.next {
			if atomic.LoadInt32(&b.refcnt) == 0 {
				if victim == nil || b.lastUse < victim.lastUse {
					victim = b
					victimBucket = bi
					evicting = true
				}
			}
		}
	}
	if victim == nil {
		// First-ever use: buffers start with no identity and no bucket
		// membership, so the very first allocations of each slot come from
		// c.all rather than the chains.
		for _, b := range c.all {
			if atomic.LoadInt32(&b.refcnt) == 0 && b.next == nil && !inAnyBucket(c, b) {
				victim = b
				break
			}
		}
	}
	if victim == nil {
		fatal(FatalNoBuffers, fmt.Sprintf("no buffers for dev=%d bno=%d", dev, bno))
	}

	if evicting {
		unlinkFromBucket(&c.buckets[victimBucket], victim)
		if c.metrics != nil {
			c.metrics.Evictions.Inc()
		}
	}

	victim.dev = dev
	victim.blockno = bno
	victim.valid = false
	victim.refcnt = 1
	victim.next = c.buckets[idx].head
	c.buckets[idx].head = victim
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}

	victim.mu.Lock()
	return victim
}

func inAnyBucket(c *bufCache, target *Buf) bool {
	for i := range c.buckets {
		for b := c.buckets[i].head; b != nil; b = b.next {
			if b == target {
				return true
			}
		}
	}
	return false
}

func unlinkFromBucket(bk *bucket, target *Buf) {
	if bk.head == target {
		bk.head = target.next
		target.next = nil
		return
	}
	for b := bk.head; b != nil; b = b.next {
		if b.next == target {
			b.next = target.next
			target.next = nil
			return
		}
	}
}

// Bread returns a locked buffer reflecting the on-disk contents of (dev,
// bno), reading from disk only if no cached copy was found valid.
func (c *bufCache) Bread(dev int, bno uint32) (*Buf, error) {
	b := c.bget(dev, bno)
	if !b.valid {
		blk, err := c.dev.Read(bno)
		if err != nil {
			b.mu.Unlock()
			c.dropRef(b)
			return nil, err
		}
		b.data = *blk
		b.valid = true
	}
	return b, nil
}

// Bwrite writes a locked buffer's contents to disk synchronously. Caller
// must hold b's lock (i.e. obtained it from Bread/bget and not yet Brelse'd
// it); if the lock is not held at all, Bwrite panics with FatalBufNotLocked.
func (c *bufCache) Bwrite(b *Buf) error {
	if b.mu.TryLock() {
		b.mu.Unlock()
		fatalf(FatalBufNotLocked, "bwrite of block %d without its lock", b.blockno)
	}
	if err := c.dev.Write(b.blockno, &b.data); err != nil {
		return err
	}
	b.valid = true
	return nil
}

// Brelse releases the buffer's lock and drops a reference; when the last
// reference drops, stamps lastUse for the LRU policy.
func (c *bufCache) Brelse(b *Buf) {
	b.mu.Unlock()
	c.dropRef(b)
}

func (c *bufCache) dropRef(b *Buf) {
	idx := bucketIndex(b.blockno)
	bk := &c.buckets[idx]
	bk.mu.Lock()
	n := atomic.AddInt32(&b.refcnt, -1)
	if n == 0 {
		b.lastUse = atomic.AddUint64(&c.tick, 1)
	}
	bk.mu.Unlock()
}

// Bpin keeps a buffer resident across operation boundaries without taking
// its sleep-lock -- used by the log manager to hold dirty buffers pinned
// between log_write and commit (§4.1, §4.2).
func (c *bufCache) Bpin(b *Buf) {
	idx := bucketIndex(b.blockno)
	bk := &c.buckets[idx]
	bk.mu.Lock()
	atomic.AddInt32(&b.refcnt, 1)
	bk.mu.Unlock()
}

// Bunpin is the inverse of Bpin.
func (c *bufCache) Bunpin(b *Buf) {
	idx := bucketIndex(b.blockno)
	bk := &c.buckets[idx]
	bk.mu.Lock()
	n := atomic.AddInt32(&b.refcnt, -1)
	if n == 0 {
		b.lastUse = atomic.AddUint64(&c.tick, 1)
	}
	bk.mu.Unlock()
}

// lookupPinned returns the cached buffer for (dev, bno) without acquiring
// its sleep-lock, for use only by the log's commit path, which is the sole
// writer by the time it runs (every admitted operation has already released
// its locks and called EndOp -- see log.go). It requires the buffer to
// already be present and pinned (refcnt >= 1).
func (c *bufCache) lookupPinned(dev int, bno uint32) *Buf {
	idx := bucketIndex(bno)
	bk := &c.buckets[idx]
	bk.mu.Lock()
	defer bk.mu.Unlock()
	for b := bk.head; b != nil; b = b.next {
		if b.dev == dev && b.blockno == bno {
			return b
		}
	}
	return nil
}

// snapshotLRUOrder is a test/diagnostic helper returning blocknos in
// increasing lastUse order across the whole cache (oldest first).
func (c *bufCache) snapshotLRUOrder() []uint32 {
	type ent struct {
		bno uint32
		lu  uint64
	}
	var all []ent
	for i := range c.buckets {
		c.buckets[i].mu.Lock()
		for b := c.buckets[i].head; b != nil; b = b.next {
			all = append(all, ent{b.blockno, b.lastUse})
		}
		c.buckets[i].mu.Unlock()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lu < all[j].lu })
	out := make([]uint32, len(all))
	for i, e := range all {
		out[i] = e.bno
	}
	return out
}
