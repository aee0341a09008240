package unixfs

import (
	"sync"

	"github.com/lab9fs/unixfs/internal/metrics"
)

// logHeader is the on-disk log header (§6): int32 n, followed by
// int32 block[LogSize]. It occupies the first block of the log region;
// the remaining LogSize blocks hold the logged data.
type logHeader struct {
	N     int32
	Block [LogSize]int32
}

// logState implements the group-commit redo log of §4.2. One logState is
// shared by every concurrent BeginOp/EndOp caller; commit() runs alone,
// only once outstanding has drained to zero.
//
// Design notes #9 calls for "a single log state object plus one condition
// variable" in place of the source's raw sleep/wakeup pairs -- that is
// exactly this struct plus sync.Cond.
type logState struct {
	mu        sync.Mutex
	cond      *sync.Cond
	dev       int
	start     uint32 // first block of the log region (header block)
	size      uint32 // LogSize
	outstanding int
	committing  bool
	header      logHeader

	cache   *bufCache
	disk    Disk
	metrics *metrics.Log
}

func newLogState(dev int, start, size uint32, cache *bufCache, disk Disk, m *metrics.Log) *logState {
	l := &logState{dev: dev, start: start, size: size, cache: cache, disk: disk, metrics: m}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// recover replays a non-empty on-disk log at boot, per §4.2. It must run
// before any BeginOp is admitted.
func (l *logState) recover() error {
	hdr, err := l.readHeaderFromDisk()
	if err != nil {
		return err
	}
	if hdr.N > 0 {
		for i := int32(0); i < hdr.N; i++ {
			logBlk, err := l.disk.Read(l.start + 1 + uint32(i))
			if err != nil {
				return err
			}
			if err := l.disk.Write(uint32(hdr.Block[i]), logBlk); err != nil {
				return err
			}
		}
	}
	l.header = logHeader{}
	return l.writeHeaderToDisk(&l.header)
}

// BeginOp admits one operation into the current (or next) transaction,
// blocking while a commit is in progress or while admitting this op could
// overrun the log (§4.2).
func (l *logState) BeginOp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		if l.committing {
			l.cond.Wait()
			continue
		}
		if int(l.header.N)+(l.outstanding+1)*MaxOpBlocks > int(l.size) {
			l.cond.Wait()
			continue
		}
		break
	}
	l.outstanding++
}

// LogWrite records that b has been modified and must be installed on
// commit, absorbing repeated writes to the same block within one
// transaction (§8 property / scenario S6). Must be called with b already
// written-to and still locked by the caller, and only while inside an op.
func (l *logState) LogWrite(b *Buf) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.outstanding < 1 {
		fatal(FatalLogNotInTransaction, "log_write called with no outstanding operation")
	}

	for i := int32(0); i < l.header.N; i++ {
		if uint32(l.header.Block[i]) == b.blockno {
			if l.metrics != nil {
				l.metrics.AbsorbedWrite.Inc()
			}
			return // absorption: already logged this transaction
		}
	}
	if l.header.N >= int32(l.size) {
		fatal(FatalLogOverflow, "transaction exceeded LogSize entries")
	}
	l.header.Block[l.header.N] = int32(b.blockno)
	l.header.N++
	l.cache.Bpin(b)
	if l.metrics != nil {
		l.metrics.LoggedBlocks.Inc()
	}
}

// EndOp retires one operation. If it was the last outstanding operation, it
// performs the group commit (outside the log lock, since commit may block
// on disk I/O -- §4.2's "end_op must never be called while holding a
// spin-lock" is honored by dropping l.mu before calling commit()).
func (l *logState) EndOp() {
	l.mu.Lock()
	l.outstanding--
	doCommit := false
	if l.outstanding < 0 {
		l.mu.Unlock()
		fatalf(FatalRefUnderflow, "EndOp called with no outstanding operation")
	}
	if l.outstanding == 0 {
		l.committing = true
		doCommit = true
	} else {
		l.cond.Broadcast()
	}
	l.mu.Unlock()

	if doCommit {
		l.commit()
		l.mu.Lock()
		l.committing = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// commit implements §4.2's five-step group commit: copy logged buffers into
// the log region, write the header (the commit point), install each block
// into its home location, then erase the transaction by zeroing the header.
func (l *logState) commit() {
	l.mu.Lock()
	n := l.header.N
	blocks := make([]uint32, n)
	for i := int32(0); i < n; i++ {
		blocks[i] = uint32(l.header.Block[i])
	}
	hdr := l.header
	l.mu.Unlock()

	if n == 0 {
		return
	}

	// 1. copy each buffer's data into its log slot.
	for i, bno := range blocks {
		b := l.cache.lookupPinned(l.dev, bno)
		if b == nil {
			fatalf(FatalBufNotLocked, "commit: block %d not pinned in cache", bno)
		}
		if err := l.disk.Write(l.start+1+uint32(i), &b.data); err != nil {
			fatalf(FatalBufNotLocked, "commit: writing log slot for block %d: %v", bno, err)
		}
	}

	// 2. the commit point: write the header with its final n and block list.
	if err := l.writeHeaderToDisk(&hdr); err != nil {
		fatalf(FatalCorruptSuperblock, "commit: writing log header: %v", err)
	}
	if l.metrics != nil {
		l.metrics.Commits.Inc()
	}

	// 3. install: copy each logged buffer into its home location.
	for _, bno := range blocks {
		b := l.cache.lookupPinned(l.dev, bno)
		if err := l.disk.Write(bno, &b.data); err != nil {
			fatalf(FatalBufNotLocked, "commit: installing block %d: %v", bno, err)
		}
		l.cache.Bunpin(b)
	}

	// 4. erase the transaction.
	l.mu.Lock()
	l.header = logHeader{}
	l.mu.Unlock()
	if err := l.writeHeaderToDisk(&logHeader{}); err != nil {
		fatalf(FatalCorruptSuperblock, "commit: erasing log header: %v", err)
	}
}

func (l *logState) readHeaderFromDisk() (*logHeader, error) {
	blk, err := l.disk.Read(l.start)
	if err != nil {
		return nil, err
	}
	return decodeLogHeader(blk), nil
}

func (l *logState) writeHeaderToDisk(hdr *logHeader) error {
	var blk Block
	encodeLogHeader(hdr, &blk)
	return l.disk.Write(l.start, &blk)
}

func decodeLogHeader(blk *Block) *logHeader {
	hdr := &logHeader{}
	hdr.N = int32(leUint32(blk[0:4]))
	for i := 0; i < LogSize; i++ {
		off := 4 + i*4
		hdr.Block[i] = int32(leUint32(blk[off : off+4]))
	}
	return hdr
}

func encodeLogHeader(hdr *logHeader, blk *Block) {
	putLeUint32(blk[0:4], uint32(hdr.N))
	for i := 0; i < LogSize; i++ {
		off := 4 + i*4
		putLeUint32(blk[off:off+4], uint32(hdr.Block[i]))
	}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
