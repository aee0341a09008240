package unixfs

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Block is one fixed-size disk block.
type Block [BSIZE]byte

// Disk is the block-device collaborator spec §1/§6 calls disk_rw(block,
// write?): a fixed-block-size, synchronous, single-device store. The core
// never assumes anything about the backing medium beyond this contract.
type Disk interface {
	Read(bno uint32) (*Block, error)
	Write(bno uint32, data *Block) error
}

// FileDisk backs Disk with a regular file, using golang.org/x/sys/unix
// Pread/Pwrite directly rather than *os.File.ReadAt/WriteAt+Seek so
// concurrent callers never race on a shared file offset, and unix.Flock to
// enforce the single-writer, single-device invariant (§1 non-goals:
// multi-device support is not attempted, so a second process opening the
// same image is a configuration error, not something to arbitrate).
type FileDisk struct {
	mu   sync.Mutex // serializes pread/pwrite pairs issuing from multiple goroutines onto one fd
	f    *os.File
	size int64
}

// OpenFileDisk opens path as a block device image, taking an exclusive flock.
func OpenFileDisk(path string) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("unixfs: open image: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("unixfs: image %s is locked by another process: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileDisk{f: f, size: st.Size()}, nil
}

// CreateFileDisk creates (or truncates) path to hold nblocks zeroed blocks,
// for use by the formatter.
func CreateFileDisk(path string, nblocks uint32) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("unixfs: create image: %w", err)
	}
	size := int64(nblocks) * BSIZE
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("unixfs: lock new image: %w", err)
	}
	return &FileDisk{f: f, size: size}, nil
}

func (d *FileDisk) Read(bno uint32) (*Block, error) {
	var blk Block
	off := int64(bno) * BSIZE
	d.mu.Lock()
	n, err := unix.Pread(int(d.f.Fd()), blk[:], off)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("unixfs: pread block %d: %w", bno, err)
	}
	if n != BSIZE {
		return nil, fmt.Errorf("unixfs: short read of block %d: got %d bytes", bno, n)
	}
	return &blk, nil
}

func (d *FileDisk) Write(bno uint32, data *Block) error {
	off := int64(bno) * BSIZE
	d.mu.Lock()
	n, err := unix.Pwrite(int(d.f.Fd()), data[:], off)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("unixfs: pwrite block %d: %w", bno, err)
	}
	if n != BSIZE {
		return fmt.Errorf("unixfs: short write of block %d: wrote %d bytes", bno, n)
	}
	return nil
}

// Sync flushes pending writes to stable storage.
func (d *FileDisk) Sync() error {
	return unix.Fsync(int(d.f.Fd()))
}

// Close releases the flock and the underlying file descriptor.
func (d *FileDisk) Close() error {
	unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
	return d.f.Close()
}

// NBlocks returns the capacity of the backing image, in blocks.
func (d *FileDisk) NBlocks() uint32 {
	return uint32(d.size / BSIZE)
}

// MemDisk is an in-memory Disk, used by tests that exercise crash/recovery
// scenarios without touching the filesystem (it can simulate a crash by
// simply discarding in-flight writes — see WriteFails).
type MemDisk struct {
	mu     sync.Mutex
	blocks [][BSIZE]byte

	// WriteFails, when >= 0, causes Write to fail starting at the
	// WriteFails'th call to Write (0-indexed) -- used to simulate a crash mid-transaction.
	WriteFails   int
	writeCount   int
	writeFailErr error
}

// NewMemDisk allocates a zeroed in-memory disk of nblocks blocks.
func NewMemDisk(nblocks uint32) *MemDisk {
	return &MemDisk{blocks: make([][BSIZE]byte, nblocks), WriteFails: -1}
}

func (d *MemDisk) Read(bno uint32) (*Block, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(bno) >= len(d.blocks) {
		return nil, fmt.Errorf("unixfs: read block %d out of range (%d blocks)", bno, len(d.blocks))
	}
	var blk Block
	blk = Block(d.blocks[bno])
	return &blk, nil
}

func (d *MemDisk) Write(bno uint32, data *Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteFails >= 0 && d.writeCount >= d.WriteFails {
		d.writeCount++
		if d.writeFailErr != nil {
			return d.writeFailErr
		}
		return fmt.Errorf("unixfs: simulated crash on write %d", d.writeCount)
	}
	d.writeCount++
	if int(bno) >= len(d.blocks) {
		return fmt.Errorf("unixfs: write block %d out of range (%d blocks)", bno, len(d.blocks))
	}
	d.blocks[bno] = [BSIZE]byte(*data)
	return nil
}

// Snapshot returns an independent copy of the disk's current contents, for
// simulating "kill the machine, restart with whatever made it to disk".
func (d *MemDisk) Snapshot() *MemDisk {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([][BSIZE]byte, len(d.blocks))
	copy(cp, d.blocks)
	return &MemDisk{blocks: cp, WriteFails: -1}
}

// NBlocks returns the capacity of the in-memory disk, in blocks.
func (d *MemDisk) NBlocks() uint32 {
	return uint32(len(d.blocks))
}
