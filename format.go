package unixfs

import "fmt"

// FormatOption configures Format, generalizing the teacher's own
// WriterOption pattern (writer.go: WithBlockSize, WithCompression,
// WithModTime) from "choose a compressor" knobs to "choose a layout"
// knobs -- this formatter builds a fixed on-disk layout rather than a
// streamed archive, but the functional-options shape carries over
// directly.
type FormatOption func(*formatConfig)

type formatConfig struct {
	nlog   uint32
	ninode uint32
}

// WithLogBlocks overrides the default log region size (data blocks, not
// counting the header block).
func WithLogBlocks(n uint32) FormatOption { return func(c *formatConfig) { c.nlog = n } }

// WithInodeCount overrides the default number of on-disk inode slots.
func WithInodeCount(n uint32) FormatOption { return func(c *formatConfig) { c.ninode = n } }

// Format builds a fresh filesystem image on dev: a zeroed superblock
// region, a zeroed log, a zeroed inode table, a zeroed bitmap (it covers
// data blocks only) with just the root directory's data block marked
// allocated, and a root
// directory inode containing "." and "..". This is the "formatter"
// spec §3 says runs offline and whose output is read-only at runtime.
func Format(dev Disk, totalBlocks uint32, opts ...FormatOption) error {
	cfg := formatConfig{nlog: LogSize, ninode: 200}
	for _, o := range opts {
		o(&cfg)
	}

	logStart := uint32(SuperblockBlock + 1)
	logTotal := cfg.nlog + 1 // + header block
	inodeStart := logStart + logTotal
	ninodeBlocks := (cfg.ninode + uint32(IPB) - 1) / uint32(IPB)
	bitmapStart := inodeStart + ninodeBlocks

	// The bitmap only ever needs to describe blocks that could be data
	// blocks, i.e. at most totalBlocks of them; sizing it off totalBlocks
	// instead of the (not yet known) data-block count is a conservative
	// over-allocation of at most one bitmap block.
	nbitmapBlocks := (totalBlocks + BPB - 1) / BPB
	dataStart := bitmapStart + nbitmapBlocks
	if dataStart >= totalBlocks {
		return fmt.Errorf("unixfs: format: image too small for metadata (need >= %d blocks, have %d)", dataStart+1, totalBlocks)
	}
	nblocks := totalBlocks - dataStart

	if err := zeroRange(dev, 0, totalBlocks); err != nil {
		return err
	}

	sb := &Superblock{
		Magic:       SuperblockMagic,
		Size:        totalBlocks,
		NBlocks:     nblocks,
		NInodes:     cfg.ninode,
		NLog:        logTotal,
		LogStart:    logStart,
		InodeStart:  inodeStart,
		BitmapStart: bitmapStart,
	}
	if err := writeSuperblock(dev, sb); err != nil {
		return err
	}

	// Every bit is already 0 (free) from zeroRange: the bitmap only ever
	// describes blocks at or past dataStart, so metadata blocks need no
	// bit of their own. Only the root directory's own data block must be
	// marked allocated, which formatRoot does directly.
	return formatRoot(dev, sb, dataStart)
}

func zeroRange(dev Disk, from, to uint32) error {
	var blk Block
	for b := from; b < to; b++ {
		if err := dev.Write(b, &blk); err != nil {
			return err
		}
	}
	return nil
}

// formatRoot writes the root directory's dinode and its "." and ".."
// entries directly, bypassing the log (there is no mounted FS yet to
// bracket a transaction with).
func formatRoot(dev Disk, sb *Superblock, dataStart uint32) error {
	rootDataBlock := dataStart

	blk, err := dev.Read(rootDataBlock)
	if err != nil {
		return err
	}
	var raw [dirEntSize]byte
	dot := dirent{Inum: RootIno, Name: nameToDirent(".")}
	encodeDirent(&dot, raw[:])
	copy(blk[0:dirEntSize], raw[:])
	dotdot := dirent{Inum: RootIno, Name: nameToDirent("..")}
	encodeDirent(&dotdot, raw[:])
	copy(blk[dirEntSize:2*dirEntSize], raw[:])
	if err := dev.Write(rootDataBlock, blk); err != nil {
		return err
	}

	// mark the root's single data block allocated (bit 0 of the bitmap
	// corresponds to dataStart, not to absolute disk block 0)
	rel := rootDataBlock - dataStart
	bmBlock := sb.BitmapStart + rel/BPB
	bb, err := dev.Read(bmBlock)
	if err != nil {
		return err
	}
	bi := rel % BPB
	bb[bi/8] |= byte(1) << uint(bi%8)
	if err := dev.Write(bmBlock, bb); err != nil {
		return err
	}

	iblk, err := dev.Read(sb.IBlock(RootIno))
	if err != nil {
		return err
	}
	d := dinode{Type: TypeDir, Nlink: 2, Size: 2 * dirEntSize}
	d.Addrs[0] = rootDataBlock
	encodeDinode(&d, iblk, int(RootIno)%IPB)
	return dev.Write(sb.IBlock(RootIno), iblk)
}
