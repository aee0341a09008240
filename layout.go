package unixfs

// On-disk and in-memory layout constants. Mirrors the constants xv6-style
// kernels hardcode in param.h/fs.h; collected here instead of scattered
// across files since every layer below depends on them.
const (
	// BSIZE is the fixed disk block size in bytes.
	BSIZE = 1024

	// NDIRECT is the number of direct block pointers in a disk inode.
	NDIRECT = 11
	// NINDIRECT is the number of block pointers that fit in one indirect block.
	NINDIRECT = BSIZE / 4
	// MAXFILE is the largest file size in blocks: direct + single-indirect + double-indirect.
	MAXFILE = NDIRECT + NINDIRECT + NINDIRECT*NINDIRECT

	// DIRSIZ is the maximum length of one path element / directory entry name.
	DIRSIZ = 14

	// RootDev is the only device this filesystem ever addresses (single-device, §1 non-goals).
	RootDev = 0
	// RootIno is the inode number of the root directory.
	RootIno = 1

	// MaxOpBlocks bounds the number of distinct blocks one composite operation may log.
	MaxOpBlocks = 10
	// MaxConcurrentOps bounds how many operations a single commit may batch.
	MaxConcurrentOps = 3
	// LogSize is the usable log data-block capacity; must be >= MaxOpBlocks*MaxConcurrentOps.
	LogSize = MaxOpBlocks * MaxConcurrentOps

	// DefaultNBuf is the default buffer cache pool size.
	DefaultNBuf = 30
	// NBucket is the number of buffer-cache hash buckets (prime, per §4.1).
	NBucket = 13
	// DefaultNInode is the default in-memory inode cache size.
	DefaultNInode = 50

	// MaxSymlinkDepth bounds symlink chase recursion (§4.7, invariant 9).
	MaxSymlinkDepth = 10

	// SuperblockBlock is the fixed block number of the superblock.
	SuperblockBlock = 1
	// SuperblockMagic identifies a valid on-disk image (§6).
	SuperblockMagic = 0x10203040
)
