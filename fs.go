package unixfs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lab9fs/unixfs/internal/metrics"
)

// FS is a mounted filesystem: the composition of every layer in §2 over one
// backing Disk. It is the core package's single entry point -- analogous to
// the teacher's *Superblock, which plays the same "one object per mounted
// image" role for squashfs.
type FS struct {
	dev    Disk
	sb     *Superblock
	cache  *bufCache
	log    *logState
	icache *inodeCache
	alloc  *allocator
	log2   *slog.Logger
	mtr    *metrics.Registry

	// cwd is the single current-working-directory reference this library
	// tracks on the caller's behalf, standing in for the per-process cwd
	// field spec §4.6/§4.8 resolves paths and chdir against -- this
	// library has one logical "process", not a table of them (§1
	// non-goals).
	cwdMu sync.Mutex
	cwd   *Inode
}

// Option configures Mount, following the teacher's `type Option func(sb
// *Superblock) error` pattern (options.go), generalized from *Superblock to
// *mountConfig since Mount now has several independently-sized caches to
// configure instead of squashfs's single inode-offset knob.
type Option func(*mountConfig)

type mountConfig struct {
	nbuf    int
	ninode  int
	logger  *slog.Logger
	metrics *metrics.Registry
}

// WithBufCount overrides the default buffer-cache pool size (NBuf).
func WithBufCount(n int) Option { return func(c *mountConfig) { c.nbuf = n } }

// WithInodeCacheSize overrides the default in-memory inode cache size (NInode).
func WithInodeCacheSize(n int) Option { return func(c *mountConfig) { c.ninode = n } }

// WithLogger attaches a structured logger; nil-safe callers may skip this
// and get slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *mountConfig) { c.logger = l } }

// WithMetrics attaches a metrics.Registry; callers may skip this and get a
// private registry labelled "unnamed" whose collectors still count.
func WithMetrics(m *metrics.Registry) Option { return func(c *mountConfig) { c.metrics = m } }

// Mount reads the superblock, recovers any in-flight log transaction, and
// returns a ready-to-use FS -- the fsinit(dev) of §6's service boundary.
func Mount(dev Disk, opts ...Option) (*FS, error) {
	cfg := mountConfig{nbuf: DefaultNBuf, ninode: DefaultNInode}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = metrics.New("unnamed")
	}

	sb, err := readSuperblock(dev)
	if err != nil {
		return nil, err
	}

	cache := newBufCache(dev, cfg.nbuf, cfg.metrics.Cache)
	logStart := sb.LogStart
	logSz := sb.NLog - 1 // NLog counts the header block too
	lg := newLogState(RootDev, logStart, logSz, cache, dev, cfg.metrics.Log)
	if err := lg.recover(); err != nil {
		return nil, fmt.Errorf("unixfs: log recovery: %w", err)
	}

	dataStart := sb.Size - sb.NBlocks
	alloc := newAllocator(RootDev, sb.BitmapStart, dataStart, sb.NBlocks, cache, lg, cfg.metrics.Allocator)
	if free, err := alloc.FreeCount(); err == nil {
		cfg.metrics.Allocator.FreeBlocks.Set(float64(free))
	}

	fs := &FS{
		dev:    dev,
		sb:     sb,
		cache:  cache,
		log:    lg,
		icache: newInodeCache(cfg.ninode),
		alloc:  alloc,
		log2:   cfg.logger,
		mtr:    cfg.metrics,
	}
	fs.cwd = fs.iget(RootIno)

	cfg.logger.Info("unixfs: mounted", "blocks", sb.Size, "data_blocks", sb.NBlocks, "inodes", sb.NInodes)
	return fs, nil
}

// BeginOp/EndOp/LogWrite/Bread/Bwrite/Brelse/Bpin/Bunpin below implement the
// §6 service boundary directly atop the layers FS composes.

func (fs *FS) BeginOp()                       { fs.log.BeginOp() }
func (fs *FS) EndOp()                          { fs.log.EndOp() }
func (fs *FS) LogWrite(b *Buf)                 { fs.log.LogWrite(b) }
func (fs *FS) Bread(bno uint32) (*Buf, error)  { return fs.cache.Bread(RootDev, bno) }
func (fs *FS) Bwrite(b *Buf) error             { return fs.cache.Bwrite(b) }
func (fs *FS) Brelse(b *Buf)                   { fs.cache.Brelse(b) }
func (fs *FS) Bpin(b *Buf)                     { fs.cache.Bpin(b) }
func (fs *FS) Bunpin(b *Buf)                   { fs.cache.Bunpin(b) }

// Superblock returns the (read-only) mounted superblock.
func (fs *FS) Superblock() Superblock { return *fs.sb }
