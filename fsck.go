package unixfs

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// fsck.go implements a read-only consistency walk over a mounted image,
// checking invariants 2 ("bitmap bit set iff the block is reachable from
// some live inode"), 3 ("every non-free inode has nlink >= 1"), and 4
// ("every directory's first two entries are '.' and '..', size a multiple
// of dirEntSize") from spec §8. It never repairs anything (repair is out
// of scope -- §1 non-goals); it only reports.
//
// Grounded on distr1-distri and hanwen-go-fuse's use of golang.org/x/sync:
// the inode table is fanned out one goroutine per shard via an
// errgroup.Group, bounded by a semaphore.Weighted sized to NBucket so the
// walk never holds more concurrent buffer-cache slots than the cache has
// buckets to give it.

// FsckViolation names one inconsistency found during the walk.
type FsckViolation struct {
	Inum   uint32
	Kind   string
	Detail string
}

// FsckReport summarizes one fsck run.
type FsckReport struct {
	InodesScanned uint32
	Violations    []FsckViolation
}

func (r *FsckReport) String() string {
	if len(r.Violations) == 0 {
		return fmt.Sprintf("fsck: clean (%d inodes scanned)", r.InodesScanned)
	}
	s := fmt.Sprintf("fsck: %d violation(s) across %d inodes:\n", len(r.Violations), r.InodesScanned)
	for _, v := range r.Violations {
		s += fmt.Sprintf("  inode %d: %s: %s\n", v.Inum, v.Kind, v.Detail)
	}
	return s
}

// Fsck walks every on-disk inode and the free-block bitmap, reporting
// violations of invariants 2-4 and 6 in spec §8. It takes no locks other
// than the ones Bread/BeginOp already take per access, so it is safe to
// run against a live-mounted FS, though results reflect a best-effort
// snapshot rather than a single atomic point in time.
func (fs *FS) Fsck(ctx context.Context) (*FsckReport, error) {
	const shardSize = 64
	ninodes := fs.sb.NInodes

	var mu sync.Mutex
	report := &FsckReport{}
	used := make(map[uint32]uint32) // block -> owning inum, for "double claim" detection

	sem := semaphore.NewWeighted(int64(NBucket))
	g, gctx := errgroup.WithContext(ctx)

	for shardStart := uint32(1); shardStart < ninodes; shardStart += shardSize {
		shardStart := shardStart
		shardEnd := shardStart + shardSize
		if shardEnd > ninodes {
			shardEnd = ninodes
		}

		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			var violations []FsckViolation
			var scanned uint32
			blocks := map[uint32][]uint32{} // inum -> blocks it claims, reported after the shard completes

			for inum := shardStart; inum < shardEnd; inum++ {
				fs.BeginOp()
				blk, err := fs.Bread(fs.sb.IBlock(inum))
				if err != nil {
					fs.EndOp()
					return err
				}
				d := decodeDinode(blk.Data(), int(inum)%IPB)
				fs.Brelse(blk)

				if d.Type == TypeFree {
					fs.EndOp()
					continue
				}
				scanned++

				if d.Nlink < 1 {
					violations = append(violations, FsckViolation{
						Inum: inum, Kind: "nlink", Detail: fmt.Sprintf("type %v has nlink %d, want >= 1", d.Type, d.Nlink),
					})
				}

				if d.Type == TypeDir {
					violations = append(violations, fs.fsckDir(inum, &d)...)
				}

				blocks[inum] = fs.fsckCollectBlocks(&d)
				fs.EndOp()
			}

			mu.Lock()
			report.InodesScanned += scanned
			report.Violations = append(report.Violations, violations...)
			for inum, bs := range blocks {
				for _, b := range bs {
					if owner, claimed := used[b]; claimed {
						report.Violations = append(report.Violations, FsckViolation{
							Inum: inum, Kind: "double-claim", Detail: fmt.Sprintf("block %d already claimed by inode %d", b, owner),
						})
						continue
					}
					used[b] = inum
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bitmapViolations, err := fs.fsckBitmap(used)
	if err != nil {
		return nil, err
	}
	report.Violations = append(report.Violations, bitmapViolations...)
	return report, nil
}

// fsckDir checks invariant 4: the first two entries are "." (self) and
// ".." (non-zero), and size is a multiple of dirEntSize.
func (fs *FS) fsckDir(inum uint32, d *dinode) []FsckViolation {
	var violations []FsckViolation
	if d.Size%dirEntSize != 0 {
		violations = append(violations, FsckViolation{
			Inum: inum, Kind: "dirsize", Detail: fmt.Sprintf("size %d is not a multiple of %d", d.Size, dirEntSize),
		})
	}
	if d.Size < 2*dirEntSize {
		violations = append(violations, FsckViolation{Inum: inum, Kind: "dirent", Detail: "missing . and .. entries"})
		return violations
	}

	first := d.Addrs[0]
	if first == 0 {
		violations = append(violations, FsckViolation{Inum: inum, Kind: "dirent", Detail: "first data block unallocated"})
		return violations
	}
	blk, err := fs.Bread(first)
	if err != nil {
		violations = append(violations, FsckViolation{Inum: inum, Kind: "dirent", Detail: err.Error()})
		return violations
	}
	defer fs.Brelse(blk)

	dot := decodeDirent(blk.Data()[0:dirEntSize])
	if direntName(dot.Name) != "." || uint32(dot.Inum) != inum {
		violations = append(violations, FsckViolation{Inum: inum, Kind: "dirent", Detail: "entry 0 is not '.' pointing at self"})
	}
	dotdot := decodeDirent(blk.Data()[dirEntSize : 2*dirEntSize])
	if direntName(dotdot.Name) != ".." || dotdot.Inum == 0 {
		violations = append(violations, FsckViolation{Inum: inum, Kind: "dirent", Detail: "entry 1 is not '..' with a valid inum"})
	}
	return violations
}

// fsckCollectBlocks returns every disk block number reachable from d:
// direct addrs, the single-indirect block and its targets, the
// double-indirect block and every block it reaches -- the same traversal
// itrunc performs to free blocks, but read-only here.
func (fs *FS) fsckCollectBlocks(d *dinode) []uint32 {
	var blocks []uint32
	for i := 0; i < NDIRECT; i++ {
		if d.Addrs[i] != 0 {
			blocks = append(blocks, d.Addrs[i])
		}
	}

	if ind := d.Addrs[NDIRECT]; ind != 0 {
		blocks = append(blocks, ind)
		blocks = append(blocks, fs.fsckIndirectTargets(ind)...)
	}

	if dind := d.Addrs[NDIRECT+1]; dind != 0 {
		blocks = append(blocks, dind)
		blk, err := fs.Bread(dind)
		if err == nil {
			for i := 0; i < NINDIRECT; i++ {
				off := i * 4
				first := leUint32(blk.Data()[off : off+4])
				if first != 0 {
					blocks = append(blocks, first)
					blocks = append(blocks, fs.fsckIndirectTargets(first)...)
				}
			}
			fs.Brelse(blk)
		}
	}
	return blocks
}

func (fs *FS) fsckIndirectTargets(indAddr uint32) []uint32 {
	var targets []uint32
	blk, err := fs.Bread(indAddr)
	if err != nil {
		return nil
	}
	defer fs.Brelse(blk)
	for i := 0; i < NINDIRECT; i++ {
		off := i * 4
		a := leUint32(blk.Data()[off : off+4])
		if a != 0 {
			targets = append(targets, a)
		}
	}
	return targets
}

// fsckBitmap checks invariant 2: every block claimed by some inode (used)
// has its bitmap bit set, and every block not claimed by any inode has its
// bitmap bit clear.
func (fs *FS) fsckBitmap(used map[uint32]uint32) ([]FsckViolation, error) {
	var violations []FsckViolation
	dataStart := fs.alloc.dataStart
	nblocks := fs.alloc.nblocks

	for base := uint32(0); base < nblocks; base += BPB {
		bmBlock := fs.alloc.start + base/BPB
		fs.BeginOp()
		b, err := fs.Bread(bmBlock)
		if err != nil {
			fs.EndOp()
			return nil, err
		}

		limit := BPB
		if remain := nblocks - base; remain < BPB {
			limit = int(remain)
		}
		for bi := 0; bi < limit; bi++ {
			bno := dataStart + base + uint32(bi)
			set := b.data[bi/8]&(byte(1)<<uint(bi%8)) != 0
			_, claimed := used[bno]
			switch {
			case claimed && !set:
				violations = append(violations, FsckViolation{
					Inum: used[bno], Kind: "bitmap", Detail: fmt.Sprintf("block %d is reachable but bitmap bit is clear", bno),
				})
			case !claimed && set:
				violations = append(violations, FsckViolation{
					Kind: "bitmap", Detail: fmt.Sprintf("block %d has bitmap bit set but is unreachable from any inode", bno),
				})
			}
		}
		fs.Brelse(b)
		fs.EndOp()
	}
	return violations, nil
}
