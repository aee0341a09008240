package unixfs

import (
	"sync"
)

// Inode is the in-memory cached counterpart of a dinode (§4.4). Two-tier
// protection mirrors the teacher's own split between the superblock's
// inoIdxL (a table-wide RWMutex guarding the inodeRef lookup index) and the
// per-inode state read off disk on demand in GetInodeRef: here the
// inodeCache.mu plays the role inoIdxL played, and Inode.mu is the
// sleep-lock guarding everything below it once ilock has been called.
type Inode struct {
	mu sync.Mutex // sleep-lock: guards the dinode fields once held

	dev  int
	inum uint32

	// ref and valid are guarded by inodeCache.mu, never by mu.
	ref   int32
	valid bool

	dinode
}

// inodeCache is the fixed-size in-memory inode table of §4.4: NInode slots,
// one table-wide spin-lock for (dev, inum, ref, valid), independent
// sleep-locks per slot for the body.
type inodeCache struct {
	mu    sync.Mutex
	table []*Inode
}

func newInodeCache(n int) *inodeCache {
	c := &inodeCache{table: make([]*Inode, n)}
	for i := range c.table {
		c.table[i] = &Inode{}
	}
	return c
}

// iget finds or allocates a cache slot for (dev, inum) and bumps its
// reference count. It never touches disk and never takes the per-inode
// sleep-lock -- callers must ilock before reading the body.
func (c *inodeCache) iget(dev int, inum uint32) *Inode {
	c.mu.Lock()
	defer c.mu.Unlock()

	var empty *Inode
	for _, ip := range c.table {
		if ip.ref > 0 && ip.dev == dev && ip.inum == inum {
			ip.ref++
			return ip
		}
		if empty == nil && ip.ref == 0 {
			empty = ip
		}
	}
	if empty == nil {
		fatal(FatalNoInodes, "inode cache exhausted")
	}
	empty.dev = dev
	empty.inum = inum
	empty.ref = 1
	empty.valid = false
	return empty
}

// idup bumps the reference count of an already-gotten inode, for callers
// that need to hold two independent references to the same in-memory
// inode (e.g. "." resolving to the same directory it was looked up from).
func (c *inodeCache) idup(ip *Inode) *Inode {
	c.mu.Lock()
	ip.ref++
	c.mu.Unlock()
	return ip
}

// iget is the FS-level entry point named directly in §6's external
// interface list.
func (fs *FS) iget(inum uint32) *Inode { return fs.icache.iget(RootDev, inum) }

func (fs *FS) idup(ip *Inode) *Inode { return fs.icache.idup(ip) }

// ilock acquires ip's sleep-lock and, the first time, loads its body from
// disk. A disk inode loaded with type==TypeFree is a fatal on-disk
// inconsistency (§4.4, §7): a valid slot never points at a free dinode.
func (fs *FS) ilock(ip *Inode) {
	ip.mu.Lock()
	if !ip.valid {
		blk, err := fs.Bread(fs.sb.IBlock(ip.inum))
		if err != nil {
			ip.mu.Unlock()
			fatalf(FatalZeroTypeLoaded, "ilock: reading inode block for inum %d: %v", ip.inum, err)
		}
		slot := int(ip.inum) % IPB
		ip.dinode = decodeDinode(blk.Data(), slot)
		fs.Brelse(blk)
		if ip.dinode.Type == TypeFree {
			fatalf(FatalZeroTypeLoaded, "ilock: inode %d has type 0 on disk", ip.inum)
		}
		ip.valid = true
	}
}

// iunlock releases ip's sleep-lock.
func (fs *FS) iunlock(ip *Inode) { ip.mu.Unlock() }

// iput drops one reference to ip. If this was the last reference to a
// valid, unlinked inode, it reclaims the inode: truncates its data,
// zeroes its on-disk type, and marks the slot invalid -- all of which
// must happen inside the caller's transaction (§4.4).
func (fs *FS) iput(ip *Inode) {
	c := fs.icache
	c.mu.Lock()
	if ip.ref == 1 && ip.valid && ip.dinode.Nlink == 0 {
		c.mu.Unlock()

		ip.mu.Lock()
		fs.itrunc(ip)
		ip.dinode.Type = TypeFree
		fs.iupdate(ip)
		ip.valid = false
		ip.mu.Unlock()

		c.mu.Lock()
	}
	ip.ref--
	c.mu.Unlock()
}

// iunlockput is the common iunlock+iput pairing named in §6.
func (fs *FS) iunlockput(ip *Inode) {
	fs.iunlock(ip)
	fs.iput(ip)
}

// iupdate writes ip's cached fields back to its disk block, inside the
// caller's transaction.
func (fs *FS) iupdate(ip *Inode) {
	blk, err := fs.Bread(fs.sb.IBlock(ip.inum))
	if err != nil {
		fatalf(FatalCorruptSuperblock, "iupdate: reading inode block for inum %d: %v", ip.inum, err)
	}
	slot := int(ip.inum) % IPB
	encodeDinode(&ip.dinode, blk.Data(), slot)
	fs.LogWrite(blk)
	fs.Brelse(blk)
}

// ialloc scans every inode slot on disk for the first with type==TypeFree,
// claims it by writing its type field, and returns an iget-referenced (but
// unlocked) handle on it. Returns ErrNoInodeSpace -- recoverable, not
// fatal -- if every disk inode is in use.
func (fs *FS) ialloc(typ InodeType) (*Inode, error) {
	for inum := uint32(1); inum < fs.sb.NInodes; inum++ {
		blk, err := fs.Bread(fs.sb.IBlock(inum))
		if err != nil {
			return nil, err
		}
		slot := int(inum) % IPB
		d := decodeDinode(blk.Data(), slot)
		if d.Type == TypeFree {
			d = dinode{Type: typ}
			encodeDinode(&d, blk.Data(), slot)
			fs.LogWrite(blk)
			fs.Brelse(blk)
			return fs.iget(inum), nil
		}
		fs.Brelse(blk)
	}
	return nil, ErrNoInodeSpace
}

// bmap translates logical block bn of ip into a disk block number,
// allocating direct, single-indirect, or double-indirect blocks on first
// access as needed (§4.4). A request beyond MAXFILE is fatal; a Balloc
// that returns ErrNoSpace propagates as block 0 so the caller's write
// loop stops short without panicking.
func (fs *FS) bmap(ip *Inode, bn uint32) (uint32, error) {
	if bn < NDIRECT {
		addr := ip.dinode.Addrs[bn]
		if addr == 0 {
			a, err := fs.alloc.Balloc()
			if err != nil {
				if err == ErrNoSpace {
					return 0, nil
				}
				return 0, err
			}
			addr = a
			ip.dinode.Addrs[bn] = addr
		}
		return addr, nil
	}
	bn -= NDIRECT

	if bn < NINDIRECT {
		indAddr := ip.dinode.Addrs[NDIRECT]
		if indAddr == 0 {
			a, err := fs.alloc.Balloc()
			if err != nil {
				if err == ErrNoSpace {
					return 0, nil
				}
				return 0, err
			}
			indAddr = a
			ip.dinode.Addrs[NDIRECT] = indAddr
		}
		return fs.bmapIndirect(indAddr, bn)
	}
	bn -= NINDIRECT

	if bn < NINDIRECT*NINDIRECT {
		dindAddr := ip.dinode.Addrs[NDIRECT+1]
		if dindAddr == 0 {
			a, err := fs.alloc.Balloc()
			if err != nil {
				if err == ErrNoSpace {
					return 0, nil
				}
				return 0, err
			}
			dindAddr = a
			ip.dinode.Addrs[NDIRECT+1] = dindAddr
		}

		blk, err := fs.Bread(dindAddr)
		if err != nil {
			return 0, err
		}
		idx1 := bn / NINDIRECT
		off1 := idx1 * 4
		firstAddr := leUint32(blk.Data()[off1 : off1+4])
		if firstAddr == 0 {
			a, err := fs.alloc.Balloc()
			if err != nil {
				fs.Brelse(blk)
				if err == ErrNoSpace {
					return 0, nil
				}
				return 0, err
			}
			firstAddr = a
			putLeUint32(blk.Data()[off1:off1+4], firstAddr)
			fs.LogWrite(blk)
		}
		fs.Brelse(blk)

		return fs.bmapIndirect(firstAddr, bn%NINDIRECT)
	}

	fatalf(FatalBlockBeyondMax, "bmap: logical block %d beyond MAXFILE for inode %d", bn, ip.inum)
	panic("unreachable")
}

// bmapIndirect returns the bn'th target block addressed by the
// already-allocated single-indirect block at indAddr, allocating the
// target block itself if absent.
func (fs *FS) bmapIndirect(indAddr uint32, bn uint32) (uint32, error) {
	blk, err := fs.Bread(indAddr)
	if err != nil {
		return 0, err
	}
	off := bn * 4
	addr := leUint32(blk.Data()[off : off+4])
	if addr == 0 {
		a, err := fs.alloc.Balloc()
		if err != nil {
			fs.Brelse(blk)
			if err == ErrNoSpace {
				return 0, nil
			}
			return 0, err
		}
		addr = a
		putLeUint32(blk.Data()[off:off+4], addr)
		fs.LogWrite(blk)
	}
	fs.Brelse(blk)
	return addr, nil
}

// itrunc frees every block reachable from ip -- direct, single-indirect,
// and double-indirect -- then zeroes size and writes the inode back
// (§4.4).
func (fs *FS) itrunc(ip *Inode) {
	for i := 0; i < NDIRECT; i++ {
		if ip.dinode.Addrs[i] != 0 {
			fs.alloc.Bfree(ip.dinode.Addrs[i])
			ip.dinode.Addrs[i] = 0
		}
	}

	if ip.dinode.Addrs[NDIRECT] != 0 {
		fs.freeIndirect(ip.dinode.Addrs[NDIRECT])
		ip.dinode.Addrs[NDIRECT] = 0
	}

	if ip.dinode.Addrs[NDIRECT+1] != 0 {
		dind := ip.dinode.Addrs[NDIRECT+1]
		blk, err := fs.Bread(dind)
		if err == nil {
			for i := 0; i < NINDIRECT; i++ {
				off := i * 4
				first := leUint32(blk.Data()[off : off+4])
				if first != 0 {
					fs.freeIndirect(first)
				}
			}
			fs.Brelse(blk)
		}
		fs.alloc.Bfree(dind)
		ip.dinode.Addrs[NDIRECT+1] = 0
	}

	ip.dinode.Size = 0
	fs.iupdate(ip)
}

// freeIndirect frees every block listed in the single-indirect block at
// indAddr, then the indirect block itself.
func (fs *FS) freeIndirect(indAddr uint32) {
	blk, err := fs.Bread(indAddr)
	if err == nil {
		for i := 0; i < NINDIRECT; i++ {
			off := i * 4
			a := leUint32(blk.Data()[off : off+4])
			if a != 0 {
				fs.alloc.Bfree(a)
			}
		}
		fs.Brelse(blk)
	}
	fs.alloc.Bfree(indAddr)
}

// readi reads n bytes from ip at off into dst, clamped to the inode's
// current size. bmap allocates any missing block inside that range; if
// bmap returns 0 (device full), readi stops early, as at end of file,
// rather than erroring (§4.4).
func (fs *FS) readi(ip *Inode, dst []byte, off, n uint32) (uint32, error) {
	if off > ip.dinode.Size {
		return 0, nil
	}
	if off+n > ip.dinode.Size {
		n = ip.dinode.Size - off
	}

	var total uint32
	for total < n {
		bn := (off + total) / BSIZE
		boff := (off + total) % BSIZE
		diskBno, err := fs.bmap(ip, bn)
		if err != nil {
			return total, err
		}
		if diskBno == 0 {
			break // hole: end of file
		}
		blk, err := fs.Bread(diskBno)
		if err != nil {
			return total, err
		}
		chunk := n - total
		if max := BSIZE - boff; chunk > max {
			chunk = max
		}
		copy(dst[total:total+chunk], blk.Data()[boff:boff+chunk])
		fs.Brelse(blk)
		total += chunk
	}
	return total, nil
}

// writei writes n bytes from src into ip at off, allocating missing
// blocks via bmap and log_write'ing every modified block. It rejects
// writes starting beyond the current size or extending past MAXFILE
// bytes (§4.4).
func (fs *FS) writei(ip *Inode, src []byte, off, n uint32) (uint32, error) {
	if off > ip.dinode.Size {
		return 0, ErrInvalidArgument
	}
	if uint64(off)+uint64(n) > uint64(MAXFILE)*BSIZE {
		return 0, ErrInvalidArgument
	}

	var total uint32
	for total < n {
		bn := (off + total) / BSIZE
		boff := (off + total) % BSIZE
		diskBno, err := fs.bmap(ip, bn)
		if err != nil {
			return total, err
		}
		if diskBno == 0 {
			break // out of blocks: write stops short, per §7
		}
		blk, err := fs.Bread(diskBno)
		if err != nil {
			return total, err
		}
		chunk := n - total
		if max := BSIZE - boff; chunk > max {
			chunk = max
		}
		copy(blk.Data()[boff:boff+chunk], src[total:total+chunk])
		fs.LogWrite(blk)
		fs.Brelse(blk)
		total += chunk
	}

	if total > 0 && off+total > ip.dinode.Size {
		ip.dinode.Size = off + total
	}
	fs.iupdate(ip)
	return total, nil
}

// Stat is the externally-visible inode summary returned by stati (§6).
type Stat struct {
	Dev   int
	Ino   uint32
	Type  InodeType
	Nlink uint16
	Size  uint32
}

// stati copies ip's cached fields into a Stat, satisfying §6's external
// interface list entry of the same name.
func (fs *FS) stati(ip *Inode) Stat {
	return Stat{
		Dev:   ip.dev,
		Ino:   ip.inum,
		Type:  ip.dinode.Type,
		Nlink: ip.dinode.Nlink,
		Size:  ip.dinode.Size,
	}
}

// statInum reads a Stat directly off disk by inode number, bypassing the
// inode cache entirely -- for callers (fsfs.go's directory listings) that
// need many short-lived summaries and would otherwise churn icache slots
// holding a ref per entry with no Close to release it.
func (fs *FS) statInum(inum uint32) (Stat, error) {
	blk, err := fs.Bread(fs.sb.IBlock(inum))
	if err != nil {
		return Stat{}, err
	}
	d := decodeDinode(blk.Data(), int(inum)%IPB)
	fs.Brelse(blk)
	return Stat{Dev: RootDev, Ino: inum, Type: d.Type, Nlink: d.Nlink, Size: d.Size}, nil
}
