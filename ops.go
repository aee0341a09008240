package unixfs

// Composite operations (§4.8). Every one of these brackets its work with
// BeginOp/EndOp and never holds a sleep-lock across that boundary
// (spec invariant 4), matching the way xv6-style kernels wrap sys_open,
// sys_link, sys_unlink etc.

// Create implements §4.8 create, bracketed in its own transaction. It is a
// thin wrapper over createLocked for callers that are not already inside a
// transaction; composite operations that already hold one (Symlink, and
// Open with OCreate) call createLocked directly, the way xv6 keeps create() unbracketed and lets
// only the sys_* wrappers call BeginOp/EndOp.
func (fs *FS) Create(path string, typ InodeType, major, minor uint16) (*Inode, error) {
	fs.BeginOp()
	defer fs.EndOp()
	return fs.createLocked(path, typ, major, minor)
}

// createLocked implements §4.8 create: resolve the parent directory, apply
// open-with-create semantics on a name collision, otherwise allocate a
// fresh inode of the given type and link it into the parent. For TypeDir
// it bumps the parent's link count (for the child's "..") and then links
// "." and ".." into the child; reclaim undoes that bump if a later step
// fails.
// Caller must already hold an outstanding transaction (BeginOp).
func (fs *FS) createLocked(path string, typ InodeType, major, minor uint16) (*Inode, error) {
	dp, name, err := fs.nameiparent(path)
	if err != nil {
		return nil, err
	}
	fs.ilock(dp)
	defer fs.iunlockput(dp)

	if existing, _, err := fs.dirlookup(dp, name); err == nil {
		fs.ilock(existing)
		if typ == TypeFile && (existing.dinode.Type == TypeFile || existing.dinode.Type == TypeDevice) {
			fs.iunlock(existing)
			return existing, nil
		}
		fs.iunlockput(existing)
		return nil, ErrExist
	}

	ip, err := fs.ialloc(typ)
	if err != nil {
		return nil, err
	}
	fs.ilock(ip)
	ip.dinode.Major = major
	ip.dinode.Minor = minor
	ip.dinode.Nlink = 1
	fs.iupdate(ip)

	reclaim := func() {
		ip.dinode.Nlink = 0
		fs.iupdate(ip)
		fs.iunlockput(ip)
		if typ == TypeDir {
			dp.dinode.Nlink-- // undo the "for child's .." bump below
			fs.iupdate(dp)
		}
	}

	if typ == TypeDir {
		dp.dinode.Nlink++ // for child's ".."
		fs.iupdate(dp)

		if err := fs.dirlink(ip, ".", ip.inum); err != nil {
			reclaim()
			return nil, err
		}
		if err := fs.dirlink(ip, "..", dp.inum); err != nil {
			reclaim()
			return nil, err
		}
	}

	if err := fs.dirlink(dp, name, ip.inum); err != nil {
		reclaim()
		return nil, err
	}

	fs.iunlock(ip)
	return ip, nil
}

// Link implements §4.8 link: add a new directory entry pointing at an
// existing, non-directory inode, bumping its link count. A failure after
// the nlink bump rolls the count back.
func (fs *FS) Link(oldPath, newPath string) error {
	fs.BeginOp()
	defer fs.EndOp()

	ip, err := fs.namei(oldPath)
	if err != nil {
		return err
	}
	fs.ilock(ip)
	if ip.dinode.Type == TypeDir {
		fs.iunlockput(ip)
		return ErrIsDirectory
	}
	ip.dinode.Nlink++
	fs.iupdate(ip)
	fs.iunlock(ip)

	dp, name, err := fs.nameiparent(newPath)
	if err != nil {
		fs.rollbackLink(ip)
		return err
	}
	if dp.dev != ip.dev {
		fs.iput(dp)
		fs.rollbackLink(ip)
		return ErrCrossDevice
	}
	fs.ilock(dp)
	if dp.dinode.Type != TypeDir {
		fs.iunlockput(dp)
		fs.rollbackLink(ip)
		return ErrNotDirectory
	}
	if err := fs.dirlink(dp, name, ip.inum); err != nil {
		fs.iunlockput(dp)
		fs.rollbackLink(ip)
		return err
	}
	fs.iunlockput(dp)
	fs.iput(ip)
	return nil
}

func (fs *FS) rollbackLink(ip *Inode) {
	fs.ilock(ip)
	ip.dinode.Nlink--
	fs.iupdate(ip)
	fs.iunlockput(ip)
}

// Unlink implements §4.8 unlink: remove a directory entry, decrement the
// target's link count, and (if the target was itself a directory) the
// parent's link count too, since the child's ".." reference is gone.
func (fs *FS) Unlink(path string) error {
	fs.BeginOp()
	defer fs.EndOp()

	dp, name, err := fs.nameiparent(path)
	if err != nil {
		return err
	}
	if name == "." || name == ".." {
		fs.iput(dp)
		return ErrInvalidArgument
	}

	fs.ilock(dp)
	ip, off, err := fs.dirlookup(dp, name)
	if err != nil {
		fs.iunlockput(dp)
		return err
	}
	fs.ilock(ip)

	if ip.dinode.Type == TypeDir {
		empty, err := fs.isdirempty(ip)
		if err != nil {
			fs.iunlockput(ip)
			fs.iunlockput(dp)
			return err
		}
		if !empty {
			fs.iunlockput(ip)
			fs.iunlockput(dp)
			return ErrNotEmpty
		}
	}

	var zero [dirEntSize]byte
	if _, err := fs.writei(dp, zero[:], off, dirEntSize); err != nil {
		fs.iunlockput(ip)
		fs.iunlockput(dp)
		return err
	}

	if ip.dinode.Type == TypeDir {
		dp.dinode.Nlink--
		fs.iupdate(dp)
	}
	fs.iunlock(dp)

	ip.dinode.Nlink--
	fs.iupdate(ip)
	fs.iunlockput(ip)
	fs.iput(dp)
	return nil
}

// Open implements §4.8 open: create-on-demand, directory-read-only
// enforcement, bounded symlink chasing (unless O_NOFOLLOW), and
// truncate-on-open for regular files. The per-file struct and descriptor
// table are explicitly out of scope (§1); Open returns the resolved,
// iget-referenced inode for the caller to drive readi/writei against.
func (fs *FS) Open(path string, flags OpenFlags) (*Inode, error) {
	fs.BeginOp()
	defer fs.EndOp()

	var ip *Inode
	var err error
	if flags.Has(OCreate) {
		ip, err = fs.createLocked(path, TypeFile, 0, 0)
	} else {
		ip, err = fs.namei(path)
	}
	if err != nil {
		return nil, err
	}

	fs.ilock(ip)
	depth := 0
	for ip.dinode.Type == TypeSymlink && !flags.Has(ONoFollow) {
		if depth >= MaxSymlinkDepth {
			fs.iunlockput(ip)
			return nil, ErrTooManySymlinks
		}
		target := make([]byte, ip.dinode.Size)
		if _, err := fs.readi(ip, target, 0, ip.dinode.Size); err != nil {
			fs.iunlockput(ip)
			return nil, err
		}
		fs.iunlock(ip)

		next, err := fs.namei(string(target))
		if err != nil {
			fs.iput(ip)
			return nil, err
		}
		fs.iput(ip)
		ip = next
		fs.ilock(ip)
		depth++
	}

	if ip.dinode.Type == TypeDir && (flags.Has(OWronly) || flags.Has(ORdwr) || flags.Has(OTrunc)) {
		fs.iunlockput(ip)
		return nil, ErrIsDirectory
	}

	if flags.Has(OTrunc) && ip.dinode.Type == TypeFile {
		fs.itrunc(ip)
	}

	fs.iunlock(ip)
	return ip, nil
}

// Mkdir is a thin wrapper over Create, per §4.8.
func (fs *FS) Mkdir(path string) (*Inode, error) {
	return fs.Create(path, TypeDir, 0, 0)
}

// Mknod is a thin wrapper over Create, per §4.8.
func (fs *FS) Mknod(path string, major, minor uint16) (*Inode, error) {
	return fs.Create(path, TypeDevice, major, minor)
}

// Symlink implements §4.7: create a SYMLINK inode and write target as its
// content, refusing targets that don't fit in one block.
func (fs *FS) Symlink(target, path string) error {
	if len(target) > BSIZE {
		return ErrNameTooLong
	}

	fs.BeginOp()
	defer fs.EndOp()

	ip, err := fs.createLocked(path, TypeSymlink, 0, 0)
	if err != nil {
		return err
	}
	fs.ilock(ip)
	if _, err := fs.writei(ip, []byte(target), 0, uint32(len(target))); err != nil {
		fs.iunlockput(ip)
		return err
	}
	fs.iunlockput(ip)
	return nil
}

// Chdir implements §4.8 chdir: resolve path, verify it is a directory,
// release the old cwd reference, and install the new one. Must run
// inside a transaction because releasing the old cwd may free blocks.
func (fs *FS) Chdir(path string) error {
	fs.BeginOp()
	defer fs.EndOp()

	ip, err := fs.namei(path)
	if err != nil {
		return err
	}
	fs.ilock(ip)
	if ip.dinode.Type != TypeDir {
		fs.iunlockput(ip)
		return ErrNotDirectory
	}
	fs.iunlock(ip)

	fs.cwdMu.Lock()
	old := fs.cwd
	fs.cwd = ip
	fs.cwdMu.Unlock()

	fs.iput(old)
	return nil
}
