package unixfs

// ioexternal.go exposes readi/writei/stati/iput to callers outside the
// package that already hold an *Inode from Open/Create/Mkdir/Mknod/
// Symlink -- the "data plane" half of §6's external interface list. The
// inode-cache plumbing those internally rely on (iget/idup/ilock/iunlock)
// stays unexported: a caller that already has an *Inode from a composite
// operation never needs to re-derive or ref-count it itself.

// ReadAt reads up to len(dst) bytes from ip at off, clamped to the file's
// current size -- the exported counterpart of readi (§4.4).
func (fs *FS) ReadAt(ip *Inode, dst []byte, off uint32) (uint32, error) {
	fs.BeginOp()
	defer fs.EndOp()
	fs.ilock(ip)
	defer fs.iunlock(ip)
	return fs.readi(ip, dst, off, uint32(len(dst)))
}

// WriteAt writes src into ip at off, allocating blocks as needed and
// extending size if the write reaches past it -- the exported counterpart
// of writei (§4.4).
func (fs *FS) WriteAt(ip *Inode, src []byte, off uint32) (uint32, error) {
	fs.BeginOp()
	defer fs.EndOp()
	fs.ilock(ip)
	defer fs.iunlock(ip)
	return fs.writei(ip, src, off, uint32(len(src)))
}

// StatInode returns ip's current Stat snapshot -- the exported counterpart
// of stati (§6). Named StatInode rather than Stat to avoid colliding with
// fs.StatFS's path-based Stat in fsfs.go.
func (fs *FS) StatInode(ip *Inode) Stat {
	fs.ilock(ip)
	defer fs.iunlock(ip)
	return fs.stati(ip)
}

// Release drops the caller's reference to ip, reclaiming it if it was the
// last reference to an unlinked inode -- the exported counterpart of iput,
// which every composite operation in ops.go already calls internally on
// its own intermediate inodes. Callers that received an *Inode back from
// Create/Open/Mkdir/Mknod/Symlink must call Release when done with it.
func (fs *FS) Release(ip *Inode) {
	fs.BeginOp()
	defer fs.EndOp()
	fs.iput(ip)
}
