package unixfs

import (
	"io"
	"io/fs"
	"path"
	"sync"
	"time"
)

// fsfs.go adapts a mounted FS to the standard io/fs.FS / fs.ReadDirFS
// surface, the way the teacher's file.go adapts a squashfs *Superblock --
// same File/FileDir/fileinfo split, rebuilt atop readi/dirlookup instead of
// the teacher's section-reader-over-compressed-fragments approach. Callers
// that only need read access (e.g. serving a mounted image over http.FileServer
// via http.FS) can use *FS directly without touching BeginOp/EndOp or the
// composite operations in ops.go.

var _ fs.FS = (*FS)(nil)
var _ fs.ReadDirFS = (*FS)(nil)
var _ fs.StatFS = (*FS)(nil)

// Open implements fs.FS. name follows io/fs conventions (slash-separated,
// no leading slash, "." for the root) rather than this package's own
// absolute-path convention used by namei/Create/etc; Open translates it.
func (fsys *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	ip, err := fsys.namei("/" + name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	fsys.ilock(ip)
	typ := ip.dinode.Type
	size := ip.dinode.Size
	fsys.iunlock(ip)

	if typ == TypeDir {
		return &fsDir{fs: fsys, ino: ip, name: name}, nil
	}
	return &fsFile{fs: fsys, ino: ip, name: name, size: int64(size)}, nil
}

// Stat implements fs.StatFS without going through Open/Close.
func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// ReadDir implements fs.ReadDirFS.
func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, ok := f.(fs.ReadDirFile)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return d.ReadDir(-1)
}

// fsFile adapts a regular/device/symlink inode to fs.File.
type fsFile struct {
	fs   *FS
	ino  *Inode
	name string
	size int64
	off  int64
	mu   sync.Mutex
}

var _ fs.File = (*fsFile)(nil)
var _ io.ReaderAt = (*fsFile)(nil)

func (f *fsFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.ReadAt(p, f.off)
	f.off += int64(n)
	return n, err
}

// ReadAt reads directly through readi inside its own transaction, so
// concurrent readers never need to coordinate on a shared cursor.
func (f *fsFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	if off < 0 {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
	}

	want := int64(len(p))
	if off+want > f.size {
		want = f.size - off
	}

	f.fs.BeginOp()
	f.fs.ilock(f.ino)
	n, err := f.fs.readi(f.ino, p[:want], uint32(off), uint32(want))
	f.fs.iunlock(f.ino)
	f.fs.EndOp()
	if err != nil {
		return int(n), err
	}
	if int64(n) < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return &fsFileInfo{fs: f.fs, ino: f.ino, name: path.Base(f.name)}, nil
}

func (f *fsFile) Close() error {
	f.fs.iput(f.ino)
	return nil
}

// fsDir adapts a directory inode to fs.ReadDirFile.
type fsDir struct {
	fs   *FS
	ino  *Inode
	name string
	off  uint32
}

var _ fs.ReadDirFile = (*fsDir)(nil)

func (d *fsDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *fsDir) Stat() (fs.FileInfo, error) {
	return &fsFileInfo{fs: d.fs, ino: d.ino, name: path.Base(d.name)}, nil
}

func (d *fsDir) Close() error {
	d.fs.iput(d.ino)
	return nil
}

// ReadDir lists up to n entries (or all remaining when n<=0), skipping "."
// and "..", matching fs.ReadDirFile's contract.
func (d *fsDir) ReadDir(n int) ([]fs.DirEntry, error) {
	d.fs.BeginOp()
	d.fs.ilock(d.ino)
	defer func() {
		d.fs.iunlock(d.ino)
		d.fs.EndOp()
	}()

	var out []fs.DirEntry
	var raw [dirEntSize]byte
	for {
		if n > 0 && len(out) >= n {
			return out, nil
		}
		if d.off >= d.ino.dinode.Size {
			if n > 0 && len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}

		got, err := d.fs.readi(d.ino, raw[:], d.off, dirEntSize)
		if err != nil {
			return out, err
		}
		d.off += dirEntSize
		if got < dirEntSize {
			continue
		}

		de := decodeDirent(raw[:])
		if de.Inum == 0 {
			continue
		}
		nm := direntName(de.Name)
		if nm == "." || nm == ".." {
			continue
		}

		st, err := d.fs.statInum(uint32(de.Inum))
		if err != nil {
			return out, err
		}
		out = append(out, &fsDirEntry{name: nm, stat: st})
	}
}

// fsFileInfo implements both fs.FileInfo and fs.DirEntry over a live inode;
// Stat on an open file or directory returns it. ReadDir returns fsDirEntry
// values instead.
type fsFileInfo struct {
	fs   *FS
	ino  *Inode
	name string
}

var _ fs.FileInfo = (*fsFileInfo)(nil)
var _ fs.DirEntry = (*fsFileInfo)(nil)

func (fi *fsFileInfo) Name() string { return fi.name }

func (fi *fsFileInfo) Size() int64 {
	fi.fs.ilock(fi.ino)
	defer fi.fs.iunlock(fi.ino)
	return int64(fi.ino.dinode.Size)
}

func (fi *fsFileInfo) Mode() fs.FileMode {
	fi.fs.ilock(fi.ino)
	typ := fi.ino.dinode.Type
	fi.fs.iunlock(fi.ino)
	return inodeTypeMode(typ)
}

// ModTime is not modeled on disk (§1 non-goals); callers needing mtimes
// must track them at a layer above this library.
func (fi *fsFileInfo) ModTime() time.Time { return time.Time{} }

func (fi *fsFileInfo) IsDir() bool { return fi.Mode()&fs.ModeDir != 0 }

func (fi *fsFileInfo) Sys() any { return fi.ino }

func (fi *fsFileInfo) Type() fs.FileMode { return fi.Mode().Type() }

func (fi *fsFileInfo) Info() (fs.FileInfo, error) { return fi, nil }

// fsDirEntry implements fs.DirEntry from a plain Stat snapshot, with no
// live inode reference to release -- see statInum's doc comment.
type fsDirEntry struct {
	name string
	stat Stat
}

var _ fs.DirEntry = (*fsDirEntry)(nil)

func (e *fsDirEntry) Name() string { return e.name }

func (e *fsDirEntry) IsDir() bool { return e.stat.Type == TypeDir }

func (e *fsDirEntry) Type() fs.FileMode { return inodeTypeMode(e.stat.Type) }

func (e *fsDirEntry) Info() (fs.FileInfo, error) { return &fsStatInfo{name: e.name, stat: e.stat}, nil }

// fsStatInfo is the fs.FileInfo counterpart of fsDirEntry.
type fsStatInfo struct {
	name string
	stat Stat
}

var _ fs.FileInfo = (*fsStatInfo)(nil)

func (fi *fsStatInfo) Name() string       { return fi.name }
func (fi *fsStatInfo) Size() int64        { return int64(fi.stat.Size) }
func (fi *fsStatInfo) ModTime() time.Time { return time.Time{} }
func (fi *fsStatInfo) Sys() any           { return fi.stat }

func (fi *fsStatInfo) Mode() fs.FileMode { return inodeTypeMode(fi.stat.Type) }

func (fi *fsStatInfo) IsDir() bool { return fi.stat.Type == TypeDir }
