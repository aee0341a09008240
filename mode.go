package unixfs

import "io/fs"

// mode.go carries the teacher's UnixToMode/ModeToUnix split (mode.go),
// narrowed to the one direction this filesystem actually needs: mapping its
// own InodeType (dinode.go) to an fs.FileMode for the io/fs adapter
// (fsfs.go) and the FUSE frontend (fuse_mount.go). The squashfs S_IF*/
// S_ISUID-style permission-bit round trip doesn't apply here -- this
// filesystem has no permission bits on disk (§1 non-goal) -- so only the
// type half survives.

// inodeTypeMode returns the fs.FileMode bits identifying typ, with no
// permission bits set.
func inodeTypeMode(typ InodeType) fs.FileMode {
	switch typ {
	case TypeDir:
		return fs.ModeDir
	case TypeSymlink:
		return fs.ModeSymlink
	case TypeDevice:
		return fs.ModeDevice
	default:
		return 0
	}
}
