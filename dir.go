package unixfs

// Directory layer (§4.5): a directory's content is just the file content
// of a TypeDir inode, read and written through readi/writei exactly like
// a regular file's bytes -- the teacher's own dirReader (dir.go) reads
// raw table bytes the same uninterpreted way, just over its own on-disk
// entry format instead of dirent's.

// namecmp compares two directory-entry names the way direntName renders
// them: NUL-padding is insignificant, so "foo" (3 bytes + 11 NULs) and a
// name read back after a round trip through dirent compare equal. This
// resolves spec Open Question (a).
func namecmp(a, b string) bool { return direntName(nameToDirent(a)) == direntName(nameToDirent(b)) }

// dirlookup performs a linear scan of dp's content for an entry named
// name. On a hit it returns an iget-referenced, unlocked inode and the
// byte offset of the matching entry; on a miss it returns a nil inode.
// dp must already be locked by the caller.
func (fs *FS) dirlookup(dp *Inode, name string) (*Inode, uint32, error) {
	if dp.dinode.Type != TypeDir {
		return nil, 0, ErrNotDirectory
	}

	var raw [dirEntSize]byte
	for off := uint32(0); off < dp.dinode.Size; off += dirEntSize {
		n, err := fs.readi(dp, raw[:], off, dirEntSize)
		if err != nil {
			return nil, 0, err
		}
		if n < dirEntSize {
			break
		}
		de := decodeDirent(raw[:])
		if de.Inum == 0 {
			continue
		}
		if namecmp(direntName(de.Name), name) {
			return fs.iget(uint32(de.Inum)), off, nil
		}
	}
	return nil, 0, ErrNotExist
}

// dirlink writes a new (name, inum) entry into dp, reusing the first
// empty (inum==0) slot if one exists or appending otherwise. It first
// re-checks that name is absent, per §4.5.
func (fs *FS) dirlink(dp *Inode, name string, inum uint32) error {
	if existing, _, err := fs.dirlookup(dp, name); err == nil {
		fs.iput(existing)
		return ErrExist
	}
	if len(name) > DIRSIZ {
		return ErrNameTooLong
	}

	var raw [dirEntSize]byte
	off := uint32(0)
	for ; off < dp.dinode.Size; off += dirEntSize {
		n, err := fs.readi(dp, raw[:], off, dirEntSize)
		if err != nil {
			return err
		}
		if n < dirEntSize {
			break
		}
		de := decodeDirent(raw[:])
		if de.Inum == 0 {
			break
		}
	}

	de := dirent{Inum: uint16(inum), Name: nameToDirent(name)}
	encodeDirent(&de, raw[:])
	if _, err := fs.writei(dp, raw[:], off, dirEntSize); err != nil {
		return err
	}
	return nil
}

// isdirempty reports whether dp has no entries beyond "." and "..".
func (fs *FS) isdirempty(dp *Inode) (bool, error) {
	var raw [dirEntSize]byte
	for off := uint32(2 * dirEntSize); off < dp.dinode.Size; off += dirEntSize {
		n, err := fs.readi(dp, raw[:], off, dirEntSize)
		if err != nil {
			return false, err
		}
		if n < dirEntSize {
			break
		}
		de := decodeDirent(raw[:])
		if de.Inum != 0 {
			return false, nil
		}
	}
	return true, nil
}
