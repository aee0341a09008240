package unixfs

import "strings"

// skipElem returns the next path element (truncated silently to DIRSIZ
// bytes, per §4.6 step 2 -- callers must not rely on this) and the
// remainder of path following it, with any leading/trailing slashes
// consumed.
func skipElem(path string) (elem, rest string) {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(path) == 0 {
		return "", ""
	}
	i := strings.IndexByte(path, '/')
	if i < 0 {
		elem = path
		path = ""
	} else {
		elem = path[:i]
		path = path[i:]
	}
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(elem) > DIRSIZ {
		elem = elem[:DIRSIZ]
	}
	return elem, path
}

// namex walks path one element at a time starting from the root (if path
// is absolute) or the current working directory, per §4.6. When
// wantParent is true, resolution stops one element short and returns the
// parent directory (still iget-referenced, unlocked) plus the final
// element's name; otherwise it returns the fully resolved inode.
func (fs *FS) namex(path string, wantParent bool) (*Inode, string, error) {
	var ip *Inode
	if strings.HasPrefix(path, "/") {
		ip = fs.iget(RootIno)
	} else {
		fs.cwdMu.Lock()
		ip = fs.idup(fs.cwd)
		fs.cwdMu.Unlock()
	}

	var elem string
	rest := path
	for {
		elem, rest = skipElem(rest)
		if elem == "" {
			break
		}

		fs.ilock(ip)
		if ip.dinode.Type != TypeDir {
			fs.iunlockput(ip)
			return nil, "", ErrNotDirectory
		}

		if wantParent && rest == "" {
			fs.iunlock(ip)
			return ip, elem, nil
		}

		next, _, err := fs.dirlookup(ip, elem)
		if err != nil {
			fs.iunlockput(ip)
			return nil, "", ErrNotExist
		}
		fs.iunlockput(ip)
		ip = next
	}

	if wantParent {
		fs.iput(ip)
		return nil, "", ErrInvalidArgument
	}
	return ip, elem, nil
}

// namei resolves path to its target inode (iget-referenced, unlocked).
func (fs *FS) namei(path string) (*Inode, error) {
	ip, _, err := fs.namex(path, false)
	return ip, err
}

// nameiparent resolves path to its parent directory (iget-referenced,
// unlocked) and returns the final element's name.
func (fs *FS) nameiparent(path string) (*Inode, string, error) {
	return fs.namex(path, true)
}
