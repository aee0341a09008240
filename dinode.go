package unixfs

// InodeType enumerates the on-disk inode types of §3: 0 means the slot is
// free.
type InodeType uint16

const (
	TypeFree    InodeType = 0
	TypeFile    InodeType = 1
	TypeDir     InodeType = 2
	TypeDevice  InodeType = 3
	TypeSymlink InodeType = 4
)

// dinodeSize is the fixed on-disk size of one disk inode: 3*uint16 (type,
// major, minor) + uint16 nlink + uint32 size + (NDIRECT+2) uint32 addrs.
// 1024 / 64 == 16, so IPB divides evenly as §3 requires.
const dinodeSize = 2 + 2 + 2 + 2 + 4 + (NDIRECT+2)*4

// IPB is the number of disk inodes packed into one block.
const IPB = BSIZE / dinodeSize

// dinode is the fixed-size on-disk inode record of §3. All block pointers
// are 0 when absent; bmap (inode.go) allocates a block the first time an
// absent pointer is reached, and readi stops, as at end of file, when bmap
// returns 0.
type dinode struct {
	Type  InodeType
	Major uint16
	Minor uint16
	Nlink uint16
	Size  uint32
	Addrs [NDIRECT + 2]uint32
}

// decodeDinode reads the dinode at the given IPB slot offset within blk.
func decodeDinode(blk *Block, slot int) dinode {
	off := slot * dinodeSize
	var d dinode
	d.Type = InodeType(leUint16(blk[off : off+2]))
	d.Major = leUint16(blk[off+2 : off+4])
	d.Minor = leUint16(blk[off+4 : off+6])
	d.Nlink = leUint16(blk[off+6 : off+8])
	d.Size = leUint32(blk[off+8 : off+12])
	base := off + 12
	for i := range d.Addrs {
		d.Addrs[i] = leUint32(blk[base+i*4 : base+i*4+4])
	}
	return d
}

// encodeDinode writes d into the given IPB slot offset within blk.
func encodeDinode(d *dinode, blk *Block, slot int) {
	off := slot * dinodeSize
	putLeUint16(blk[off:off+2], uint16(d.Type))
	putLeUint16(blk[off+2:off+4], d.Major)
	putLeUint16(blk[off+4:off+6], d.Minor)
	putLeUint16(blk[off+6:off+8], d.Nlink)
	putLeUint32(blk[off+8:off+12], d.Size)
	base := off + 12
	for i, a := range d.Addrs {
		putLeUint32(blk[base+i*4:base+i*4+4], a)
	}
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func putLeUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// dirEntSize is the fixed on-disk size of one directory entry (§3, §6):
// a 2-byte inode number (0 == empty slot) followed by a 14-byte,
// NUL-padded (not NUL-terminated when length==DIRSIZ) name.
const dirEntSize = 2 + DIRSIZ

// dirent is one directory entry.
type dirent struct {
	Inum uint16
	Name [DIRSIZ]byte
}

func decodeDirent(raw []byte) dirent {
	var d dirent
	d.Inum = leUint16(raw[0:2])
	copy(d.Name[:], raw[2:2+DIRSIZ])
	return d
}

func encodeDirent(d *dirent, raw []byte) {
	putLeUint16(raw[0:2], d.Inum)
	copy(raw[2:2+DIRSIZ], d.Name[:])
}

// nameToDirent converts a path element (already validated to fit DIRSIZ)
// into a NUL-padded dirent name field.
func nameToDirent(name string) [DIRSIZ]byte {
	var out [DIRSIZ]byte
	copy(out[:], name)
	return out
}

// direntName returns name as a Go string, stopping at the first NUL or at
// DIRSIZ, whichever is shorter -- see Open Question (a) in spec §9: both
// padded and unpadded forms must compare and print identically.
func direntName(raw [DIRSIZ]byte) string {
	for i, c := range raw {
		if c == 0 {
			return string(raw[:i])
		}
	}
	return string(raw[:])
}
