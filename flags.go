package unixfs

import "strings"

// OpenFlags is the bitmask Open takes, standing in for syscall-level O_*
// flags: system-call argument marshalling is explicitly out of scope (§1),
// so the core defines its own small flag type rather than importing
// "syscall". Shaped after the teacher's SquashFlags iota bitmask
// (flags.go), which this file directly replaces.
type OpenFlags uint32

const (
	// ORdOnly is the (implicit) default: no creation, no truncation.
	ORdOnly OpenFlags = 0
	// OCreate creates the file if it does not already exist (§4.8 create).
	OCreate OpenFlags = 1 << (iota - 1)
	// OTrunc truncates an existing regular file to zero length on open.
	OTrunc
	// ONoFollow makes Open return the symlink inode itself (rather than
	// chase it) when the resolved path names a symlink.
	ONoFollow
	// OWronly/ORdwr are recorded for callers but the core doesn't enforce
	// read/write separation itself -- that belongs to the per-file struct
	// which §1 scopes out.
	OWronly
	ORdwr
)

func (f OpenFlags) Has(what OpenFlags) bool { return f&what == what }

func (f OpenFlags) String() string {
	var opt []string
	if f.Has(OCreate) {
		opt = append(opt, "O_CREATE")
	}
	if f.Has(OTrunc) {
		opt = append(opt, "O_TRUNC")
	}
	if f.Has(ONoFollow) {
		opt = append(opt, "O_NOFOLLOW")
	}
	if f.Has(OWronly) {
		opt = append(opt, "O_WRONLY")
	}
	if f.Has(ORdwr) {
		opt = append(opt, "O_RDWR")
	}
	if len(opt) == 0 {
		return "O_RDONLY"
	}
	return strings.Join(opt, "|")
}
