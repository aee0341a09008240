package unixfs

import (
	"errors"
	"fmt"
)

// Package-specific error variables that can be used with errors.Is() for error handling.
// These are the recoverable conditions of §7: callers decide whether to retry,
// roll back partial work, or surface the failure.
var (
	// ErrInvalidImage is returned when the backing image has no valid superblock.
	ErrInvalidImage = errors.New("invalid image, unixfs signature not found")

	// ErrNotDirectory is returned when attempting to perform directory operations on a non-directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory is returned when attempting a file-only operation on a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotExist is returned when a path element cannot be found.
	ErrNotExist = errors.New("no such file or directory")

	// ErrExist is returned when create/link would collide with an existing name.
	ErrExist = errors.New("file exists")

	// ErrNotEmpty is returned by unlink when a directory still has entries besides . and ..
	ErrNotEmpty = errors.New("directory not empty")

	// ErrCrossDevice is returned when a link is attempted across devices (single-device invariant).
	ErrCrossDevice = errors.New("cross-device link")

	// ErrTooManySymlinks is returned when symlink resolution exceeds MaxSymlinkDepth.
	ErrTooManySymlinks = errors.New("too many levels of symbolic links")

	// ErrNoSpace is returned when the block allocator has no free blocks left (balloc -> 0).
	ErrNoSpace = errors.New("no space left on device")

	// ErrNoInodeSpace is returned when ialloc finds no free on-disk inode.
	ErrNoInodeSpace = errors.New("no free inodes")

	// ErrNameTooLong is returned by dirlink for a name longer than DIRSIZ
	// bytes and by Symlink for a target longer than one block. Path elements
	// are truncated to DIRSIZ by the resolver, so they never produce it.
	ErrNameTooLong = errors.New("file name too long")

	// ErrInvalidArgument is returned by writei for an offset past the file's size or an end past
	// MAXFILE, by Unlink for "." or "..", and by a parent lookup of a path with no final element.
	ErrInvalidArgument = errors.New("invalid argument")
)

// FatalReason names one of the structural violations §7 classifies as fatal:
// logic or on-disk corruption the core cannot locally recover from. A
// FatalError is never returned to a caller — it is panicked, the Go
// equivalent of a kernel panic(reason), and is only ever recovered at a
// process's composition root (see cmd/fsutil's main for the recover()).
type FatalReason string

const (
	FatalDoubleFree          FatalReason = "double free of a bitmap bit"
	FatalBufNotLocked        FatalReason = "buffer released or written without holding its sleep-lock"
	FatalNoBuffers           FatalReason = "no buffers"
	FatalLogNotInTransaction FatalReason = "log_write outside a transaction"
	FatalLogOverflow         FatalReason = "transaction grew past LogSize"
	FatalNoInodes            FatalReason = "inode-table exhaustion"
	FatalZeroTypeLoaded      FatalReason = "on-disk inode loaded with type 0"
	FatalRefUnderflow        FatalReason = "inode reference count underflow"
	FatalBlockBeyondMax      FatalReason = "block number beyond MAXFILE inside bmap"
	FatalCorruptSuperblock   FatalReason = "corrupt superblock"
)

// FatalError is the error type carried by a fatal panic.
type FatalError struct {
	Reason FatalReason
	Detail string
}

func (e *FatalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unixfs: fatal: %s", e.Reason)
	}
	return fmt.Sprintf("unixfs: fatal: %s: %s", e.Reason, e.Detail)
}

// fatal aborts the current goroutine with a named, unrecoverable reason.
// Per §7, the core never converts a recoverable condition into a fatal one
// and never attempts to locally recover from a fatal one either.
func fatal(reason FatalReason, detail string) {
	panic(&FatalError{Reason: reason, Detail: detail})
}

func fatalf(reason FatalReason, format string, args ...any) {
	fatal(reason, fmt.Sprintf(format, args...))
}
