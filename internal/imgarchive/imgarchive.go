// Package imgarchive compresses and decompresses whole backing-image
// snapshots for cmd/fsutil's backup/restore subcommands. It repurposes the
// teacher's own block-decompression dependencies (comp_zstd.go, comp_xz.go
// -- klauspost/compress and ulikunitz/xz, both gated behind build tags
// there for squashfs's per-block payloads) at the scale of one whole
// image file instead of one squashfs data block.
package imgarchive

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"github.com/ulikunitz/xz"
)

// Format selects the compression container a backup is written in.
type Format int

const (
	Zstd Format = iota
	XZ
)

func (f Format) String() string {
	if f == XZ {
		return "xz"
	}
	return "zstd"
}

// Backup streams imagePath through the chosen compressor into archivePath.
// It does not need atomic replacement itself (archivePath is a new file,
// not one a mounted filesystem depends on), unlike Restore below.
func Backup(imagePath, archivePath string, format Format) error {
	src, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("imgarchive: open image: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("imgarchive: create archive: %w", err)
	}
	defer dst.Close()

	if err := compress(dst, src, format); err != nil {
		return fmt.Errorf("imgarchive: backup: %w", err)
	}
	return nil
}

func compress(dst io.Writer, src io.Reader, format Format) error {
	if format == XZ {
		w, err := xz.NewWriter(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		return w.Close()
	}

	w, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Restore decompresses archivePath and replaces imagePath with the result.
// The replacement goes through natefinch/atomic.WriteFile, which writes to
// a temp file in imagePath's directory and renames it into place, so a
// crash or kill mid-restore leaves either the old image or the fully
// restored one -- never a half-written backing image a subsequent Mount
// could misread. This is the same all-or-nothing guarantee the in-image
// redo log gives for individual transactions, extended to the image file
// as a whole.
func Restore(archivePath, imagePath string, format Format) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("imgarchive: open archive: %w", err)
	}
	defer src.Close()

	r, closeR, err := decompress(src, format)
	if err != nil {
		return fmt.Errorf("imgarchive: restore: %w", err)
	}
	if closeR != nil {
		defer closeR()
	}

	pr, pw := io.Pipe()
	go func() {
		_, copyErr := io.Copy(pw, r)
		pw.CloseWithError(copyErr)
	}()

	if err := atomic.WriteFile(imagePath, pr); err != nil {
		return fmt.Errorf("imgarchive: atomic replace of %s: %w", imagePath, err)
	}
	return nil
}

func decompress(src io.Reader, format Format) (io.Reader, func(), error) {
	if format == XZ {
		xr, err := xz.NewReader(src)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil
	}

	zr, err := zstd.NewReader(src)
	if err != nil {
		return nil, nil, err
	}
	return zr, zr.Close, nil
}
