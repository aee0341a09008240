package unixfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"reflect"
)

// Superblock is the bit-exact on-disk header described in spec §3 and §6:
// block 1 of the image, little-endian throughout, built offline by the
// formatter (cmd/mkfs) and read-only once the filesystem is mounted.
//
// Field order is part of the on-disk format — do not reorder.
type Superblock struct {
	Magic       uint32 // SuperblockMagic
	Size        uint32 // total block count
	NBlocks     uint32 // data-block count
	NInodes     uint32 // inode count
	NLog        uint32 // log length, in blocks (includes the header block)
	LogStart    uint32 // first block of the log region
	InodeStart  uint32 // first block of the inode table
	BitmapStart uint32 // first block of the free-block bitmap
}

// binarySize returns the on-disk size of a Superblock: the sum of its
// exported fields' sizes, computed by reflection rather than hardcoded so a
// future field addition can't silently desync the constant from the struct.
func binarySize(v reflect.Value) int {
	t := v.Type()
	sz := 0
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		sz += int(v.Field(i).Type().Size())
	}
	return sz
}

// readSuperblock reads and validates the superblock at SuperblockBlock.
func readSuperblock(dev Disk) (*Superblock, error) {
	sb := &Superblock{}
	v := reflect.ValueOf(sb).Elem()
	raw := make([]byte, binarySize(v))

	blk, err := dev.Read(SuperblockBlock)
	if err != nil {
		return nil, fmt.Errorf("unixfs: read superblock: %w", err)
	}
	copy(raw, blk[:])

	r := bytes.NewReader(raw)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		if err := binary.Read(r, binary.LittleEndian, v.Field(i).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("unixfs: decode superblock field %s: %w", name, err)
		}
	}

	if sb.Magic != SuperblockMagic {
		return nil, ErrInvalidImage
	}
	if sb.NLog < 2 || sb.NLog-1 > LogSize {
		fatalf(FatalCorruptSuperblock, "log length %d out of range", sb.NLog)
	}
	if sb.NInodes == 0 {
		fatal(FatalCorruptSuperblock, "zero inodes")
	}
	slog.Debug("unixfs: superblock loaded", "size", sb.Size, "nblocks", sb.NBlocks, "ninodes", sb.NInodes)
	return sb, nil
}

// writeSuperblock serializes sb and writes it to SuperblockBlock. Used only
// by the formatter (Format) — the superblock is read-only at mount time.
func writeSuperblock(dev Disk, sb *Superblock) error {
	v := reflect.ValueOf(sb).Elem()
	buf := &bytes.Buffer{}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		if err := binary.Write(buf, binary.LittleEndian, v.Field(i).Interface()); err != nil {
			return fmt.Errorf("unixfs: encode superblock field %s: %w", name, err)
		}
	}

	var blk Block
	copy(blk[:], buf.Bytes())
	return dev.Write(SuperblockBlock, &blk)
}

// IBlock returns the block number of the disk inode table block that holds inum.
func (sb *Superblock) IBlock(inum uint32) uint32 {
	return sb.InodeStart + inum/IPB
}

// BBlock returns the bitmap block number that holds the allocation bit for
// absolute data block b (b must be >= the first data block; the bitmap's
// bit 0 corresponds to that block, not to disk block 0).
func (sb *Superblock) BBlock(b, dataStart uint32) uint32 {
	return sb.BitmapStart + (b-dataStart)/BPB
}
