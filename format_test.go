package unixfs

import "testing"

func TestFormatRejectsImageTooSmallForMetadata(t *testing.T) {
	dev := NewMemDisk(4)
	if err := Format(dev, 4); err == nil {
		t.Fatal("Format on a too-small image: want error, got nil")
	}
}

func TestFormatLaysOutSuperblockAndRootDir(t *testing.T) {
	dev := NewMemDisk(2048)
	if err := Format(dev, 2048); err != nil {
		t.Fatalf("Format: %v", err)
	}

	sb, err := readSuperblock(dev)
	if err != nil {
		t.Fatalf("readSuperblock: %v", err)
	}
	if sb.Magic != SuperblockMagic {
		t.Fatalf("Magic = %#x, want %#x", sb.Magic, SuperblockMagic)
	}
	if sb.Size != 2048 {
		t.Fatalf("Size = %d, want 2048", sb.Size)
	}
	if sb.NInodes != 200 {
		t.Fatalf("NInodes = %d, want 200 (default)", sb.NInodes)
	}

	dataStart := sb.Size - sb.NBlocks
	rootBlk, err := dev.Read(dataStart)
	if err != nil {
		t.Fatalf("Read root data block: %v", err)
	}
	dot := decodeDirent(rootBlk[0:dirEntSize])
	if dot.Inum != RootIno || direntName(dot.Name) != "." {
		t.Fatalf("root entry 0 = %+v, want \".\" -> %d", dot, RootIno)
	}
}

func TestFormatWithInodeCountOption(t *testing.T) {
	dev := NewMemDisk(2048)
	if err := Format(dev, 2048, WithInodeCount(64)); err != nil {
		t.Fatalf("Format: %v", err)
	}
	sb, err := readSuperblock(dev)
	if err != nil {
		t.Fatalf("readSuperblock: %v", err)
	}
	if sb.NInodes != 64 {
		t.Fatalf("NInodes = %d, want 64", sb.NInodes)
	}
}
