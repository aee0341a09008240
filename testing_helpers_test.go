package unixfs

import "testing"

// newTestFS formats a fresh in-memory image and mounts it, the way the
// teacher's tests open a small fixture image (squashfs_test.go) rather than
// building one at runtime -- here there is no fixture to embed, so every
// test builds its own tiny image against MemDisk instead.
func newTestFS(t *testing.T, totalBlocks uint32) *FS {
	t.Helper()
	dev := NewMemDisk(totalBlocks)
	if err := Format(dev, totalBlocks); err != nil {
		t.Fatalf("Format: %v", err)
	}
	fs, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return fs
}
