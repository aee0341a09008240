package unixfs

import (
	"context"
	"testing"
)

func TestFsckCleanImageHasNoViolations(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/a")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	f, err := fs.Create("/a/f", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := fs.WriteAt(f, make([]byte, 3*BSIZE), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	fs.Release(f)

	report, err := fs.Fsck(context.Background())
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if len(report.Violations) != 0 {
		t.Fatalf("violations = %v, want none", report.Violations)
	}
	if report.InodesScanned < 2 {
		t.Fatalf("inodes scanned = %d, want at least 2", report.InodesScanned)
	}
}

func TestFsckDetectsBadNlink(t *testing.T) {
	fs := newTestFS(t, 2048)

	f, err := fs.Create("/f", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	inum := f.inum
	fs.Release(f)

	fs.BeginOp()
	ip := fs.iget(inum)
	fs.ilock(ip)
	ip.dinode.Nlink = 0
	fs.iupdate(ip)
	fs.iunlock(ip)
	fs.EndOp()
	// Hold the reference until fsck has run: dropping the last reference to
	// an inode with nlink 0 reclaims it, and fsck skips free inodes.
	defer fs.Release(ip)

	report, err := fs.Fsck(context.Background())
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	found := false
	for _, v := range report.Violations {
		if v.Kind == "nlink" && v.Inum == inum {
			found = true
		}
	}
	if !found {
		t.Fatalf("violations = %v, want an nlink violation for inode %d", report.Violations, inum)
	}
}
