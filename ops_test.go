package unixfs

import (
	"errors"
	"testing"
)

func TestCreateAndOpen(t *testing.T) {
	fs := newTestFS(t, 2048)

	ip, err := fs.Create("/hello.txt", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(ip)

	got, err := fs.Open("/hello.txt", ORdOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fs.Release(got)

	if got.dinode.Type != TypeFile {
		t.Fatalf("type = %v, want TypeFile", got.dinode.Type)
	}
}

func TestCreateCollisionOnDirFails(t *testing.T) {
	fs := newTestFS(t, 2048)

	dp, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(dp)

	if _, err := fs.Create("/d", TypeFile, 0, 0); !errors.Is(err, ErrExist) {
		t.Fatalf("Create over existing dir: err = %v, want ErrExist", err)
	}
}

func TestCreateReopensExistingFile(t *testing.T) {
	fs := newTestFS(t, 2048)

	a, err := fs.Create("/x", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(a)

	b, err := fs.Create("/x", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	defer fs.Release(b)

	if b.inum != a.inum {
		t.Fatalf("second Create returned a different inode: %d != %d", b.inum, a.inum)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS(t, 2048)

	ip, err := fs.Create("/data.bin", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer fs.Release(ip)

	want := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := fs.WriteAt(ip, want, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	got := make([]byte, len(want))
	n, err := fs.ReadAt(ip, got, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != uint32(len(want)) || string(got) != string(want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got[:n], want)
	}
}

func TestMkdirAndLookup(t *testing.T) {
	fs := newTestFS(t, 2048)

	a, err := fs.Mkdir("/a")
	if err != nil {
		t.Fatalf("Mkdir /a: %v", err)
	}
	fs.Release(a)

	b, err := fs.Mkdir("/a/b")
	if err != nil {
		t.Fatalf("Mkdir /a/b: %v", err)
	}
	fs.Release(b)

	f, err := fs.Create("/a/b/c.txt", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create /a/b/c.txt: %v", err)
	}
	fs.Release(f)

	ip, err := fs.Open("/a/b/c.txt", ORdOnly)
	if err != nil {
		t.Fatalf("Open /a/b/c.txt: %v", err)
	}
	fs.Release(ip)
}

func TestLinkAndUnlink(t *testing.T) {
	fs := newTestFS(t, 2048)

	a, err := fs.Create("/a", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(a)

	if err := fs.Link("/a", "/b"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	ip, err := fs.Open("/b", ORdOnly)
	if err != nil {
		t.Fatalf("Open /b: %v", err)
	}
	if ip.dinode.Nlink != 2 {
		t.Fatalf("nlink = %d, want 2", ip.dinode.Nlink)
	}
	fs.Release(ip)

	if err := fs.Unlink("/a"); err != nil {
		t.Fatalf("Unlink /a: %v", err)
	}

	ip, err = fs.Open("/b", ORdOnly)
	if err != nil {
		t.Fatalf("Open /b after unlinking /a: %v", err)
	}
	if ip.dinode.Nlink != 1 {
		t.Fatalf("nlink after unlink = %d, want 1", ip.dinode.Nlink)
	}
	fs.Release(ip)
}

func TestLinkRejectsDirectory(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	if err := fs.Link("/d", "/d2"); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("Link dir: err = %v, want ErrIsDirectory", err)
	}
}

func TestUnlinkRefusesNonEmptyDir(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	f, err := fs.Create("/d/f", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(f)

	if err := fs.Unlink("/d"); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("Unlink non-empty dir: err = %v, want ErrNotEmpty", err)
	}
}

func TestSymlinkChase(t *testing.T) {
	fs := newTestFS(t, 2048)

	f, err := fs.Create("/target", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(f)

	if err := fs.Symlink("/target", "/link"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	ip, err := fs.Open("/link", ORdOnly)
	if err != nil {
		t.Fatalf("Open /link: %v", err)
	}
	defer fs.Release(ip)
	if ip.dinode.Type != TypeFile {
		t.Fatalf("resolved type = %v, want TypeFile", ip.dinode.Type)
	}
}

func TestSymlinkNoFollow(t *testing.T) {
	fs := newTestFS(t, 2048)

	f, err := fs.Create("/target", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(f)

	if err := fs.Symlink("/target", "/link"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	ip, err := fs.Open("/link", ONoFollow)
	if err != nil {
		t.Fatalf("Open /link with ONoFollow: %v", err)
	}
	defer fs.Release(ip)
	if ip.dinode.Type != TypeSymlink {
		t.Fatalf("type = %v, want TypeSymlink", ip.dinode.Type)
	}
}

func TestSymlinkLoopIsBounded(t *testing.T) {
	fs := newTestFS(t, 2048)

	if err := fs.Symlink("/loop", "/loop"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	if _, err := fs.Open("/loop", ORdOnly); !errors.Is(err, ErrTooManySymlinks) {
		t.Fatalf("Open self-loop: err = %v, want ErrTooManySymlinks", err)
	}
}

func TestChdirRelativeResolution(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/sub")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	if err := fs.Chdir("/sub"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	f, err := fs.Create("file", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("relative Create: %v", err)
	}
	fs.Release(f)

	ip, err := fs.Open("/sub/file", ORdOnly)
	if err != nil {
		t.Fatalf("Open /sub/file: %v", err)
	}
	fs.Release(ip)
}

func TestOpenDirectoryReadOnlyIsAllowed(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	ip, err := fs.Open("/d", ORdOnly|ONoFollow)
	if err != nil {
		t.Fatalf("Open dir read-only: %v", err)
	}
	fs.Release(ip)
}

func TestOpenDirectoryForWriteFails(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/d")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	if _, err := fs.Open("/d", OWronly); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("Open dir for write: err = %v, want ErrIsDirectory", err)
	}
}

func TestMknodRecordsMajorMinor(t *testing.T) {
	fs := newTestFS(t, 2048)

	ip, err := fs.Mknod("/dev0", 1, 2)
	if err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	defer fs.Release(ip)

	if ip.dinode.Major != 1 || ip.dinode.Minor != 2 {
		t.Fatalf("major/minor = %d/%d, want 1/2", ip.dinode.Major, ip.dinode.Minor)
	}
}
