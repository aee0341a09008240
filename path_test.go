package unixfs

import "testing"

func TestNameiParentSplitsLastElement(t *testing.T) {
	fs := newTestFS(t, 2048)

	d, err := fs.Mkdir("/a")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fs.Release(d)

	dp, name, err := fs.nameiparent("/a/b.txt")
	if err != nil {
		t.Fatalf("nameiparent: %v", err)
	}
	defer fs.iput(dp)

	if name != "b.txt" {
		t.Fatalf("name = %q, want %q", name, "b.txt")
	}
	if dp.inum == RootIno {
		t.Fatalf("nameiparent resolved to root, want /a's inode")
	}
}

func TestNameiResolvesNestedPath(t *testing.T) {
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

	ip, err := fs.namei("/a/b")
	if err != nil {
		t.Fatalf("namei: %v", err)
	}
	defer fs.iput(ip)

	if ip.dinode.Type != TypeDir {
		t.Fatalf("type = %v, want TypeDir", ip.dinode.Type)
	}
}

func TestNameiMissingPathFails(t *testing.T) {
	fs := newTestFS(t, 2048)

	if _, err := fs.namei("/nope"); err == nil {
		t.Fatal("namei on missing path: want error, got nil")
	}
}

func TestNameiTraversingNonDirectoryFails(t *testing.T) {
	fs := newTestFS(t, 2048)

	f, err := fs.Create("/file", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs.Release(f)

	if _, err := fs.namei("/file/x"); err == nil {
		t.Fatal("namei through a file component: want error, got nil")
	}
}
