package unixfs

import (
	"io/fs"
	"testing"
)

func TestFSOpenReadsRegularFile(t *testing.T) {
	fsys := newTestFS(t, 2048)

	ip, err := fsys.Create("/greeting.txt", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []byte("hello, unixfs")
	if _, err := fsys.WriteAt(ip, want, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	fsys.Release(ip)

	data, err := fs.ReadFile(fsys, "greeting.txt")
	if err != nil {
		t.Fatalf("fs.ReadFile: %v", err)
	}
	if string(data) != string(want) {
		t.Fatalf("content = %q, want %q", data, want)
	}
}

func TestFSReadDirSkipsDotEntries(t *testing.T) {
	fsys := newTestFS(t, 2048)

	d, err := fsys.Mkdir("/dir")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fsys.Release(d)

	for _, name := range []string{"/dir/a", "/dir/b"} {
		f, err := fsys.Create(name, TypeFile, 0, 0)
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		fsys.Release(f)
	}

	entries, err := fsys.ReadDir("dir")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2", entries)
	}
	for _, e := range entries {
		if e.Name() == "." || e.Name() == ".." {
			t.Fatalf("ReadDir leaked a dot entry: %q", e.Name())
		}
	}
}

func TestFSStatReportsSize(t *testing.T) {
	fsys := newTestFS(t, 2048)

	ip, err := fsys.Create("/sized.bin", TypeFile, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := make([]byte, 100)
	if _, err := fsys.WriteAt(ip, payload, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	fsys.Release(ip)

	info, err := fsys.Stat("sized.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", info.Size(), len(payload))
	}
	if info.IsDir() {
		t.Fatal("IsDir() = true for a regular file")
	}
}

func TestFSOpenRejectsInvalidPath(t *testing.T) {
	fsys := newTestFS(t, 2048)

	if _, err := fsys.Open("../escape"); err == nil {
		t.Fatal("Open(\"../escape\"): want error, got nil")
	}
}
