package vfs

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

func TestMemFSReadWrite(t *testing.T) {
	m := NewMemFS()
	if err := m.AddFile("/dir/sub/a.txt", "hello"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	got, err := m.ReadFile("dir/sub/a.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	if err := m.WriteFile("/dir/sub/a.txt", []byte("bye"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := m.Stat("/dir/sub/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 3 || info.Mode().Perm() != 0o644 {
		t.Errorf("Stat = size %d mode %v; want 3, 0644 kept", info.Size(), info.Mode())
	}
	if !m.Exists("/dir/sub") || !m.Exists("/dir/sub/a.txt") {
		t.Error("Exists should report parent dirs and files")
	}
}

func TestMemFSErrors(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/a.txt", "x")

	if _, err := m.ReadFile("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile missing: %v", err)
	}
	if _, err := m.Stat("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat missing: %v", err)
	}
	if err := m.WriteFile("/nodir/b.txt", nil, 0o644); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("WriteFile without parent: %v", err)
	}

	if err := m.Chmod("/a.txt", 0o444); err != nil {
		t.Fatal(err)
	}
	info, _ := m.Stat("/a.txt")
	if info.Writable() {
		t.Error("0444 file reported writable")
	}
	if err := m.WriteFile("/a.txt", []byte("y"), 0o644); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("WriteFile read-only: %v", err)
	}
}

func TestMemFSClock(t *testing.T) {
	m := NewMemFS()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.SetClock(func() time.Time { return at })
	_ = m.AddFile("/a.txt", "x")

	info, _ := m.Stat("/a.txt")
	if !info.ModTime().Equal(at) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), at)
	}
}

func TestMemFSRemove(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/a.txt", "x")
	if err := m.Remove("/a.txt"); err != nil {
		t.Fatal(err)
	}
	if m.Exists("/a.txt") || len(m.Files()) != 0 {
		t.Error("file survived Remove")
	}
}

func TestMemFSPaths(t *testing.T) {
	m := NewMemFS()
	abs, _ := m.Abs("x/../y/z.txt")
	if abs != "/y/z.txt" {
		t.Errorf("Abs = %q", abs)
	}
	if m.Join("/a", "b") != "/a/b" || m.Dir("/a/b") != "/a" {
		t.Error("Join/Dir")
	}
	if !m.IsAbs("/a") || m.IsAbs("a") {
		t.Error("IsAbs")
	}
}
