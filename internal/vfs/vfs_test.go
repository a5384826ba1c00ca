package vfs

import (
	"errors"
	"io"
	"io/fs"
	"testing"
)

var errBoom = errors.New("boom")

func writeAll(t *testing.T, v VFS, p, content string) error {
	t.Helper()
	w, err := v.Create(p)
	if err != nil {
		return err
	}
	_, werr := io.WriteString(w, content)
	cerr := w.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func TestMemFS_CreateAndRead(t *testing.T) {
	m := NewMemFS()
	if err := m.MkdirAll("/data/coasters", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := writeAll(t, m, "/data/coasters/a.csv", "hello"); err != nil {
		t.Fatalf("write error = %v", err)
	}

	got, err := m.ReadFile("/data/coasters/a.csv")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("ReadFile() = %q, want %q", got, "hello")
	}
	if !m.Exists("/data/coasters") {
		t.Error("Exists(dir) = false, want true")
	}
}

func TestMemFS_CreateMissingParent(t *testing.T) {
	m := NewMemFS()
	_, err := m.Create("/missing/a.csv")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Create() error = %v, want ErrNotExist", err)
	}
}

func TestMemFS_RenameReplaces(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/d/a.tmp", "new")
	_ = m.AddFile("/d/a", "old")

	if err := m.Rename("/d/a.tmp", "/d/a"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got, _ := m.Content("/d/a"); got != "new" {
		t.Errorf("Content() = %q, want %q", got, "new")
	}
	if m.Exists("/d/a.tmp") {
		t.Error("source still exists after rename")
	}
}

func TestMemFS_FailOn(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		run  func(m *MemFS) error
	}{
		{"rename", OpRename, func(m *MemFS) error { return m.Rename("/d/a", "/d/b") }},
		{"remove", OpRemove, func(m *MemFS) error { return m.Remove("/d/a") }},
		{"open", OpOpen, func(m *MemFS) error { _, err := m.ReadFile("/d/a"); return err }},
		{"create", OpCreate, func(m *MemFS) error { _, err := m.Create("/d/a"); return err }},
		{"write", OpWrite, func(m *MemFS) error { return writeAll(t, m, "/d/a", "x") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemFS()
			_ = m.AddFile("/d/a", "content")
			m.FailOn(tt.op, "/d/a", errBoom)

			if err := tt.run(m); !errors.Is(err, errBoom) {
				t.Errorf("error = %v, want %v", err, errBoom)
			}

			m.FailOn(tt.op, "/d/a", nil)
			if err := tt.run(m); err != nil {
				t.Errorf("after clearing failure, error = %v", err)
			}
		})
	}
}

func TestMemFS_ReadDir(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/d/b.csv", "")
	_ = m.AddFile("/d/a.csv", "")
	_ = m.AddFile("/d/sub/c.csv", "")

	entries, err := m.ReadDir("/d")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a.csv", "b.csv", "sub"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ReadDir()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCopy(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/d/src", "payload")
	_ = m.AddFile("/d/dst", "stale")

	if err := Copy(m, "/d/src", "/d/dst"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got, _ := m.Content("/d/dst"); got != "payload" {
		t.Errorf("Content() = %q, want %q", got, "payload")
	}
}

func TestOSFS_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	o := NewOSFS()
	p := o.Join(dir, "a.csv")

	if err := writeAll(t, o, p, "x,y"); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if !o.Exists(p) {
		t.Fatal("Exists() = false after write")
	}
	if err := o.Rename(p, o.Join(dir, "b.csv")); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	entries, err := o.ReadDir(dir)
	if err != nil || len(entries) != 1 || entries[0].Name() != "b.csv" {
		t.Errorf("ReadDir() = %v, %v", entries, err)
	}
}
