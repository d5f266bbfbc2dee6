package fsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOS_WriteFileAtomic_ReplacesContentAndKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "REPORT.html")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := (OS{}).WriteFileAtomic(path, []byte("new content")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new content" {
		t.Errorf("content = %q, want %q", got, "new content")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestOS_WriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "x.html")
	if err := (OS{}).WriteFileAtomic(path, []byte("x")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestOS_ReadDirSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"02_b.json", "01_a.json", "03_c.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	infos, err := (OS{}).ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name)
	}
	want := []string{"01_a.json", "02_b.json", "03_c.json"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("ReadDir mismatch (-want +got):\n%s", diff)
	}
}

func TestOS_StatMissing(t *testing.T) {
	_, err := (OS{}).Stat(filepath.Join(t.TempDir(), "missing"))
	if !IsNotExist(err) {
		t.Errorf("Stat err = %v, want not-exist", err)
	}
}

func TestMem_ReadDirListsDirectChildren(t *testing.T) {
	m := NewMem()
	m.WriteFile("root/data/01_a.json", []byte("[]"))
	m.WriteFile("root/data/02_b.json", []byte("[1]"))
	m.WriteFile("root/REPORT.html", []byte("<html>"))
	if err := m.MkdirAll("root/visuals"); err != nil {
		t.Fatal(err)
	}

	infos, err := m.ReadDir("root")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	want := []FileInfo{
		{Name: "REPORT.html", Size: 6},
		{Name: "data", IsDir: true},
		{Name: "visuals", IsDir: true},
	}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Errorf("ReadDir mismatch (-want +got):\n%s", diff)
	}
}

func TestMem_StatAndExists(t *testing.T) {
	m := NewMem()
	m.WriteFile("/a/b/c.sql", []byte("SELECT 1"))

	if !IsDir(m, "/a/b") {
		t.Error("/a/b should be an implicit directory")
	}
	if !Exists(m, "/a/b/c.sql") {
		t.Error("/a/b/c.sql should exist")
	}
	info, err := m.Stat("/a/b/c.sql")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 8 {
		t.Errorf("Size = %d, want 8", info.Size)
	}
	if _, err := m.ReadFile("/a/missing"); !IsNotExist(err) {
		t.Errorf("ReadFile err = %v, want not-exist", err)
	}
}

func TestMem_WriteFileAtomicNeedsParent(t *testing.T) {
	m := NewMem()
	if err := m.WriteFileAtomic("x/y.html", []byte("y")); !IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
	if err := m.MkdirAll("x"); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteFileAtomic("x/y.html", []byte("y")); err != nil {
		t.Errorf("WriteFileAtomic: %v", err)
	}
}

func TestMem_CopiesData(t *testing.T) {
	m := NewMem()
	src := []byte("abc")
	m.WriteFile("f", src)
	src[0] = 'z'
	got, _ := m.ReadFile("f")
	if string(got) != "abc" {
		t.Errorf("stored data aliased caller slice: %q", got)
	}
}
