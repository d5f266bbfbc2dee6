package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tracekit/internal/manifest"
)

func openTemp(t *testing.T) (*SQLStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestUpsertGetList(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	at := time.Date(2025, 8, 4, 12, 0, 0, 0, time.UTC)

	older := Entry{ID: "a-older", Title: "Older", Networks: []string{"base"}, AnalysisDate: "2025-01-01", Root: "/a", IndexedAt: at}
	newer := Entry{ID: "b-newer", Title: "Newer", Networks: []string{"ethereum", "base"}, AnalysisDate: "2025-06-01",
		RawURL: "https://raw.githubusercontent.com/acme/analyses/main/REPORT.html", Root: "/b", Status: "pass", Warnings: 2, IndexedAt: at}
	for _, e := range []Entry{older, newer} {
		if err := s.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert %s: %v", e.ID, err)
		}
	}

	got, err := s.Get(ctx, "b-newer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(newer, *got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != "b-newer" {
		t.Errorf("List order = %+v", all)
	}
	eth, err := s.List(ctx, ListOptions{Network: "ethereum"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(eth) != 1 || eth[0].ID != "b-newer" {
		t.Errorf("filtered list = %+v", eth)
	}

	older.Title = "Older, revised"
	if err := s.Upsert(ctx, older); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	got, _ = s.Get(ctx, "a-older")
	if got.Title != "Older, revised" {
		t.Errorf("title after upsert = %q", got.Title)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := openTemp(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsert_RequiresID(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Upsert(context.Background(), Entry{Title: "x"}); !errors.Is(err, ErrNoID) {
		t.Errorf("err = %v, want ErrNoID", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Upsert(context.Background(), Entry{ID: "kept", Title: "Kept", Root: "/k"}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(context.Background(), "kept"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestFromManifest(t *testing.T) {
	m := manifest.Example()
	e, err := FromManifest(m, "/work/aerodrome")
	if err != nil {
		t.Fatalf("FromManifest: %v", err)
	}
	if e.ID != "aerodrome-base-dex" || e.Root != "/work/aerodrome" {
		t.Errorf("entry = %+v", e)
	}
	if e.RawURL != "https://raw.githubusercontent.com/example-org/trace-analyses/main/REPORT.html" {
		t.Errorf("RawURL = %q", e.RawURL)
	}
	if diff := cmp.Diff([]string{"base"}, e.Networks); diff != "" {
		t.Errorf("networks mismatch:\n%s", diff)
	}

	if _, err := FromManifest(&manifest.Manifest{}, "/x"); !errors.Is(err, ErrNoID) {
		t.Errorf("err = %v, want ErrNoID", err)
	}
}
