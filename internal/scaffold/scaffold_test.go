package scaffold

import (
	"context"
	"errors"
	"testing"

	"tracekit/internal/fsys"
	"tracekit/internal/manifest"
	"tracekit/internal/validate"
)

func TestInit(t *testing.T) {
	mem := fsys.NewMem()
	written, err := Init(mem, "new", Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(written) != 3 {
		t.Errorf("written = %v", written)
	}
	for _, d := range Dirs {
		if !fsys.IsDir(mem, "new/"+d) {
			t.Errorf("%s not created", d)
		}
	}
	m, err := manifest.Load(mem, "new/trace-metadata.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Analysis.ID != "your-analysis-id" {
		t.Errorf("id = %q", m.Analysis.ID)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	mem := fsys.NewMem()
	mem.WriteFile("a/trace-metadata.json", []byte(`{"analysis": {"id": "mine"}}`))

	if _, err := Init(mem, "a", Options{}); !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
	if got, _ := mem.ReadFile("a/trace-metadata.json"); string(got) != `{"analysis": {"id": "mine"}}` {
		t.Errorf("manifest overwritten: %s", got)
	}
	if _, err := Init(mem, "a", Options{Force: true}); err != nil {
		t.Fatalf("forced Init: %v", err)
	}
	if got, _ := mem.ReadFile("a/trace-metadata.json"); string(got) == `{"analysis": {"id": "mine"}}` {
		t.Error("Force did not overwrite the manifest")
	}
}

func TestInit_SkeletonFailsValidation(t *testing.T) {
	mem := fsys.NewMem()
	if _, err := Init(mem, "a", Options{}); err != nil {
		t.Fatal(err)
	}
	rep, err := validate.New(mem, validate.DefaultOptions()).Run(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Passed() {
		t.Error("untouched skeleton passed validation")
	}
	var manifestErrs, placeholderErrs int
	for _, f := range rep.Findings {
		switch f.Category {
		case "manifest":
			manifestErrs++
		case "placeholders":
			placeholderErrs++
		}
	}
	if manifestErrs == 0 || placeholderErrs != 1 {
		t.Errorf("manifest errors = %d, placeholder errors = %d", manifestErrs, placeholderErrs)
	}
}
