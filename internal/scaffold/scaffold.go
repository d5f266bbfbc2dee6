// Package scaffold creates the skeleton of a new analysis.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	"tracekit/internal/manifest"
)

//go:embed templates/*
var templates embed.FS

// Dirs are created empty under the analysis root.
var Dirs = []string{"queries", "data", "visuals"}

// ErrExists is returned when Init would overwrite files without Force.
var ErrExists = errors.New("scaffold: analysis files already exist")

// Options configure Init.
type Options struct {
	// Force overwrites existing skeleton files.
	Force bool
}

// Init writes the component directories, a template manifest, a report
// template and an assembly plan under root. It returns the files written.
func Init(f fsys.FS, root string, opts Options) ([]string, error) {
	files := map[string][]byte{manifest.FileName: manifest.Template()}
	for _, name := range []string{manifest.DefaultReportFile, "assemble.yaml"} {
		data, err := templates.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("scaffold: embedded %s: %w", name, err)
		}
		files[name] = data
	}
	order := []string{manifest.FileName, manifest.DefaultReportFile, "assemble.yaml"}

	if !opts.Force {
		var existing []string
		for _, name := range order {
			if fsys.Exists(f, filepath.Join(root, name)) {
				existing = append(existing, name)
			}
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, strings.Join(existing, ", "))
		}
	}

	for _, d := range Dirs {
		if err := f.MkdirAll(filepath.Join(root, d)); err != nil {
			return nil, fmt.Errorf("scaffold: %w", err)
		}
	}
	var written []string
	for _, name := range order {
		p := filepath.Join(root, name)
		if err := f.WriteFileAtomic(p, files[name]); err != nil {
			return written, fmt.Errorf("scaffold: %w", err)
		}
		written = append(written, p)
	}
	logging.New("scaffold").Info("analysis initialized", "root", root, "files", len(written))
	return written, nil
}
