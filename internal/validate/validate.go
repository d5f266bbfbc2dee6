// Package validate checks an analysis directory for structural completeness,
// file pairing, minimum sizes, manifest quality, unresolved placeholders and,
// optionally, content sync between the data files and the report.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"tracekit/internal/finding"
	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	"tracekit/internal/manifest"
)

// ErrRootNotFound is the only failure that prevents a report from being built.
var ErrRootNotFound = errors.New("validate: analysis root not found")

// Check names one validation pass. It is also the finding category.
type Check string

const (
	CheckStructure    Check = "structure"
	CheckPairing      Check = "pairing"
	CheckSize         Check = "size"
	CheckManifest     Check = "manifest"
	CheckPlaceholders Check = "placeholders"
	CheckSync         Check = "sync"
)

// AllChecks lists every check in report order.
func AllChecks() []Check {
	return []Check{CheckStructure, CheckPairing, CheckSize, CheckManifest, CheckPlaceholders, CheckSync}
}

// ParseCheck resolves a check name.
func ParseCheck(s string) (Check, error) {
	for _, c := range AllChecks() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown check %q", s)
}

// Thresholds are minimum file sizes in bytes per category.
type Thresholds struct {
	Query  int64 `json:"query" yaml:"query"`
	Data   int64 `json:"data" yaml:"data"`
	Visual int64 `json:"visual" yaml:"visual"`
}

// DefaultThresholds returns the stock minimum sizes.
func DefaultThresholds() Thresholds {
	return Thresholds{Query: 20, Data: 100, Visual: 500}
}

// Uniform returns thresholds with n for every category.
func Uniform(n int64) Thresholds {
	return Thresholds{Query: n, Data: n, Visual: n}
}

func (t Thresholds) For(c Category) int64 {
	switch c {
	case CategoryQuery:
		return t.Query
	case CategoryData:
		return t.Data
	default:
		return t.Visual
	}
}

// Options configure an Engine.
type Options struct {
	Thresholds Thresholds
	// CheckSync enables the sync check, which is off by default.
	CheckSync bool
	// Skip disables individual checks.
	Skip []Check
	// Verbose keeps info findings in the report.
	Verbose bool
	// Rules replaces the default manifest rules when non-nil.
	Rules []manifest.Rule
}

// DefaultOptions returns options with the stock thresholds and all checks
// except sync enabled.
func DefaultOptions() Options {
	return Options{Thresholds: DefaultThresholds()}
}

// Status is the verdict of a run.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Report is the outcome of a validation run.
type Report struct {
	Status   Status            `json:"status"`
	Root     string            `json:"root"`
	Summary  finding.Counts    `json:"summary"`
	Findings []finding.Finding `json:"findings"`
}

// Passed reports whether the run found no errors.
func (r *Report) Passed() bool { return r.Status == StatusPass }

// Engine runs the checks against an analysis directory.
type Engine struct {
	fs    fsys.FS
	opts  Options
	rules []manifest.Rule
	log   *slog.Logger
}

// New returns an Engine reading through f.
func New(f fsys.FS, opts Options) *Engine {
	rules := opts.Rules
	if rules == nil {
		rules = manifest.DefaultRules(manifest.Example())
	}
	return &Engine{fs: f, opts: opts, rules: rules, log: logging.New("validate")}
}

func (e *Engine) enabled() []Check {
	skip := make(map[Check]bool, len(e.opts.Skip))
	for _, c := range e.opts.Skip {
		skip[c] = true
	}
	var out []Check
	for _, c := range AllChecks() {
		if skip[c] || (c == CheckSync && !e.opts.CheckSync) {
			continue
		}
		out = append(out, c)
	}
	return out
}

type checkFunc func(t *tree) []finding.Finding

func (e *Engine) checkFor(c Check) checkFunc {
	switch c {
	case CheckStructure:
		return checkStructure
	case CheckPairing:
		return checkPairing
	case CheckSize:
		return e.checkSize
	case CheckManifest:
		return e.checkManifest
	case CheckPlaceholders:
		return checkPlaceholders
	default:
		return checkSync
	}
}

// Run validates the analysis rooted at root. Problems with the analysis are
// findings; the error is non-nil only when root is missing or ctx ends.
func (e *Engine) Run(ctx context.Context, root string) (*Report, error) {
	if !fsys.IsDir(e.fs, root) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	t := scanTree(e.fs, root)
	checks := e.enabled()

	results := make([][]finding.Finding, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		fn := e.checkFor(c)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := fn(t)
			sort.SliceStable(out, func(a, b int) bool { return out[a].File < out[b].File })
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Root: root, Findings: []finding.Finding{}}
	for _, fs := range results {
		for _, f := range fs {
			if f.Severity == finding.Info && !e.opts.Verbose {
				continue
			}
			rep.Findings = append(rep.Findings, f)
		}
	}
	rep.Summary = finding.Count(rep.Findings)
	rep.Status = StatusPass
	if rep.Summary.Errors > 0 {
		rep.Status = StatusFail
	}
	e.log.Info("validation finished", "root", root, "status", rep.Status,
		"errors", rep.Summary.Errors, "warnings", rep.Summary.Warnings, "checks", len(checks))
	return rep, nil
}
