package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	"tracekit/internal/substitute"
)

// DefaultParallel bounds concurrent target groups when Options.Parallel is 0.
const DefaultParallel = 4

// Options configure a Runner.
type Options struct {
	// Parallel is the maximum number of targets assembled at once.
	Parallel int
	// DryRun checks every step against the current tree without writing.
	DryRun bool
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	Target       string `json:"target"`
	Token        string `json:"token,omitempty"`
	Source       string `json:"source"`
	Occurrences  int    `json:"occurrences"`
	BytesWritten int    `json:"bytes_written"`
}

// Outcome lists executed steps in plan order.
type Outcome struct {
	DryRun   bool          `json:"dry_run"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration_ns"`
}

// StepError names the step that stopped a target's group.
type StepError struct {
	Index  int
	Target string
	Token  string
	Err    error
}

func (e *StepError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("assemble: step %d (copy to %s): %v", e.Index, e.Target, e.Err)
	}
	return fmt.Sprintf("assemble: step %d (%s, %s): %v", e.Index, e.Target, e.Token, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner executes plans against an FS.
type Runner struct {
	fs   fsys.FS
	opts Options
	log  *slog.Logger
}

// NewRunner returns a Runner writing through f.
func NewRunner(f fsys.FS, opts Options) *Runner {
	if opts.Parallel <= 0 {
		opts.Parallel = DefaultParallel
	}
	return &Runner{fs: f, opts: opts, log: logging.New("assemble")}
}

// Run executes plan. Steps writing the same file run in plan order; distinct
// files are assembled concurrently once their inputs are ready. The first
// failure cancels the remaining work and is returned as a *StepError.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Outcome, error) {
	start := time.Now()
	stages, err := plan.stages()
	if err != nil {
		return nil, err
	}

	target := r.fs
	var opts []substitute.Option
	if r.opts.DryRun {
		target = newOverlay(r.fs)
		opts = append(opts, substitute.WithLogger(logging.New("substitute").With("dry_run", true)))
	}
	engine := substitute.New(target, opts...)

	results := make([]StepResult, len(plan.Steps))
	executed := make([]bool, len(plan.Steps))
	for _, stage := range stages {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Parallel)
		for _, grp := range stage {
			g.Go(func() error {
				for _, i := range grp.indices {
					if err := gctx.Err(); err != nil {
						return err
					}
					res, err := r.step(target, engine, plan, i)
					if err != nil {
						s := plan.Steps[i]
						return &StepError{Index: i, Target: s.Output(), Token: s.Token, Err: err}
					}
					results[i], executed[i] = res, true
				}
				r.log.Info("target assembled", "target", grp.output, "steps", len(grp.indices), "dry_run", r.opts.DryRun)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := &Outcome{DryRun: r.opts.DryRun, Steps: []StepResult{}, Duration: time.Since(start)}
	for i, ok := range executed {
		if ok {
			out.Steps = append(out.Steps, results[i])
		}
	}
	return out, nil
}

func (r *Runner) step(f fsys.FS, engine *substitute.Engine, plan *Plan, i int) (StepResult, error) {
	s := plan.Steps[i]
	if s.Copy != nil {
		from, to := plan.resolve(s.Copy.From), plan.resolve(s.Copy.To)
		data, err := f.ReadFile(from)
		if fsys.IsNotExist(err) {
			return StepResult{}, &substitute.NotFoundError{Role: "copy source", Path: from, Err: err}
		}
		if err != nil {
			return StepResult{}, err
		}
		if err := f.MkdirAll(filepath.Dir(to)); err != nil {
			return StepResult{}, err
		}
		if err := f.WriteFileAtomic(to, data); err != nil {
			return StepResult{}, err
		}
		return StepResult{Index: i, Kind: s.kind(), Target: to, Source: from, BytesWritten: len(data)}, nil
	}

	m, _ := substitute.ParseMultiplicity(s.Multiplicity)
	res, err := engine.Apply(substitute.Request{
		Target:       plan.resolve(s.Target),
		Token:        s.Token,
		Source:       plan.resolve(s.Source),
		Multiplicity: m,
	})
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Index:        i,
		Kind:         s.kind(),
		Target:       res.Target,
		Token:        res.Token,
		Source:       plan.resolve(s.Source),
		Occurrences:  res.Occurrences,
		BytesWritten: res.BytesWritten,
	}, nil
}
