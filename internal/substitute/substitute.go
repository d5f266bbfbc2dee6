// Package substitute injects the verbatim contents of a file into a target
// document at the position of a literal placeholder token.
//
// The token is plain text: no pattern syntax is interpreted. By default a
// token must occur exactly once in the target; a second run against an
// already-substituted target fails with ErrPlaceholderNotFound, which guards
// against double injection.
//
// Calls against the same target must be issued sequentially by the caller.
// The engine does not lock files.
package substitute

import (
	"bytes"
	"fmt"
	"log/slog"

	"tracekit/internal/fsys"
	"tracekit/internal/logging"
)

// Multiplicity decides what happens when a token occurs more than once.
type Multiplicity int

const (
	// MultiplicityDefault defers to the engine's configured policy.
	MultiplicityDefault Multiplicity = iota
	// MultiplicityError rejects a token occurring more than once.
	MultiplicityError
	// MultiplicityReplaceAll replaces every occurrence with the same content.
	MultiplicityReplaceAll
)

func (m Multiplicity) String() string {
	switch m {
	case MultiplicityError:
		return "error"
	case MultiplicityReplaceAll:
		return "replace-all"
	default:
		return "default"
	}
}

// ParseMultiplicity accepts "", "error" and "replace-all".
func ParseMultiplicity(s string) (Multiplicity, error) {
	switch s {
	case "":
		return MultiplicityDefault, nil
	case "error":
		return MultiplicityError, nil
	case "replace-all", "replace_all", "all":
		return MultiplicityReplaceAll, nil
	default:
		return MultiplicityDefault, fmt.Errorf("substitute: unknown multiplicity %q (want error or replace-all)", s)
	}
}

// Request is one (target, token, source) triple.
type Request struct {
	Target string
	Token  string
	Source string
	// Output, when set, receives the result instead of Target. Target is
	// left untouched.
	Output       string
	Multiplicity Multiplicity
}

// Result describes a completed substitution.
type Result struct {
	Target       string `json:"target"`
	Output       string `json:"output"`
	Token        string `json:"token"`
	Occurrences  int    `json:"occurrences"`
	BytesWritten int    `json:"bytes_written"`
}

// Engine performs substitutions against an FS.
type Engine struct {
	fs           fsys.FS
	multiplicity Multiplicity
	log          *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMultiplicity sets the engine-wide policy for repeated tokens.
func WithMultiplicity(m Multiplicity) Option {
	return func(e *Engine) {
		if m != MultiplicityDefault {
			e.multiplicity = m
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine that rejects ambiguous tokens unless configured
// otherwise.
func New(f fsys.FS, opts ...Option) *Engine {
	e := &Engine{
		fs:           f,
		multiplicity: MultiplicityError,
		log:          logging.New("substitute"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Substitute replaces token in target with the full content of source and
// writes the result back to target.
func (e *Engine) Substitute(target, token, source string) (Result, error) {
	return e.Apply(Request{Target: target, Token: token, Source: source})
}

// Apply runs a single substitution request.
func (e *Engine) Apply(req Request) (Result, error) {
	if req.Token == "" {
		return Result{}, ErrEmptyToken
	}

	content, err := e.read("target", req.Target)
	if err != nil {
		return Result{}, err
	}
	replacement, err := e.read("source", req.Source)
	if err != nil {
		return Result{}, err
	}

	tok := []byte(req.Token)
	if bytes.Contains(replacement, tok) {
		return Result{}, fmt.Errorf("substitute: %s: %w %q", req.Source, ErrRecursiveSource, req.Token)
	}

	n := bytes.Count(content, tok)
	if n == 0 {
		return Result{}, &PlaceholderNotFoundError{Target: req.Target, Token: req.Token}
	}

	policy := req.Multiplicity
	if policy == MultiplicityDefault {
		policy = e.multiplicity
	}
	if n > 1 && policy != MultiplicityReplaceAll {
		return Result{}, &AmbiguousPlaceholderError{Target: req.Target, Token: req.Token, Occurrences: n}
	}

	updated := bytes.ReplaceAll(content, tok, replacement)

	out := req.Target
	if req.Output != "" {
		out = req.Output
	}
	if err := e.fs.WriteFileAtomic(out, updated); err != nil {
		return Result{}, fmt.Errorf("substitute: write %s: %w", out, err)
	}

	e.log.Info("placeholder replaced",
		slog.String("target", req.Target),
		slog.String("token", req.Token),
		slog.String("source", req.Source),
		slog.Int("occurrences", n),
		slog.String("output", out),
	)

	return Result{
		Target:       req.Target,
		Output:       out,
		Token:        req.Token,
		Occurrences:  n,
		BytesWritten: len(updated),
	}, nil
}

func (e *Engine) read(role, path string) ([]byte, error) {
	data, err := e.fs.ReadFile(path)
	if err != nil {
		if fsys.IsNotExist(err) {
			return nil, &NotFoundError{Role: role, Path: path, Err: err}
		}
		return nil, fmt.Errorf("substitute: read %s %s: %w", role, path, err)
	}
	return data, nil
}
