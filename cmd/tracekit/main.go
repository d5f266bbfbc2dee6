// tracekit assembles and validates static analysis reports: it injects
// component files into report placeholders and checks the analysis tree
// before publication.
//
// Usage:
//
//	tracekit substitute <target> <token> <source> [--output F] [--replace-all]
//	tracekit validate [root] [--verbose] [--min-size N] [--check-sync] [--json]
//	tracekit assemble <plan> [--dry-run] [--parallel N]
//	tracekit convert <in.csv> <out.json>
//	tracekit init [root] [--force]
//	tracekit index <root>...
//	tracekit list [--network N]
//	tracekit serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tracekit/internal/substitute"
	"tracekit/internal/validate"
)

// Exit codes shared by every command.
const (
	exitOK                  = 0
	exitFailure             = 1
	exitUsage               = 2
	exitNotFound            = 3
	exitPlaceholderNotFound = 4
	exitAmbiguous           = 5
)

// exitError carries an explicit exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error { return &exitError{code: exitUsage, err: err} }

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ee):
		return ee.code
	case substitute.IsNotFound(err):
		return exitNotFound
	case substitute.IsPlaceholderNotFound(err):
		return exitPlaceholderNotFound
	case substitute.IsAmbiguous(err):
		return exitAmbiguous
	case errors.Is(err, substitute.ErrEmptyToken),
		errors.Is(err, substitute.ErrRecursiveSource),
		errors.Is(err, validate.ErrRootNotFound):
		return exitUsage
	default:
		return exitFailure
	}
}

// execute runs the command tree with args and returns the exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.err != nil {
		fmt.Fprintln(stderr, "tracekit:", err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
