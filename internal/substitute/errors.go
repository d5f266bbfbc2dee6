package substitute

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below wrap them.
var (
	ErrNotFound             = errors.New("file not found")
	ErrPlaceholderNotFound  = errors.New("placeholder not found")
	ErrAmbiguousPlaceholder = errors.New("ambiguous placeholder")
	ErrEmptyToken           = errors.New("substitute: token must not be empty")
	ErrRecursiveSource      = errors.New("source contains the token it replaces")
)

// NotFoundError names the missing file and the role it plays in the call.
type NotFoundError struct {
	Role string // "target" or "source"
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s file %s not found", e.Role, e.Path)
}

func (e *NotFoundError) Unwrap() []error { return []error{ErrNotFound, e.Err} }

// PlaceholderNotFoundError means the token does not occur in the target.
type PlaceholderNotFoundError struct {
	Target string
	Token  string
}

func (e *PlaceholderNotFoundError) Error() string {
	return fmt.Sprintf("placeholder %q not found in %s", e.Token, e.Target)
}

func (e *PlaceholderNotFoundError) Unwrap() error { return ErrPlaceholderNotFound }

// AmbiguousPlaceholderError means the token occurs more than once and the
// engine was not told to replace every occurrence.
type AmbiguousPlaceholderError struct {
	Target      string
	Token       string
	Occurrences int
}

func (e *AmbiguousPlaceholderError) Error() string {
	return fmt.Sprintf("placeholder %q occurs %d times in %s (expected exactly 1; use replace-all to substitute every occurrence)",
		e.Token, e.Occurrences, e.Target)
}

func (e *AmbiguousPlaceholderError) Unwrap() error { return ErrAmbiguousPlaceholder }

// IsNotFound reports whether err is a missing target or source.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPlaceholderNotFound reports whether err is a missing token.
func IsPlaceholderNotFound(err error) bool { return errors.Is(err, ErrPlaceholderNotFound) }

// IsAmbiguous reports whether err is a multiply-occurring token.
func IsAmbiguous(err error) bool { return errors.Is(err, ErrAmbiguousPlaceholder) }
