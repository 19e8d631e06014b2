package reconciler

import (
	"errors"
	"fmt"
)

// ErrServerNotFound is returned by Remove when the named server is not
// present in the config.
var ErrServerNotFound = errors.New("server not found")

// MissingRequiredArgError reports a required template argument the
// caller did not supply.
type MissingRequiredArgError struct {
	Arg string
}

func (e *MissingRequiredArgError) Error() string {
	return fmt.Sprintf("missing required argument %q", e.Arg)
}

// UnknownArgError reports a supplied argument the descriptor does not
// declare. Unknown arguments are rejected rather than silently dropped
// so a typo'd flag never disappears into a broken install.
type UnknownArgError struct {
	Arg string
}

func (e *UnknownArgError) Error() string {
	return fmt.Sprintf("unknown argument %q", e.Arg)
}

// UnresolvedPlaceholderError reports a template token that still
// contains placeholder syntax after substitution. An entry with a
// dangling placeholder is a defect, never a valid persisted state.
type UnresolvedPlaceholderError struct {
	Token string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("unresolved placeholder in %q", e.Token)
}

// ParseError reports a config file that exists but cannot be parsed.
// The file is never auto-repaired or reset: a corrupt config is a human
// decision point, not something to silently discard.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
