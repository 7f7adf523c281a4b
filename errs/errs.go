// Package errs collects the tagged, user-facing error kinds named in
// spec.md §7 that aren't already sentinel values owned by the package
// that detects them (hash.ErrInvalidHash, objstore.ErrFormat, and so
// on). Kinds are Go types, not strings, so callers can dispatch on them
// with errors.As/xerrors.As.
package errs

import "fmt"

// RepositoryError reports an invariant violation recoverable by a user
// action: uncommitted changes before checkout, an unborn HEAD, no
// common ancestor, and similar.
type RepositoryError struct {
	Msg string
}

func (e *RepositoryError) Error() string { return e.Msg }

// NewRepositoryError builds a RepositoryError with a formatted message.
func NewRepositoryError(format string, args ...interface{}) *RepositoryError {
	return &RepositoryError{Msg: fmt.Sprintf(format, args...)}
}

// CommandSubtype distinguishes the flavors of user-facing argument
// error a CLI command can raise.
type CommandSubtype string

const (
	UnknownOption    CommandSubtype = "unknown_option"
	IncorrectAmount  CommandSubtype = "incorrect_amount"
	InvalidBranch    CommandSubtype = "invalid_branch"
	InvalidArgument  CommandSubtype = "invalid_argument"
	InexistentPath   CommandSubtype = "inexistent_path"
)

// CommandError is a user-facing argument error raised by a CLI command.
type CommandError struct {
	Subtype CommandSubtype
	Msg     string
}

func (e *CommandError) Error() string { return e.Msg }

// NewCommandError builds a CommandError of the given subtype.
func NewCommandError(subtype CommandSubtype, format string, args ...interface{}) *CommandError {
	return &CommandError{Subtype: subtype, Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports a missing identity or malformed configuration file.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ProtocolError reports a packfile or pkt-line violation observed by
// either side of the wire protocol.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return e.Msg }

// NewProtocolError builds a ProtocolError with a formatted message.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// HTTPError carries a status code and message for the PR API, mapped
// straight onto the HTTP response (spec.md §4.13).
type HTTPError struct {
	Status int
	Msg    string
}

func (e *HTTPError) Error() string { return e.Msg }

// BadRequest builds a 400 HTTPError.
func BadRequest(format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: 400, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a 404 HTTPError.
func NotFound(format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: 404, Msg: fmt.Sprintf(format, args...)}
}

// MethodNotAllowed builds a 405 HTTPError.
func MethodNotAllowed(format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: 405, Msg: fmt.Sprintf(format, args...)}
}
