package redkit

import (
	"errors"
	"fmt"

	"github.com/l00pss/redkit/internal/pattern"
	"github.com/l00pss/redkit/internal/store"
)

// RESP error codes per spec.md §7. Handlers never write these strings
// directly; they return a Go error (sentinel or *CommandError) and
// toRESPValue renders the wire form.
const (
	codeWrongType = "WRONGTYPE"
	codeErr       = "ERR"
	codeInternal  = "500"
)

// CommandError carries an explicit RESP error code alongside a message,
// for cases the store/pattern packages' sentinel errors don't cover
// (arity, syntax, unknown command/subcommand).
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string { return e.Code + " " + e.Message }

func newCommandError(code, format string, args ...interface{}) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errUnknownCommand(name string) error {
	return newCommandError(codeErr, "unknown command '%s'", name)
}

func errWrongArgs(name string) error {
	return newCommandError(codeErr, "wrong number of arguments for '%s' command", name)
}

func errSyntax() error {
	return newCommandError(codeErr, "syntax error")
}

func errNotInteger() error {
	return newCommandError(codeErr, "value is not an integer or out of range")
}

func errDBIndexOutOfRange() error {
	return newCommandError(codeErr, "DB index is out of range")
}

// toRESPValue maps any error returned by a handler onto the RESP error
// code/message pair it should render as. Store-package sentinels and
// pattern.ErrNotImplemented are translated here; any *CommandError
// carries its own code already, and any other error renders as code 500.
func toRESPValue(err error) RedisValue {
	code, msg := translateError(err)
	return RedisValue{Type: ErrorReply, Str: code + " " + msg}
}

func translateError(err error) (code, msg string) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code, ce.Message
	}
	switch {
	case errors.Is(err, store.ErrWrongType):
		return codeWrongType, "Operation against a key holding the wrong kind of value"
	case errors.Is(err, store.ErrNoSuchKey):
		return codeErr, "no such key"
	case errors.Is(err, store.ErrNotInteger):
		return codeErr, "value is not an integer or out of range"
	case errors.Is(err, store.ErrOutOfRange):
		return codeErr, "index out of range"
	case errors.Is(err, store.ErrBadDBIndex):
		return codeErr, "DB index is out of range"
	case errors.Is(err, store.ErrSyntax):
		return codeErr, "syntax error"
	case errors.Is(err, pattern.ErrNotImplemented):
		return "500", "pattern not implemented"
	default:
		return "500", err.Error()
	}
}
