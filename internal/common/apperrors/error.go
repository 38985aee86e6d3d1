// Package apperrors provides chainable application errors. An Error carries a
// message, the error it was derived from, any number of attached causes and an
// optional HTTP status code. errors.Is walks the derivation chain and every
// attached cause.
package apperrors

import (
	"errors"
	"strings"
)

// Error is the application error interface. Every builder method returns a new
// value; the receiver is never mutated, so package-level error values are safe
// to derive from concurrently.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error                  // derive a sibling error with a new message
	Msg(msg string) Error                  // new message, receiver kept as a cause
	MsgErr(msg string, err ...error) Error // new message, receiver and err kept as causes
	Err(err ...error) Error                // same message, err attached as causes
	SetExpandError(bool) Error             // ErrorAll includes causes when set
	SetStatusCode(int) Error
	StatusCode() int
	Prefix(string) Error
	Suffix(string) Error
	ErrorAll() string
	UnwrapAll() []error
}

type appError struct {
	msg        string
	parent     error
	causes     []error
	statusCode int
	expand     bool
	prefix     string
	suffix     string
}

// New creates a root error.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) derive(msg string, causes []error) *appError {
	return &appError{
		msg:        msg,
		parent:     e,
		causes:     causes,
		statusCode: e.statusCode,
		expand:     e.expand,
	}
}

func (e *appError) Error() string {
	var b strings.Builder
	if e.prefix != "" {
		b.WriteString(e.prefix)
		b.WriteString(": ")
	}
	b.WriteString(e.msg)
	if e.suffix != "" {
		b.WriteString(": ")
		b.WriteString(e.suffix)
	}
	return b.String()
}

func (e *appError) ErrorAll() string {
	if !e.expand {
		return e.Error()
	}
	parts := []string{e.Error()}
	for _, c := range e.causes {
		if c == error(e.parent) {
			continue
		}
		parts = append(parts, c.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *appError) Unwrap() error { return e.parent }

func (e *appError) UnwrapAll() []error { return e.causes }

func (e *appError) New(msg string) Error { return e.derive(msg, nil) }

func (e *appError) Msg(msg string) Error {
	return e.derive(msg, append([]error{e}, e.causes...))
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return e.derive(msg, append([]error{e}, errs...))
}

func (e *appError) Err(errs ...error) Error {
	return e.derive(e.msg, append([]error{e}, errs...))
}

func (e *appError) Prefix(p string) Error {
	cp := *e
	cp.prefix = p
	return &cp
}

func (e *appError) Suffix(s string) Error {
	cp := *e
	cp.suffix = s
	return &cp
}

func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expand = flag
	return &cp
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statusCode = code
	return &cp
}

func (e *appError) StatusCode() int { return e.statusCode }

// Is reports whether target is this error, an ancestor, or any attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*appError); ok && t == e {
		return true
	}
	if e.parent != nil && errors.Is(e.parent, target) {
		return true
	}
	for _, c := range e.causes {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}
