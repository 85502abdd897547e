package errcode

import "errors"

// Code is the result class of a driver operation.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Error         Code = "error" // generic failure, see the extended code
	InvalidParams Code = "invalid_params"
	HeapError     Code = "heap_error"

	Busy        Code = "busy"
	Timeout     Code = "timeout"
	Unsupported Code = "unsupported"
	UnknownBus  Code = "unknown_bus"
	UnknownPin  Code = "unknown_pin"
)

// Ext is a driver-specific extended code giving a finer diagnosis than Code.
// Each driver package declares its own set.
type Ext string

func (x Ext) Error() string { return string(x) }

// NoExt is reported when an error carries no extended code.
const NoExt Ext = ""

// E keeps a result class, an extended code, the failing operation and a cause.
type E struct {
	C   Code
	X   Ext
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.X != NoExt {
		s += "/" + string(e.X)
	}
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	} else if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }
func (e *E) Ext() Ext      { return e.X }

// Is lets errors.Is match an *E against its Code or its Ext.
func (e *E) Is(target error) bool {
	switch t := target.(type) {
	case Code:
		return t == e.C
	case Ext:
		return e.X != NoExt && t == e.X
	}
	return false
}

// New builds an *E of class Error with the given extended code.
func New(op string, x Ext, err error) *E {
	return &E{C: Error, X: x, Op: op, Err: err}
}

// Invalid builds an *E of class InvalidParams.
func Invalid(op, msg string) *E {
	return &E{C: InvalidParams, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// ExtOf extracts the extended code from an error, or NoExt.
func ExtOf(err error) Ext {
	if err == nil {
		return NoExt
	}
	type exter interface{ Ext() Ext }
	var x exter
	if errors.As(err, &x) {
		return x.Ext()
	}
	var e Ext
	if errors.As(err, &e) {
		return e
	}
	return NoExt
}
