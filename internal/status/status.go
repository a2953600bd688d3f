// Package status maps internal failures onto the closed set of integer
// codes returned across the C boundary.
package status

import (
	"errors"
	"fmt"

	"github.com/mundrapranay/silhouette-db/internal/frodo"
	"github.com/mundrapranay/silhouette-db/internal/handle"
	"github.com/mundrapranay/silhouette-db/internal/rbokvs"
	"github.com/mundrapranay/silhouette-db/internal/wire"
)

// Code is a stable boundary status. Values never change once published.
type Code int

const (
	// Success means every output was written.
	Success Code = 0
	// InvalidInput covers null or malformed arguments, empty input where it
	// is forbidden, stale handles and out-of-range row indices.
	InvalidInput Code = 1
	// SerializationError means an output could not be serialized.
	SerializationError Code = 2
	// DeserializationError means input bytes were malformed or truncated.
	DeserializationError Code = 3
	// QueryParamsReused means query params generated a second query.
	QueryParamsReused Code = 4
	// ArithmeticOverflow means query blinding overflowed; retry with fresh
	// params.
	ArithmeticOverflow Code = 5
	// NotFound is reserved; OKVS decode of an absent key succeeds with an
	// arbitrary value instead.
	NotFound Code = 6
	// EncodingError means the OKVS system could not be solved.
	EncodingError Code = 7
	// DecodingError means an encoding did not match its parameters.
	DecodingError Code = 8
	// UnknownError is any failure not classified above.
	UnknownError Code = 99
)

var codeNames = map[Code]string{
	Success:              "success",
	InvalidInput:         "invalid input",
	SerializationError:   "serialization error",
	DeserializationError: "deserialization error",
	QueryParamsReused:    "query params reused",
	ArithmeticOverflow:   "arithmetic overflow",
	NotFound:             "not found",
	EncodingError:        "encoding error",
	DecodingError:        "decoding error",
	UnknownError:         "unknown error",
}

// String returns the human-readable name of c.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(c))
}

// Valid reports whether c belongs to the closed code set.
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// Sentinel errors for failures raised by the boundary layer itself.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEncoding     = errors.New("encoding failed")
	ErrDecoding     = errors.New("decoding failed")
)

// Error carries a code alongside the failure that produced it.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf wraps err for op, classifying it with FromError.
func Errorf(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: FromError(err), Op: op, Err: err}
}

// WithCode wraps err for op with an explicit code.
func WithCode(op string, code Code, err error) error {
	return &Error{Code: code, Op: op, Err: err}
}

// classification is the single table translating library failures into
// codes. Order matters: the first match wins.
var classification = []struct {
	target error
	code   Code
}{
	{handle.ErrNullHandle, InvalidInput},
	{handle.ErrStaleHandle, InvalidInput},
	{handle.ErrUnknownBuffer, InvalidInput},
	{ErrInvalidInput, InvalidInput},
	{frodo.ErrQueryParamsReused, QueryParamsReused},
	{frodo.ErrOverflownAdd, ArithmeticOverflow},
	{frodo.ErrRowIndexOutOfBounds, InvalidInput},
	{wire.ErrSerialization, SerializationError},
	{wire.ErrDeserialization, DeserializationError},
	{rbokvs.ErrEncodingFailed, EncodingError},
	{ErrEncoding, EncodingError},
	{rbokvs.ErrEncodingLength, DecodingError},
	{ErrDecoding, DecodingError},
}

// FromError returns the code for err. A *Error keeps its own code; any
// failure the table does not recognise is UnknownError.
func FromError(err error) Code {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	for _, c := range classification {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return UnknownError
}

// Guard runs fn and converts its error, or a panic, into a code. Nothing
// escapes Guard by unwinding.
func Guard(fn func() error) (code Code) {
	defer func() {
		if r := recover(); r != nil {
			code = UnknownError
		}
	}()
	return FromError(fn())
}
