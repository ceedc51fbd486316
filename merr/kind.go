// Package merr defines the closed set of error kinds the protocol engine can
// surface, grounded in the reference client's *ClientError wrapping pattern
// but extended to the full kind enumeration the core requires: Modbus
// exception codes, server-only Ignore, and the local/transport failure kinds.
package merr

import "fmt"

// Kind is one member of the closed error-kind enumeration.
type Kind uint8

const (
	// Ok indicates success; never actually wrapped in an error value.
	Ok Kind = iota

	// Modbus exception codes 1..11, passed through transparently from
	// server to client. Code 7 and 9 are reserved/unassigned by the
	// Modbus standard and intentionally unused.
	ExcIllegalFunction        Kind = 1
	ExcIllegalDataAddress     Kind = 2
	ExcIllegalDataValue       Kind = 3
	ExcServerFailure          Kind = 4
	ExcAcknowledge            Kind = 5
	ExcServerBusy             Kind = 6
	ExcMemoryParityError      Kind = 8
	ExcGatewayPathUnavailable Kind = 10
	ExcGatewayTargetFailed    Kind = 11

	// Ignore is server-only: a callback returning it suppresses any reply.
	Ignore Kind = 100

	FailGeneric           Kind = 101
	FailTimeout           Kind = 102
	FailInvalidArgument   Kind = 103
	FailInvalidMode       Kind = 104
	FailNotImplemented    Kind = 105
	FailCapacity          Kind = 106
	FailBufferCapacity    Kind = 107
	FailTransport         Kind = 108
	FailHostResolution    Kind = 109
	FailConnectionRefused Kind = 110
	FailOpenSocket        Kind = 111
	FailOpenSerial        Kind = 112
	FailSerialConfig      Kind = 113
	FailBadChecksum       Kind = 114
	FailIllegalFunction   Kind = 115
	FailIllegalDataValue  Kind = 116
	FailMalformedFrame    Kind = 117
	FailShortRead         Kind = 118
)

// IsException reports whether k is one of the Modbus exception codes 1..11
// that a server can legitimately echo back to a client (as opposed to a
// local-only failure kind).
func (k Kind) IsException() bool {
	switch k {
	case ExcIllegalFunction, ExcIllegalDataAddress, ExcIllegalDataValue,
		ExcServerFailure, ExcAcknowledge, ExcServerBusy, ExcMemoryParityError,
		ExcGatewayPathUnavailable, ExcGatewayTargetFailed:
		return true
	default:
		return false
	}
}

// ExceptionCode returns the 1-byte wire exception code for k, valid only
// when k.IsException() is true.
func (k Kind) ExceptionCode() uint8 {
	return uint8(k)
}

// KindFromExceptionCode converts a 1-byte wire exception code into a Kind.
func KindFromExceptionCode(code uint8) Kind {
	return Kind(code)
}

func (k Kind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case ExcIllegalFunction:
		return "IllegalFunction"
	case ExcIllegalDataAddress:
		return "IllegalDataAddress"
	case ExcIllegalDataValue:
		return "IllegalDataValue"
	case ExcServerFailure:
		return "ServerFailure"
	case ExcAcknowledge:
		return "Acknowledge"
	case ExcServerBusy:
		return "ServerBusy"
	case ExcMemoryParityError:
		return "MemoryParityError"
	case ExcGatewayPathUnavailable:
		return "GatewayPathUnavailable"
	case ExcGatewayTargetFailed:
		return "GatewayTargetedDeviceFailedToRespond"
	case Ignore:
		return "Ignore"
	case FailGeneric:
		return "FailGeneric"
	case FailTimeout:
		return "FailTimeout"
	case FailInvalidArgument:
		return "FailInvalidArgument"
	case FailInvalidMode:
		return "FailInvalidMode"
	case FailNotImplemented:
		return "FailNotImplemented"
	case FailCapacity:
		return "FailCapacity"
	case FailBufferCapacity:
		return "FailBufferCapacity"
	case FailTransport:
		return "FailTransport"
	case FailHostResolution:
		return "FailHostResolution"
	case FailConnectionRefused:
		return "FailConnectionRefused"
	case FailOpenSocket:
		return "FailOpenSocket"
	case FailOpenSerial:
		return "FailOpenSerial"
	case FailSerialConfig:
		return "FailSerialConfig"
	case FailBadChecksum:
		return "FailBadChecksum"
	case FailIllegalFunction:
		return "FailIllegalFunction"
	case FailIllegalDataValue:
		return "FailIllegalDataValue"
	case FailMalformedFrame:
		return "FailMalformedFrame"
	case FailShortRead:
		return "FailShortRead"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is the core's error type: a Kind plus an optional human-readable
// message and wrapped cause, following the reference client's
// ClientError{Err error} wrapping idiom so callers can errors.Is/As through it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, merr.New(merr.FailTimeout, "")) style checks, or more
// idiomatically compare err.(*merr.Error).Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
