// Package pdu encodes and decodes Modbus Protocol Data Units: the
// function-code-tagged payload that is identical across RTU, ASCII, and TCP
// encapsulations. Framing (addressing, checksums, MBAP headers) lives in the
// sibling adu package; this package only ever sees the inner bytes.
package pdu

import "fmt"

// FunctionCode identifies the operation a request/response PDU carries.
type FunctionCode uint8

// The eight function codes this library implements. Function codes beyond
// these (e.g. ReadServerID, ReadWriteMultipleRegisters) are out of scope.
const (
	ReadCoils              FunctionCode = 1
	ReadDiscreteInputs     FunctionCode = 2
	ReadHoldingRegisters   FunctionCode = 3
	ReadInputRegisters     FunctionCode = 4
	WriteSingleCoil        FunctionCode = 5
	WriteSingleRegister    FunctionCode = 6
	WriteMultipleCoils     FunctionCode = 15
	WriteMultipleRegisters FunctionCode = 16
)

// exceptionBit is set on the function code of an exception reply.
const exceptionBit = uint8(0x80)

// IsExceptionFunctionCode reports whether the raw wire function code byte
// has the exception bit (0x80) set.
func IsExceptionFunctionCode(rawFunctionCode uint8) bool {
	return rawFunctionCode&exceptionBit != 0
}

// MaxPDUSize is the largest PDU the protocol allows, per the Modbus
// Application Protocol spec (253 bytes of function-code + payload).
const MaxPDUSize = 253

// CoilOn and CoilOff are the two wire values WriteSingleCoil accepts.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

func (fc FunctionCode) String() string {
	switch fc {
	case ReadCoils:
		return "ReadCoils"
	case ReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case ReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case ReadInputRegisters:
		return "ReadInputRegisters"
	case WriteSingleCoil:
		return "WriteSingleCoil"
	case WriteSingleRegister:
		return "WriteSingleRegister"
	case WriteMultipleCoils:
		return "WriteMultipleCoils"
	case WriteMultipleRegisters:
		return "WriteMultipleRegisters"
	default:
		return fmt.Sprintf("FunctionCode(%d)", uint8(fc))
	}
}

// isReadFunction reports whether fc is one of the four read variants, whose
// response carries a byte_count second byte.
func isReadFunction(fc FunctionCode) bool {
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters:
		return true
	default:
		return false
	}
}

// isWriteFunction reports whether fc is one of the four write variants,
// whose response is always a fixed 5-byte echo.
func isWriteFunction(fc FunctionCode) bool {
	switch fc {
	case WriteSingleCoil, WriteSingleRegister, WriteMultipleCoils, WriteMultipleRegisters:
		return true
	default:
		return false
	}
}
