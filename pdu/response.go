package pdu

import (
	"encoding/binary"

	"github.com/tinymodbus/tinymodbus/merr"
)

// Response is the tagged union over function code for a parsed response PDU,
// paralleling Request.
type Response struct {
	Function     FunctionCode
	StartAddress uint16   // write-multiple echo
	Quantity     uint16   // write-multiple echo
	Address      uint16   // write-single echo
	Value        uint16   // write-single echo
	Coils        []byte   // ReadCoils/ReadDiscreteInputs payload, bit-packed, borrowed from caller buffer
	Registers    []uint16 // ReadHoldingRegisters/ReadInputRegisters payload, host byte order
}

// ResponseSizeOracle returns the total expected PDU length given the first
// two bytes of a response PDU (functionCode, secondByte). This is the bounded
// lookahead mechanism: the engine reads exactly two PDU bytes, calls this,
// then reads exactly the remainder.
func ResponseSizeOracle(functionCode uint8, secondByte uint8) (int, error) {
	if functionCode&exceptionBit != 0 {
		return 2, nil
	}
	fc := FunctionCode(functionCode)
	switch {
	case isReadFunction(fc):
		return 2 + int(secondByte), nil
	case isWriteFunction(fc):
		return 5, nil
	default:
		return 0, merr.New(merr.FailIllegalFunction, "unsupported function code: %d", functionCode)
	}
}

// ParseException parses a 2-byte exception PDU (function_code|0x80, code).
// Callers should check functionCode&0x80 != 0 before calling this.
func ParseException(data []byte) (FunctionCode, merr.Kind, error) {
	if len(data) < 2 {
		return 0, 0, merr.New(merr.FailMalformedFrame, "exception PDU shorter than 2 bytes")
	}
	original := FunctionCode(data[0] &^ exceptionBit)
	code := data[1]
	if code == 0 {
		return original, merr.FailGeneric, nil
	}
	return original, merr.KindFromExceptionCode(code), nil
}

// Parse parses a complete response PDU (function code plus payload) into a
// typed Response. Coils aliases data and is valid only until the next call
// on the owning handle's scratch buffer; Registers is a freshly decoded copy
// in host byte order.
func Parse(data []byte) (Response, error) {
	if len(data) < 1 {
		return Response{}, merr.New(merr.FailMalformedFrame, "empty PDU")
	}
	fc := FunctionCode(data[0])
	switch fc {
	case ReadCoils, ReadDiscreteInputs:
		return parseReadBitsResponse(fc, data)
	case ReadHoldingRegisters, ReadInputRegisters:
		return parseReadRegistersResponse(fc, data)
	case WriteSingleCoil, WriteSingleRegister:
		return parseWriteSingleResponse(fc, data)
	case WriteMultipleCoils, WriteMultipleRegisters:
		return parseWriteMultipleResponse(fc, data)
	default:
		return Response{}, merr.New(merr.FailIllegalFunction, "unsupported function code: %d", data[0])
	}
}

func parseReadBitsResponse(fc FunctionCode, data []byte) (Response, error) {
	if len(data) < 2 {
		return Response{}, merr.New(merr.FailMalformedFrame, "read-bits response shorter than 2 bytes")
	}
	byteCount := int(data[1])
	if len(data) != 2+byteCount {
		return Response{}, merr.New(merr.FailMalformedFrame, "byte_count %d inconsistent with PDU length %d", byteCount, len(data))
	}
	return Response{Function: fc, Coils: data[2 : 2+byteCount]}, nil
}

func parseReadRegistersResponse(fc FunctionCode, data []byte) (Response, error) {
	if len(data) < 2 {
		return Response{}, merr.New(merr.FailMalformedFrame, "read-registers response shorter than 2 bytes")
	}
	byteCount := int(data[1])
	if len(data) != 2+byteCount || byteCount%2 != 0 {
		return Response{}, merr.New(merr.FailMalformedFrame, "byte_count %d inconsistent with PDU length %d", byteCount, len(data))
	}
	regs := make([]uint16, byteCount/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(data[2+2*i : 4+2*i])
	}
	return Response{Function: fc, Registers: regs}, nil
}

func parseWriteSingleResponse(fc FunctionCode, data []byte) (Response, error) {
	if len(data) != 5 {
		return Response{}, merr.New(merr.FailMalformedFrame, "write-single response must be 5 bytes, got %d", len(data))
	}
	return Response{
		Function: fc,
		Address:  binary.BigEndian.Uint16(data[1:3]),
		Value:    binary.BigEndian.Uint16(data[3:5]),
	}, nil
}

func parseWriteMultipleResponse(fc FunctionCode, data []byte) (Response, error) {
	if len(data) != 5 {
		return Response{}, merr.New(merr.FailMalformedFrame, "write-multiple response must be 5 bytes, got %d", len(data))
	}
	return Response{
		Function:     fc,
		StartAddress: binary.BigEndian.Uint16(data[1:3]),
		Quantity:     binary.BigEndian.Uint16(data[3:5]),
	}, nil
}
