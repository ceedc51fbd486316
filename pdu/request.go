package pdu

import (
	"encoding/binary"

	"github.com/tinymodbus/tinymodbus/merr"
)

// Request is the tagged union over function code described by the data
// model: every field the wire format could need, with only the fields
// relevant to Function actually populated. Unused fields are ignored by
// Append and Validate.
type Request struct {
	Function     FunctionCode
	StartAddress uint16   // read variants, write-multiple variants
	Quantity     uint16   // read variants, write-multiple variants
	Address      uint16   // write-single variants
	Value        uint16   // write-single variants
	Coils        []byte   // WriteMultipleCoils payload, bit-packed, len == ceil(Quantity/8)
	Registers    []uint16 // WriteMultipleRegisters payload, len == Quantity
}

// NewReadCoilsRequest builds a ReadCoils request PDU value.
func NewReadCoilsRequest(startAddress, quantity uint16) Request {
	return Request{Function: ReadCoils, StartAddress: startAddress, Quantity: quantity}
}

// NewReadDiscreteInputsRequest builds a ReadDiscreteInputs request PDU value.
func NewReadDiscreteInputsRequest(startAddress, quantity uint16) Request {
	return Request{Function: ReadDiscreteInputs, StartAddress: startAddress, Quantity: quantity}
}

// NewReadHoldingRegistersRequest builds a ReadHoldingRegisters request PDU value.
func NewReadHoldingRegistersRequest(startAddress, quantity uint16) Request {
	return Request{Function: ReadHoldingRegisters, StartAddress: startAddress, Quantity: quantity}
}

// NewReadInputRegistersRequest builds a ReadInputRegisters request PDU value.
func NewReadInputRegistersRequest(startAddress, quantity uint16) Request {
	return Request{Function: ReadInputRegisters, StartAddress: startAddress, Quantity: quantity}
}

// NewWriteSingleCoilRequest builds a WriteSingleCoil request PDU value. value
// must be CoilOn or CoilOff on the wire; callers passing a bool should use
// CoilValue to convert it.
func NewWriteSingleCoilRequest(address, value uint16) Request {
	return Request{Function: WriteSingleCoil, Address: address, Value: value}
}

// CoilValue converts a boolean coil state to its wire value.
func CoilValue(on bool) uint16 {
	if on {
		return CoilOn
	}
	return CoilOff
}

// NewWriteSingleRegisterRequest builds a WriteSingleRegister request PDU value.
func NewWriteSingleRegisterRequest(address, value uint16) Request {
	return Request{Function: WriteSingleRegister, Address: address, Value: value}
}

// NewWriteMultipleCoilsRequest builds a WriteMultipleCoils request PDU value
// from a bit-packed payload and the logical coil count it represents.
func NewWriteMultipleCoilsRequest(startAddress, quantity uint16, coils []byte) Request {
	return Request{Function: WriteMultipleCoils, StartAddress: startAddress, Quantity: quantity, Coils: coils}
}

// NewWriteMultipleRegistersRequest builds a WriteMultipleRegisters request PDU value.
func NewWriteMultipleRegistersRequest(startAddress uint16, registers []uint16) Request {
	return Request{Function: WriteMultipleRegisters, StartAddress: startAddress, Quantity: uint16(len(registers)), Registers: registers}
}

// PackCoils bit-packs qty booleans into the byte form the wire expects,
// least-significant bit first within each byte.
func PackCoils(coils []bool) []byte {
	n := len(coils) / 8
	if len(coils)%8 != 0 {
		n++
	}
	out := make([]byte, n)
	for i, on := range coils {
		if on {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Append serializes req's PDU bytes (function code first, big-endian
// multi-byte fields) onto dst and returns the grown slice. This is the
// §4.3 Serialize operation; framing is added by the adu package.
func Append(dst []byte, req Request) ([]byte, error) {
	switch req.Function {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters:
		dst = append(dst, uint8(req.Function))
		dst = appendU16(dst, req.StartAddress)
		dst = appendU16(dst, req.Quantity)
		return dst, nil

	case WriteSingleCoil, WriteSingleRegister:
		dst = append(dst, uint8(req.Function))
		dst = appendU16(dst, req.Address)
		dst = appendU16(dst, req.Value)
		return dst, nil

	case WriteMultipleCoils:
		byteCount := len(req.Coils)
		if byteCount > 0xff {
			return nil, merr.New(merr.FailIllegalDataValue, "write multiple coils byte count too large: %d", byteCount)
		}
		dst = append(dst, uint8(req.Function))
		dst = appendU16(dst, req.StartAddress)
		dst = appendU16(dst, req.Quantity)
		dst = append(dst, uint8(byteCount))
		dst = append(dst, req.Coils...)
		return dst, nil

	case WriteMultipleRegisters:
		byteCount := 2 * len(req.Registers)
		if byteCount > 0xff {
			return nil, merr.New(merr.FailIllegalDataValue, "write multiple registers byte count too large: %d", byteCount)
		}
		dst = append(dst, uint8(req.Function))
		dst = appendU16(dst, req.StartAddress)
		dst = appendU16(dst, uint16(len(req.Registers)))
		dst = append(dst, uint8(byteCount))
		for _, r := range req.Registers {
			dst = appendU16(dst, r)
		}
		return dst, nil

	default:
		return nil, merr.New(merr.FailIllegalFunction, "unsupported function code: %d", req.Function)
	}
}

// ParseRequest is the server-side inverse of Append: it decodes a raw
// request PDU (function code plus payload) into a typed Request. Coils
// aliases data and is valid only until the next call on the owning handle's
// scratch buffer; Registers is a freshly decoded copy.
func ParseRequest(data []byte) (Request, error) {
	if len(data) < 1 {
		return Request{}, merr.New(merr.FailMalformedFrame, "empty PDU")
	}
	fc := FunctionCode(data[0])
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters:
		if len(data) != 5 {
			return Request{}, merr.New(merr.FailMalformedFrame, "read request must be 5 bytes, got %d", len(data))
		}
		return Request{
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(data[1:3]),
			Quantity:     binary.BigEndian.Uint16(data[3:5]),
		}, nil

	case WriteSingleCoil, WriteSingleRegister:
		if len(data) != 5 {
			return Request{}, merr.New(merr.FailMalformedFrame, "write-single request must be 5 bytes, got %d", len(data))
		}
		return Request{
			Function: fc,
			Address:  binary.BigEndian.Uint16(data[1:3]),
			Value:    binary.BigEndian.Uint16(data[3:5]),
		}, nil

	case WriteMultipleCoils:
		if len(data) < 6 {
			return Request{}, merr.New(merr.FailMalformedFrame, "write-multiple-coils request shorter than 6 bytes: %d", len(data))
		}
		byteCount := int(data[5])
		if len(data) != 6+byteCount {
			return Request{}, merr.New(merr.FailMalformedFrame, "byte_count %d inconsistent with PDU length %d", byteCount, len(data))
		}
		return Request{
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(data[1:3]),
			Quantity:     binary.BigEndian.Uint16(data[3:5]),
			Coils:        data[6 : 6+byteCount],
		}, nil

	case WriteMultipleRegisters:
		if len(data) < 6 {
			return Request{}, merr.New(merr.FailMalformedFrame, "write-multiple-registers request shorter than 6 bytes: %d", len(data))
		}
		byteCount := int(data[5])
		if len(data) != 6+byteCount || byteCount%2 != 0 {
			return Request{}, merr.New(merr.FailMalformedFrame, "byte_count %d inconsistent with PDU length %d", byteCount, len(data))
		}
		quantity := binary.BigEndian.Uint16(data[3:5])
		regs := make([]uint16, byteCount/2)
		for i := range regs {
			regs[i] = binary.BigEndian.Uint16(data[6+2*i : 8+2*i])
		}
		return Request{
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(data[1:3]),
			Quantity:     quantity,
			Registers:    regs,
		}, nil

	default:
		return Request{}, merr.New(merr.FailIllegalFunction, "unsupported function code: %d", data[0])
	}
}

func appendU16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[0], b[1])
}
