package pdu

import (
	"encoding/binary"

	"github.com/tinymodbus/tinymodbus/merr"
)

// AppendReadBitsResponse appends a ReadCoils/ReadDiscreteInputs response PDU
// (function code, byte_count, bit-packed payload) onto dst.
func AppendReadBitsResponse(dst []byte, fc FunctionCode, coils []byte) []byte {
	dst = append(dst, uint8(fc), uint8(len(coils)))
	return append(dst, coils...)
}

// AppendReadRegistersResponse appends a ReadHoldingRegisters/ReadInputRegisters
// response PDU onto dst, registers encoded big-endian.
func AppendReadRegistersResponse(dst []byte, fc FunctionCode, registers []uint16) []byte {
	dst = append(dst, uint8(fc), uint8(2*len(registers)))
	var b [2]byte
	for _, r := range registers {
		binary.BigEndian.PutUint16(b[:], r)
		dst = append(dst, b[0], b[1])
	}
	return dst
}

// AppendWriteSingleResponse appends the echo response for WriteSingleCoil /
// WriteSingleRegister onto dst.
func AppendWriteSingleResponse(dst []byte, fc FunctionCode, address, value uint16) []byte {
	dst = append(dst, uint8(fc))
	dst = appendU16(dst, address)
	return appendU16(dst, value)
}

// AppendWriteMultipleResponse appends the echo response for WriteMultipleCoils
// / WriteMultipleRegisters onto dst.
func AppendWriteMultipleResponse(dst []byte, fc FunctionCode, startAddress, quantity uint16) []byte {
	dst = append(dst, uint8(fc))
	dst = appendU16(dst, startAddress)
	return appendU16(dst, quantity)
}

// AppendException appends a 2-byte exception PDU (function|0x80, code) onto dst.
func AppendException(dst []byte, fc FunctionCode, kind merr.Kind) []byte {
	return append(dst, uint8(fc)|exceptionBit, kind.ExceptionCode())
}
