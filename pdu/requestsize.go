package pdu

import "github.com/tinymodbus/tinymodbus/merr"

// RequestHeaderLen returns how many leading PDU bytes (including the
// function code) a server must read before RequestTotalLen can compute the
// full request length. It is 5 for the fixed-length requests and 6 for the
// write-multiple variants, whose byte_count field at offset 5 gates a
// variable-length payload.
func RequestHeaderLen(functionCode uint8) (int, error) {
	switch FunctionCode(functionCode) {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteSingleCoil, WriteSingleRegister:
		return 5, nil
	case WriteMultipleCoils, WriteMultipleRegisters:
		return 6, nil
	default:
		return 0, merr.New(merr.FailIllegalFunction, "unsupported function code: %d", functionCode)
	}
}

// RequestTotalLen returns the total request PDU length given at least
// RequestHeaderLen(header[0]) bytes of the request.
func RequestTotalLen(header []byte) (int, error) {
	if len(header) < 1 {
		return 0, merr.New(merr.FailMalformedFrame, "empty request header")
	}
	headerLen, err := RequestHeaderLen(header[0])
	if err != nil {
		return 0, err
	}
	if len(header) < headerLen {
		return 0, merr.New(merr.FailMalformedFrame, "request header shorter than %d bytes: %d", headerLen, len(header))
	}
	switch FunctionCode(header[0]) {
	case WriteMultipleCoils, WriteMultipleRegisters:
		byteCount := int(header[5])
		return 6 + byteCount, nil
	default:
		return 5, nil
	}
}
