package adu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinymodbus/tinymodbus/merr"
)

func TestFrameRTU_readHoldingRegistersRequest(t *testing.T) {
	// §8 scenario 1: slave=0x11, request 11 03 00 6B 00 03 76 87
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	got := FrameRTU(nil, 0x11, pdu)

	assert.Equal(t, []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03, 0x76, 0x87}, got)
}

func TestUnframeRTU_readHoldingRegistersResponse(t *testing.T) {
	frame := []byte{0x11, 0x03, 0x06, 0x02, 0x2B, 0x00, 0x00, 0x00, 0x64, 0xAA, 0x99}
	address, pduBytes, err := UnframeRTU(frame)

	assert.NoError(t, err)
	assert.Equal(t, uint8(0x11), address)
	assert.Equal(t, []byte{0x03, 0x06, 0x02, 0x2B, 0x00, 0x00, 0x00, 0x64}, pduBytes)
}

func TestUnframeRTU_badChecksum(t *testing.T) {
	frame := []byte{0x11, 0x03, 0x06, 0x02, 0x2B, 0x00, 0x00, 0x00, 0x64, 0xAA, 0x98}
	_, _, err := UnframeRTU(frame)

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailBadChecksum, merrErr.Kind)
}

func TestUnframeRTU_tooShort(t *testing.T) {
	_, _, err := UnframeRTU([]byte{0x11, 0x83})

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailMalformedFrame, merrErr.Kind)
}

func TestRTU_idempotentFraming(t *testing.T) {
	pdu := []byte{0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}
	frame := FrameRTU(nil, 0x07, pdu)
	_, got, err := UnframeRTU(frame)

	assert.NoError(t, err)
	assert.Equal(t, pdu, got)
}

func TestFrameASCII_writeSingleRegister(t *testing.T) {
	// §8 scenario 4: slave=1, address=0x0001, value=0x0003
	pdu := []byte{0x06, 0x00, 0x01, 0x00, 0x03}
	got := FrameASCII(nil, 0x01, pdu)

	assert.Equal(t, ":010600010003F5\r\n", string(got))
}

func TestUnframeASCII_writeSingleRegister(t *testing.T) {
	address, pduBytes, err := UnframeASCII([]byte(":010600010003F5\r\n"))

	assert.NoError(t, err)
	assert.Equal(t, uint8(1), address)
	assert.Equal(t, []byte{0x06, 0x00, 0x01, 0x00, 0x03}, pduBytes)
}

func TestUnframeASCII_badLRC(t *testing.T) {
	_, _, err := UnframeASCII([]byte(":010600010003F6\r\n"))

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailBadChecksum, merrErr.Kind)
}

func TestUnframeASCII_missingFraming(t *testing.T) {
	_, _, err := UnframeASCII([]byte("010600010003F5\r\n"))
	assert.Error(t, err)

	_, _, err = UnframeASCII([]byte(":010600010003F5"))
	assert.Error(t, err)
}

func TestASCII_idempotentFraming(t *testing.T) {
	pdu := []byte{0x01, 0x00, 0x00, 0x00, 0x08}
	frame := FrameASCII(nil, 0x01, pdu)
	_, got, err := UnframeASCII(frame)

	assert.NoError(t, err)
	assert.Equal(t, pdu, got)
}

func TestFrameTCP_readCoilsRequest(t *testing.T) {
	// §8 scenario 2: txn=0x0001, unit=0x01, start=0x0000, qty=8
	pdu := []byte{0x01, 0x00, 0x00, 0x00, 0x08}
	got := FrameTCP(nil, 0x0001, 0x01, pdu)

	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x01, 0x00, 0x00, 0x00, 0x08}, got)
}

func TestUnframeTCP_readCoilsResponse(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x04, 0x01, 0x01, 0x01, 0x55}
	txnID, unitID, pduBytes, err := UnframeTCP(frame)

	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0001), txnID)
	assert.Equal(t, uint8(0x01), unitID)
	assert.Equal(t, []byte{0x01, 0x01, 0x55}, pduBytes)
}

func TestParseMBAPPrefix_badProtocolID(t *testing.T) {
	_, _, err := ParseMBAPPrefix([]byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x04})

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailMalformedFrame, merrErr.Kind)
}

func TestUnframeTCP_lengthMismatch(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01, 0x01, 0x01, 0x55} // declares 5, actual 4
	_, _, _, err := UnframeTCP(frame)

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailMalformedFrame, merrErr.Kind)
}

func TestTCP_idempotentFraming(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	frame := FrameTCP(nil, 42, 7, pdu)
	_, _, got, err := UnframeTCP(frame)

	assert.NoError(t, err)
	assert.Equal(t, pdu, got)
}

func TestKind_sizes(t *testing.T) {
	assert.Equal(t, 1, RTU.HeaderLen())
	assert.Equal(t, 2, RTU.TrailerLen())
	assert.Equal(t, 1, ASCII.HeaderLen())
	assert.Equal(t, 4, ASCII.TrailerLen())
	assert.Equal(t, 7, TCP.HeaderLen())
	assert.Equal(t, 0, TCP.TrailerLen())

	assert.Equal(t, 256, RTU.MaxADUSize())
	assert.Equal(t, 260, TCP.MaxADUSize())
	assert.Equal(t, 515, ASCII.MaxADUSize())
}
