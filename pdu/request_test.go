package pdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinymodbus/tinymodbus/merr"
)

func TestAppend_readHoldingRegisters(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x006B, 3)
	got, err := Append(nil, req)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x00, 0x6B, 0x00, 0x03}, got)
}

func TestAppend_writeSingleCoil(t *testing.T) {
	req := NewWriteSingleCoilRequest(0x0010, CoilValue(true))
	got, err := Append(nil, req)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x10, 0xFF, 0x00}, got)
}

func TestAppend_writeMultipleCoils(t *testing.T) {
	coils := PackCoils([]bool{true, false, true})
	req := NewWriteMultipleCoilsRequest(0x0410, 3, coils)
	got, err := Append(nil, req)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x04, 0x10, 0x00, 0x03, 0x01, 0x05}, got)
}

func TestAppend_writeMultipleRegisters(t *testing.T) {
	req := NewWriteMultipleRegistersRequest(0x0001, []uint16{0x000A, 0x0102})
	got, err := Append(nil, req)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}, got)
}

func TestAppend_appendsOntoExistingPrefix(t *testing.T) {
	prefix := []byte{0xAA, 0xBB}
	got, err := Append(prefix, NewReadCoilsRequest(0, 8))

	assert.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0x01, 0x00, 0x00, 0x00, 0x08}, got)
}

func TestAppend_unsupportedFunctionCode(t *testing.T) {
	_, err := Append(nil, Request{Function: 99})

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailIllegalFunction, merrErr.Kind)
}

func TestPackCoils(t *testing.T) {
	var testCases = []struct {
		name   string
		when   []bool
		expect []byte
	}{
		{name: "ok, exact byte boundary", when: []bool{true, true, true, true, true, true, true, true}, expect: []byte{0xFF}},
		{name: "ok, partial byte", when: []bool{true, false, true}, expect: []byte{0x05}},
		{name: "ok, empty", when: nil, expect: []byte{}},
		{name: "ok, two bytes", when: []bool{false, false, false, false, false, false, false, false, true}, expect: []byte{0x00, 0x01}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, PackCoils(tc.when))
		})
	}
}

func TestUnpackCoils_roundTrip(t *testing.T) {
	coils := []bool{true, false, true, true, false, false, true, false, true}
	packed := PackCoils(coils)
	assert.Equal(t, coils, UnpackCoils(packed, len(coils)))
}
