package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16_knownVectors(t *testing.T) {
	var testCases = []struct {
		name   string
		when   []byte
		expect uint16
	}{
		{
			name:   "ok, read holding registers request (11 03 00 6B 00 03)",
			when:   []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03},
			expect: 0x8776,
		},
		{
			name:   "ok, read holding registers response (11 03 06 02 2B 00 00 00 64)",
			when:   []byte{0x11, 0x03, 0x06, 0x02, 0x2B, 0x00, 0x00, 0x00, 0x64},
			expect: 0x99AA,
		},
		{
			name:   "ok, empty input",
			when:   []byte{},
			expect: 0xFFFF,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CRC16(tc.when))
		})
	}
}

func TestCRC16_closure(t *testing.T) {
	// property: crc16(B ++ crc16_le(B)) == 0
	inputs := [][]byte{
		{},
		{0x00},
		{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03},
		{0x01, 0x0F, 0x04, 0x10, 0x00, 0x03, 0x01, 0x05},
	}
	for _, in := range inputs {
		withTrailer := AppendCRC16(append([]byte{}, in...), in)
		assert.Equal(t, uint16(0), CRC16(withTrailer))
	}
}

func TestAppendCRC16(t *testing.T) {
	data := []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	got := AppendCRC16(append([]byte{}, data...), data)
	assert.Equal(t, []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03, 0x76, 0x87}, got)
}

func TestLRC(t *testing.T) {
	var testCases = []struct {
		name   string
		when   []byte
		expect byte
	}{
		{
			// ascii write single register example from the spec: address=1, fc=6, addr=0x0001 value=0x0003
			name:   "ok, write single register (01 06 00 01 00 03)",
			when:   []byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x03},
			expect: 0xF5,
		},
		{
			name:   "ok, empty input",
			when:   []byte{},
			expect: 0x00,
		},
		{
			name:   "ok, single byte",
			when:   []byte{0x01},
			expect: 0xFF,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, LRC(tc.when))
		})
	}
}

func TestLRC_closure(t *testing.T) {
	// property: lrc(B ++ [lrc(B)]) == 0
	inputs := [][]byte{
		{},
		{0x00},
		{0x01, 0x06, 0x00, 0x01, 0x00, 0x03},
	}
	for _, in := range inputs {
		withTrailer := append(append([]byte{}, in...), LRC(in))
		assert.Equal(t, byte(0), LRC(withTrailer))
	}
}
