package adu

import "github.com/tinymodbus/tinymodbus/checksum"

// minRTUFrameLen is the smallest a valid RTU frame can be: 1 address byte +
// 1 function code byte + 2 CRC bytes (an exception reply, the shortest PDU).
const minRTUFrameLen = 4

// FrameRTU appends an RTU frame (address, pdu, little-endian CRC16 trailer)
// wrapping pdu onto dst and returns the grown slice.
func FrameRTU(dst []byte, address uint8, pdu []byte) []byte {
	start := len(dst)
	dst = append(dst, address)
	dst = append(dst, pdu...)
	return checksum.AppendCRC16(dst, dst[start:])
}

// UnframeRTU verifies the CRC16 trailer of a complete RTU frame and returns
// the device address and the inner PDU slice (aliasing frame).
func UnframeRTU(frame []byte) (address uint8, pduBytes []byte, err error) {
	if len(frame) < minRTUFrameLen {
		return 0, nil, errMalformed("RTU frame shorter than %d bytes: %d", minRTUFrameLen, len(frame))
	}
	body := frame[:len(frame)-2]
	wantCRC := checksum.CRC16(body)
	gotCRC := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if wantCRC != gotCRC {
		return 0, nil, errBadChecksum("RTU CRC mismatch: frame has 0x%04X, computed 0x%04X", gotCRC, wantCRC)
	}
	return frame[0], body[1:], nil
}
