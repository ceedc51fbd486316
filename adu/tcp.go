package adu

import "encoding/binary"

// MBAPHeaderLen is the 7-byte Modbus Application Protocol header length.
const MBAPHeaderLen = 7

// FrameTCP appends a complete MBAP+PDU frame onto dst: txn id, protocol id
// (0), back-patched length, unit id, then pdu. Returns the grown slice.
func FrameTCP(dst []byte, txnID uint16, unitID uint8, pdu []byte) []byte {
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0, 0, 0, unitID)
	binary.BigEndian.PutUint16(dst[start:start+2], txnID)
	binary.BigEndian.PutUint16(dst[start+2:start+4], ProtocolID)
	dst = append(dst, pdu...)

	length := uint16(1 + len(pdu)) // unit id + pdu
	binary.BigEndian.PutUint16(dst[start+4:start+6], length)
	return dst
}

// ParseMBAPPrefix reads the first 6 bytes of an MBAP header (before the
// engine knows how many more bytes to read) and returns the transaction id
// and the `len` field (byte count from unit_id onward).
func ParseMBAPPrefix(prefix []byte) (txnID uint16, length uint16, err error) {
	if len(prefix) < 6 {
		return 0, 0, errMalformed("MBAP prefix shorter than 6 bytes: %d", len(prefix))
	}
	protocolID := binary.BigEndian.Uint16(prefix[2:4])
	if protocolID != ProtocolID {
		return 0, 0, errMalformed("MBAP protocol id must be 0, got %d", protocolID)
	}
	txnID = binary.BigEndian.Uint16(prefix[0:2])
	length = binary.BigEndian.Uint16(prefix[4:6])
	return txnID, length, nil
}

// UnframeTCP verifies a complete MBAP+PDU frame (protocol id 0, and a len
// field matching the frame size) and returns the transaction id, unit id,
// and inner PDU slice (aliasing frame).
func UnframeTCP(frame []byte) (txnID uint16, unitID uint8, pduBytes []byte, err error) {
	if len(frame) < MBAPHeaderLen {
		return 0, 0, nil, errMalformed("TCP frame shorter than MBAP header: %d", len(frame))
	}
	txnID, length, err := ParseMBAPPrefix(frame[:6])
	if err != nil {
		return 0, 0, nil, err
	}
	if len(frame) != 6+int(length) {
		return 0, 0, nil, errMalformed("MBAP length %d does not match frame size %d", length, len(frame)-6)
	}
	return txnID, frame[6], frame[7:], nil
}
