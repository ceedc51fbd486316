package modbus

import (
	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
	"github.com/tinymodbus/tinymodbus/pdu"
)

// ClientHooks observes the raw bytes a client Handle exchanges, mirroring
// the framing a caller would see on the wire. Implementations must not
// retain or mutate the given slices; they may alias the Handle's scratch
// buffer (the ASCII PDU passed to BeforeParse is a decoded copy) and are
// only valid for the duration of the call.
type ClientHooks interface {
	BeforeWrite(toWrite []byte)
	AfterEachRead(received []byte, n int, err error)
	BeforeParse(received []byte)
}

// Do runs one client exchange: validate, serialize, frame, write, read the
// response with bounded lookahead, verify framing, and parse. Only one
// exchange is outstanding on a Handle at a time: Do holds the Handle's lock
// for the whole exchange, so concurrent calls on the same Handle run one
// after another.
func (h *Handle) Do(req pdu.Request) (pdu.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.requireRole(RoleClient); err != nil {
		return pdu.Response{}, err
	}
	if err := pdu.Validate(req); err != nil {
		return pdu.Response{}, err
	}

	frame, err := h.buildRequestFrame(req)
	if err != nil {
		return pdu.Response{}, err
	}
	if err := h.writeAll(frame); err != nil {
		return pdu.Response{}, err
	}

	pduBytes, err := h.readResponsePDU()
	if err != nil {
		return pdu.Response{}, err
	}

	if h.hooks != nil {
		h.hooks.BeforeParse(pduBytes)
	}
	if len(pduBytes) > 0 && pdu.IsExceptionFunctionCode(pduBytes[0]) {
		fc, kind, err := pdu.ParseException(pduBytes)
		if err != nil {
			return pdu.Response{}, err
		}
		return pdu.Response{}, merr.New(kind, "function %s rejected by device", fc)
	}
	return pdu.Parse(pduBytes)
}

// buildRequestFrame serializes req into a PDU, then wraps it in the active
// encapsulation directly into h.buf. The PDU is built into a stack-local
// array first since framing needs room before it for the address/MBAP
// header that Append alone does not reserve.
func (h *Handle) buildRequestFrame(req pdu.Request) ([]byte, error) {
	var pduScratch [pdu.MaxPDUSize]byte
	pduBytes, err := pdu.Append(pduScratch[:0], req)
	if err != nil {
		return nil, err
	}

	var frame []byte
	switch h.kind {
	case adu.RTU:
		frame = adu.FrameRTU(h.buf[:0], h.deviceAddress, pduBytes)
	case adu.ASCII:
		frame = adu.FrameASCII(h.buf[:0], h.deviceAddress, pduBytes)
	case adu.TCP:
		txnID := h.nextTxnID()
		frame = adu.FrameTCP(h.buf[:0], txnID, h.deviceAddress, pduBytes)
	default:
		return nil, merr.New(merr.FailInvalidMode, "unknown encapsulation %v", h.kind)
	}
	if len(frame) > cap(h.buf) {
		return nil, merr.New(merr.FailBufferCapacity, "request frame of %d bytes exceeds scratch capacity %d", len(frame), cap(h.buf))
	}
	return frame, nil
}

// readResponsePDU performs the bounded-lookahead read: the framing header,
// then the first two PDU bytes, then exactly the remainder the size oracle
// computes, then verifies and strips framing. The returned slice aliases
// h.buf and is valid until the next call on this Handle.
func (h *Handle) readResponsePDU() ([]byte, error) {
	h.setReadDeadline(h.readTimeout)

	switch h.kind {
	case adu.TCP:
		return h.readResponseTCP()
	case adu.RTU:
		return h.readResponseRTU()
	case adu.ASCII:
		return h.readResponseASCII()
	default:
		return nil, merr.New(merr.FailInvalidMode, "unknown encapsulation %v", h.kind)
	}
}

func (h *Handle) readResponseRTU() ([]byte, error) {
	// address byte + first two PDU bytes (function code, second byte)
	lookahead := h.buf[:3]
	if err := h.readFull(lookahead); err != nil {
		return nil, err
	}
	fc, secondByte := lookahead[1], lookahead[2]

	remainder, err := pduRemainder(fc, secondByte)
	if err != nil {
		return nil, err
	}
	total := 3 + remainder + 2 // + CRC trailer
	if total > len(h.buf) {
		return nil, merr.New(merr.FailBufferCapacity, "RTU response of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	if err := h.readFull(h.buf[3:total]); err != nil {
		return nil, err
	}

	frame := h.buf[:total]
	_, pduBytes, err := adu.UnframeRTU(frame)
	if err != nil {
		return nil, err
	}
	return pduBytes, nil
}

func (h *Handle) readResponseASCII() ([]byte, error) {
	// ':' + 2 hex address + 4 hex (function code, second byte)
	lookahead := h.buf[:7]
	if err := h.readFull(lookahead); err != nil {
		return nil, err
	}
	fc, err := decodeHexByte(lookahead[3], lookahead[4])
	if err != nil {
		return nil, err
	}
	secondByte, err := decodeHexByte(lookahead[5], lookahead[6])
	if err != nil {
		return nil, err
	}

	remainder, err := pduRemainder(fc, secondByte)
	if err != nil {
		return nil, err
	}
	// remaining PDU bytes in hex (2 chars each) + LRC hex (2 chars) + CRLF
	tailLen := remainder*2 + 2 + 2
	total := 7 + tailLen
	if total > len(h.buf) {
		return nil, merr.New(merr.FailBufferCapacity, "ASCII response of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	if err := h.readFull(h.buf[7:total]); err != nil {
		return nil, err
	}

	frame := h.buf[:total]
	_, pduBytes, err := adu.UnframeASCII(frame)
	if err != nil {
		return nil, err
	}
	return pduBytes, nil
}

func (h *Handle) readResponseTCP() ([]byte, error) {
	prefix := h.buf[:6]
	if err := h.readFull(prefix); err != nil {
		return nil, err
	}
	_, length, err := adu.ParseMBAPPrefix(prefix)
	if err != nil {
		return nil, err
	}
	total := 6 + int(length)
	if total > len(h.buf) {
		return nil, merr.New(merr.FailBufferCapacity, "TCP response of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	// unit id + first two PDU bytes, to consult the size oracle
	if total < 6+1+2 {
		return nil, merr.New(merr.FailMalformedFrame, "MBAP length %d too short to carry a PDU", length)
	}
	if err := h.readFull(h.buf[6 : 6+1+2]); err != nil {
		return nil, err
	}
	fc, secondByte := h.buf[7], h.buf[8]
	remainder, err := pduRemainder(fc, secondByte)
	if err != nil {
		return nil, err
	}
	wantTotal := 6 + 1 + 2 + remainder
	if wantTotal != total {
		return nil, merr.New(merr.FailMalformedFrame, "MBAP length %d does not match PDU size oracle", length)
	}
	if err := h.readFull(h.buf[9:total]); err != nil {
		return nil, err
	}

	_, _, pduBytes, err := adu.UnframeTCP(h.buf[:total])
	if err != nil {
		return nil, err
	}
	return pduBytes, nil
}

// pduRemainder computes how many more PDU bytes follow the first two,
// per the size oracle, treating exception replies as fully read already.
func pduRemainder(fc, secondByte uint8) (int, error) {
	total, err := pdu.ResponseSizeOracle(fc, secondByte)
	if err != nil {
		return 0, err
	}
	return total - 2, nil
}

func decodeHexByte(hi, lo byte) (byte, error) {
	h, err := hexNibbleValue(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibbleValue(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

func hexNibbleValue(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, merr.New(merr.FailMalformedFrame, "invalid hex digit: %q", c)
	}
}
