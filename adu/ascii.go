package adu

import "github.com/tinymodbus/tinymodbus/checksum"

const (
	asciiStart = ':'
	asciiCR    = '\r'
	asciiLF    = '\n'
)

var hexDigits = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'A', 'B', 'C', 'D', 'E', 'F'}

// minASCIIFrameLen is ':' + 2 hex address + 2 hex function code + 2 hex LRC + CRLF.
const minASCIIFrameLen = 1 + 2 + 2 + 2 + 2

// FrameASCII appends an ASCII frame (':' hex(address) hex(pdu) hex(lrc) CRLF)
// wrapping pdu onto dst and returns the grown slice. LRC is computed over the
// pre-encoding binary bytes (address + pdu).
func FrameASCII(dst []byte, address uint8, pdu []byte) []byte {
	binary := make([]byte, 0, 1+len(pdu))
	binary = append(binary, address)
	binary = append(binary, pdu...)
	lrc := checksum.LRC(binary)

	dst = append(dst, asciiStart)
	dst = appendHex(dst, binary)
	dst = appendHex(dst, []byte{lrc})
	return append(dst, asciiCR, asciiLF)
}

// UnframeASCII strips the ':'/CRLF framing, decodes the hex body, and
// verifies the LRC trailer. Returns the device address and the inner PDU
// bytes (freshly decoded, not aliasing frame).
func UnframeASCII(frame []byte) (address uint8, pduBytes []byte, err error) {
	if len(frame) < minASCIIFrameLen {
		return 0, nil, errMalformed("ASCII frame shorter than %d bytes: %d", minASCIIFrameLen, len(frame))
	}
	if frame[0] != asciiStart {
		return 0, nil, errMalformed("ASCII frame missing leading ':'")
	}
	n := len(frame)
	if frame[n-2] != asciiCR || frame[n-1] != asciiLF {
		return 0, nil, errMalformed("ASCII frame missing trailing CRLF")
	}
	hexBody := frame[1 : n-2]
	if len(hexBody)%2 != 0 {
		return 0, nil, errMalformed("ASCII frame has odd hex digit count: %d", len(hexBody))
	}
	binary, err := decodeHex(hexBody)
	if err != nil {
		return 0, nil, err
	}
	if len(binary) < 2 {
		return 0, nil, errMalformed("ASCII frame too short after hex decode: %d bytes", len(binary))
	}
	body, wireLRC := binary[:len(binary)-1], binary[len(binary)-1]
	wantLRC := checksum.LRC(body)
	if wantLRC != wireLRC {
		return 0, nil, errBadChecksum("ASCII LRC mismatch: frame has 0x%02X, computed 0x%02X", wireLRC, wantLRC)
	}
	return body[0], body[1:], nil
}

func appendHex(dst []byte, data []byte) []byte {
	for _, b := range data {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}

func decodeHex(hexBody []byte) ([]byte, error) {
	out := make([]byte, len(hexBody)/2)
	for i := range out {
		hi, err := hexNibble(hexBody[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(hexBody[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, errMalformed("invalid hex digit: %q", c)
	}
}
