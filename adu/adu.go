// Package adu frames and deframes Application Data Units: the bytes that
// wrap an inner PDU (see package pdu) with the addressing and checksum
// machinery specific to RTU, ASCII, or TCP encapsulation.
package adu

import (
	"github.com/tinymodbus/tinymodbus/merr"
)

// Kind identifies which of the three encapsulations an ADU uses.
type Kind uint8

const (
	RTU Kind = iota
	ASCII
	TCP
)

func (k Kind) String() string {
	switch k {
	case RTU:
		return "RTU"
	case ASCII:
		return "ASCII"
	case TCP:
		return "TCP"
	default:
		return "Kind(?)"
	}
}

// Protocol identifier carried in the MBAP header; always 0 for Modbus.
const ProtocolID = 0

// BroadcastAddress is the reserved unit id meaning "no reply expected".
const BroadcastAddress = 0

// AnyAddress is the server-only sentinel "listen on any unit id".
const AnyAddress = 256

// DefaultTCPPort is the well-known Modbus TCP port.
const DefaultTCPPort = 502

// HeaderLen returns O(kind): the offset at which PDU bytes begin within a
// complete ADU.
func (k Kind) HeaderLen() int {
	switch k {
	case RTU, ASCII:
		return 1
	case TCP:
		return 7
	default:
		return 0
	}
}

// TrailerLen returns T(kind): the number of framing bytes that follow the PDU.
func (k Kind) TrailerLen() int {
	switch k {
	case RTU:
		return 2
	case ASCII:
		return 4
	case TCP:
		return 0
	default:
		return 0
	}
}

// LookaheadPrefixLen is the number of framing bytes that precede the
// function code, equal to HeaderLen(). For ASCII this counts the ':' only;
// the hex digits of the address and function code come on top of it.
func (k Kind) LookaheadPrefixLen() int {
	return k.HeaderLen()
}

// MaxADUSize is the largest complete frame this encapsulation can produce,
// per §3: TCP 7+253, RTU 1+253+2, ASCII 1+2*(1+253+1)+2+2.
func (k Kind) MaxADUSize() int {
	switch k {
	case RTU:
		return 1 + pduMax + 2
	case ASCII:
		return 1 + 2*(1+pduMax+1) + 2 + 2
	case TCP:
		return 7 + pduMax
	default:
		return 0
	}
}

const pduMax = 253

// errMalformed builds a FailMalformedFrame error.
func errMalformed(format string, args ...interface{}) error {
	return merr.New(merr.FailMalformedFrame, format, args...)
}

// errCapacity builds a FailBufferCapacity error.
func errCapacity(format string, args ...interface{}) error {
	return merr.New(merr.FailBufferCapacity, format, args...)
}

// errBadChecksum builds a FailBadChecksum error.
func errBadChecksum(format string, args ...interface{}) error {
	return merr.New(merr.FailBadChecksum, format, args...)
}
