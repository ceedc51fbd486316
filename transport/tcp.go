// Package transport supplies concrete Transport implementations for the
// engine: a TCP dialer for Modbus TCP and a POSIX serial port opener for
// RTU/ASCII. Neither type is imported by the core packages (modbus, adu,
// pdu, merr, checksum); they are example collaborators, wired the way the
// reference client wires net.Conn and github.com/tarm/serial.
package transport

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/tinymodbus/tinymodbus/merr"
)

const defaultConnectTimeout = 1 * time.Second

// TCP wraps a net.Conn as a modbus.Transport, implementing Deadliner by
// delegating straight to the connection.
type TCP struct {
	net.Conn
}

// DialTCP opens a TCP connection to address and returns it wrapped as a
// Transport. address is parsed as `[scheme://]host:port`; an absent scheme
// defaults to "tcp" (e.g. "127.0.0.1:502" or "udp://127.0.0.1:502").
func DialTCP(ctx context.Context, address string) (*TCP, error) {
	dialer := &net.Dialer{
		Timeout:   defaultConnectTimeout,
		KeepAlive: 15 * time.Second,
	}
	network, addr := splitNetworkAddress(address)
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, merr.Wrap(merr.FailConnectionRefused, err)
	}
	return &TCP{Conn: conn}, nil
}

func splitNetworkAddress(address string) (network, addr string) {
	network, addr, ok := strings.Cut(address, "://")
	if !ok {
		return "tcp", address
	}
	return network, addr
}
