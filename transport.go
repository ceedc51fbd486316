package modbus

import (
	"io"
	"time"
)

// Transport is the byte-oriented collaborator the engine drives. It is
// deliberately narrow: Read/Write behave like io.Reader/io.Writer (short
// reads and writes are expected and the engine loops over them), and nothing
// about serial ports, sockets, or hostnames leaks into this package.
type Transport interface {
	io.Reader
	io.Writer
}

// Deadliner is an optional Transport capability. Transports that wrap
// net.Conn or a serial port typically implement it; the engine type-asserts
// for it and, when present, arms a write deadline before writing each frame
// and, in the client role, one read deadline covering the whole response, so
// a silent peer surfaces as FailTimeout instead of blocking forever. A
// server-role Handle arms no read deadline.
type Deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}
