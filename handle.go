// Package modbus drives the Modbus protocol engine: validating and
// serializing requests, writing them to a transport, performing
// bounded-lookahead reads to discover response length, and parsing the
// result back into a typed value. A Handle also dispatches inbound requests
// for the server role. See package pdu for the typed request/response
// values and package adu for the wire framing.
package modbus

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
)

// Role fixes whether a Handle initiates exchanges (Client) or answers them
// (Server) for its entire lifetime.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

const (
	defaultWriteTimeout = 1 * time.Second
	defaultReadTimeout  = 2 * time.Second
)

// Handle owns a single transmit/receive scratch buffer, the encapsulation in
// use, the transport, and role-specific state: a client's device address and
// transaction counter, or a server's callback slot table. A Handle is used
// by one goroutine at a time; it shares no mutable state with any other
// Handle.
type Handle struct {
	role      Role
	kind      adu.Kind
	transport Transport
	buf       []byte

	mu sync.Mutex

	timeNow      func() time.Time
	writeTimeout time.Duration
	readTimeout  time.Duration
	hooks        ClientHooks

	// client state
	deviceAddress uint8
	txnID         uint16

	// server state
	slots [maxSlots]slot
}

// Option configures a Handle at construction time. Client and server roles
// share the same option type; role-specific options document which role
// they apply to and are silently ignored by the other.
type Option func(*Handle)

// WithWriteTimeout overrides the deadline armed before writing a frame on
// transports that implement Deadliner. Applies to client requests and
// server replies alike.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handle) { h.writeTimeout = d }
}

// WithReadTimeout overrides the total deadline for reading one response.
// Client role only.
func WithReadTimeout(d time.Duration) Option {
	return func(h *Handle) { h.readTimeout = d }
}

// WithHooks installs a ClientHooks implementation for observing raw bytes.
// BeforeWrite and AfterEachRead also fire for a server-role Handle's reads
// and writes; BeforeParse fires only in the client role.
func WithHooks(hooks ClientHooks) Option {
	return func(h *Handle) { h.hooks = hooks }
}

// WithTransactionID seeds the initial MBAP transaction id instead of
// starting from 0. TCP client role only.
func WithTransactionID(start uint16) Option {
	return func(h *Handle) { h.txnID = start }
}

// NewClientHandle constructs a Handle in the Client role for the given
// encapsulation, backed by transport and a scratch buffer. buf must be at
// least kind.MaxADUSize() bytes; a nil buf allocates one of exactly that
// size.
func NewClientHandle(kind adu.Kind, transport Transport, buf []byte, opts ...Option) (*Handle, error) {
	h, err := newHandle(RoleClient, kind, transport, buf)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

// NewServerHandle constructs a Handle in the Server role for the given
// encapsulation, backed by transport and a scratch buffer.
func NewServerHandle(kind adu.Kind, transport Transport, buf []byte, opts ...Option) (*Handle, error) {
	h, err := newHandle(RoleServer, kind, transport, buf)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

func newHandle(role Role, kind adu.Kind, transport Transport, buf []byte) (*Handle, error) {
	if transport == nil {
		return nil, merr.New(merr.FailInvalidArgument, "transport must not be nil")
	}
	minCap := kind.MaxADUSize()
	if buf == nil {
		buf = make([]byte, minCap)
	}
	if len(buf) < minCap {
		return nil, merr.New(merr.FailBufferCapacity, "scratch buffer of %d bytes is smaller than max %s ADU of %d bytes", len(buf), kind, minCap)
	}
	return &Handle{
		role:         role,
		kind:         kind,
		transport:    transport,
		buf:          buf,
		timeNow:      time.Now,
		writeTimeout: defaultWriteTimeout,
		readTimeout:  defaultReadTimeout,
	}, nil
}

// SetDeviceAddress sets the slave/unit id stamped on outgoing client
// requests (RTU/ASCII address byte, or TCP MBAP unit id).
func (h *Handle) SetDeviceAddress(address uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceAddress = address
}

// Kind returns the encapsulation this Handle was constructed with.
func (h *Handle) Kind() adu.Kind { return h.kind }

// Role returns whether this Handle is a Client or Server.
func (h *Handle) Role() Role { return h.role }

func (h *Handle) requireRole(want Role) error {
	if h.role != want {
		return merr.New(merr.FailInvalidMode, "handle is in %s role, not %s", h.role, want)
	}
	return nil
}

func (h *Handle) nextTxnID() uint16 {
	id := h.txnID
	h.txnID++ // wraps mod 2^16 on overflow
	return id
}

func (h *Handle) setReadDeadline(d time.Duration) {
	if dl, ok := h.transport.(Deadliner); ok {
		_ = dl.SetReadDeadline(h.timeNow().Add(d))
	}
}

func (h *Handle) setWriteDeadline(d time.Duration) {
	if dl, ok := h.transport.(Deadliner); ok {
		_ = dl.SetWriteDeadline(h.timeNow().Add(d))
	}
}

// writeAll writes data to the transport, looping over short writes. A write
// returning 0 yields FailTransport; an error is classified by wrapIOError.
func (h *Handle) writeAll(data []byte) error {
	h.setWriteDeadline(h.writeTimeout)
	if h.hooks != nil {
		h.hooks.BeforeWrite(data)
	}
	total := 0
	for total < len(data) {
		n, err := h.transport.Write(data[total:])
		if err != nil {
			return wrapIOError(err)
		}
		if n <= 0 {
			return merr.New(merr.FailTransport, "transport.Write returned 0 bytes")
		}
		total += n
	}
	return nil
}

// readFull reads exactly len(dst) bytes from the transport into dst,
// looping over short reads. A read returning 0 yields FailTransport; an
// error is classified by wrapIOError. Hooks observe every individual read.
func (h *Handle) readFull(dst []byte) error {
	total := 0
	for total < len(dst) {
		n, err := h.transport.Read(dst[total:])
		if h.hooks != nil {
			h.hooks.AfterEachRead(dst[total:total+max(n, 0)], n, err)
		}
		if err != nil {
			return wrapIOError(err)
		}
		if n <= 0 {
			return merr.New(merr.FailTransport, "transport.Read returned 0 bytes")
		}
		total += n
	}
	return nil
}

// wrapIOError classifies a transport error: a deadline expiring is reported
// as FailTimeout so callers can tell a silent peer from a broken one, per
// Deadliner's contract. Everything else is FailTransport.
func wrapIOError(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return merr.Wrap(merr.FailTimeout, err)
	}
	return merr.Wrap(merr.FailTransport, err)
}
