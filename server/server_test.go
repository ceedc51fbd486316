package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	modbus "github.com/tinymodbus/tinymodbus"
	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
	"github.com/tinymodbus/tinymodbus/pdu"
	"github.com/tinymodbus/tinymodbus/transport"
)

type echoCallbacks struct {
	registers map[uint16]uint16
}

func (c *echoCallbacks) ReadCoil(uint8, uint16) (bool, merr.Kind) { return false, merr.Ok }
func (c *echoCallbacks) ReadDiscreteInput(uint8, uint16) (bool, merr.Kind) {
	return false, merr.Ok
}
func (c *echoCallbacks) ReadHoldingRegister(unit uint8, address uint16) (uint16, merr.Kind) {
	return c.registers[address], merr.Ok
}
func (c *echoCallbacks) ReadInputRegister(uint8, uint16) (uint16, merr.Kind) { return 0, merr.Ok }
func (c *echoCallbacks) WriteCoil(uint8, uint16, bool) merr.Kind             { return merr.Ok }
func (c *echoCallbacks) WriteHoldingRegister(unit uint8, address uint16, value uint16) merr.Kind {
	c.registers[address] = value
	return merr.Ok
}

func TestServer_roundTripOverRealTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	cb := &echoCallbacks{registers: map[uint16]uint16{}}
	factory := func(conn net.Conn) (*modbus.Handle, error) {
		h, err := modbus.NewServerHandle(adu.TCP, conn, nil)
		if err != nil {
			return nil, err
		}
		if err := h.SetCallback(modbus.AnyAddress, cb); err != nil {
			return nil, err
		}
		return h, nil
	}

	s := &Server{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() { serveDone <- s.Serve(ctx, listener, factory) }()

	conn, err := transport.DialTCP(context.Background(), listener.Addr().String())
	assert.NoError(t, err)
	defer conn.Close()

	ch, err := modbus.NewClientHandle(adu.TCP, conn, nil)
	assert.NoError(t, err)
	ch.SetDeviceAddress(1)

	_, err = ch.Do(pdu.NewWriteSingleRegisterRequest(3, 777))
	assert.NoError(t, err)

	resp, err := ch.Do(pdu.NewReadHoldingRegistersRequest(3, 1))
	assert.NoError(t, err)
	assert.Equal(t, []uint16{777}, resp.Registers)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	assert.NoError(t, s.Shutdown(shutdownCtx))
	assert.ErrorIs(t, <-serveDone, ErrServerClosed)
}

func TestServer_Addr(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer listener.Close()

	s := &Server{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := func(conn net.Conn) (*modbus.Handle, error) {
		return modbus.NewServerHandle(adu.TCP, conn, nil)
	}

	addrCh := make(chan net.Addr, 1)
	s.OnServeFunc = func(addr net.Addr) { addrCh <- addr }
	go func() { _ = s.Serve(ctx, listener, factory) }()

	addr := <-addrCh
	assert.Equal(t, listener.Addr().String(), addr.String())
	assert.Equal(t, listener.Addr().String(), s.Addr().String())
}

func TestServer_acceptHookCanRejectConnection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	factory := func(conn net.Conn) (*modbus.Handle, error) {
		return modbus.NewServerHandle(adu.TCP, conn, nil)
	}

	s := &Server{
		OnAcceptConnFunc: func(ctx context.Context, remoteAddr net.Addr, count int64) error {
			return assert.AnError
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, listener, factory) }()

	conn, err := transport.DialTCP(context.Background(), listener.Addr().String())
	assert.NoError(t, err)

	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(buf)
	assert.Error(t, err) // server closed the connection immediately
}
