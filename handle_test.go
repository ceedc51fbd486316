package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
	"github.com/tinymodbus/tinymodbus/modbustest"
	"github.com/tinymodbus/tinymodbus/pdu"
)

func TestNewClientHandle_nilTransport(t *testing.T) {
	_, err := NewClientHandle(adu.TCP, nil, nil)

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailInvalidArgument, merrErr.Kind)
}

func TestNewClientHandle_bufferTooSmall(t *testing.T) {
	client, _ := modbustest.Pipe()
	defer client.Close()

	_, err := NewClientHandle(adu.TCP, client, make([]byte, 4))

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailBufferCapacity, merrErr.Kind)
}

func TestNewClientHandle_allocatesDefaultBuffer(t *testing.T) {
	client, server := modbustest.Pipe()
	defer client.Close()
	defer server.Close()

	h, err := NewClientHandle(adu.RTU, client, nil)

	assert.NoError(t, err)
	assert.Equal(t, adu.RTU, h.Kind())
	assert.Equal(t, RoleClient, h.Role())
}

func TestHandle_requireRole(t *testing.T) {
	client, server := modbustest.Pipe()
	defer client.Close()
	defer server.Close()

	h, err := NewServerHandle(adu.TCP, server, nil)
	assert.NoError(t, err)

	_, err = h.Do(pdu.NewReadHoldingRegistersRequest(0, 1))

	var merrErr *merr.Error
	assert.ErrorAs(t, err, &merrErr)
	assert.Equal(t, merr.FailInvalidMode, merrErr.Kind)
}

func TestOptions_applyOnConstruction(t *testing.T) {
	client, server := modbustest.Pipe()
	defer client.Close()
	defer server.Close()

	h, err := NewClientHandle(adu.TCP, client, nil, WithTransactionID(41))
	assert.NoError(t, err)
	assert.Equal(t, uint16(41), h.nextTxnID())
	assert.Equal(t, uint16(42), h.nextTxnID())
}

func TestNextTxnID_wraps(t *testing.T) {
	client, server := modbustest.Pipe()
	defer client.Close()
	defer server.Close()

	h, err := NewClientHandle(adu.TCP, client, nil, WithTransactionID(0xFFFF))
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), h.nextTxnID())
	assert.Equal(t, uint16(0), h.nextTxnID())
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "server", RoleServer.String())
}
