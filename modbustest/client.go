// Package modbustest provides a net.Pipe-backed in-memory Transport pair
// for exercising a client Handle and a server Handle against each other in
// tests without a real socket.
package modbustest

import "net"

// Pipe returns two connected in-memory net.Conn halves, one for a client
// Handle and one for a server Handle, so the two can be exercised against
// each other without a real socket. Both ends satisfy modbus.Transport and
// modbus.Deadliner directly.
func Pipe() (client, server net.Conn) {
	return net.Pipe()
}
