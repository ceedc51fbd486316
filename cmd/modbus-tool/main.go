// Command modbus-tool issues a single Modbus request over TCP, RTU, or
// ASCII and prints the parsed response, demonstrating the Handle API: flags
// → connect → build request → Do → print.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	modbus "github.com/tinymodbus/tinymodbus"
	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
	"github.com/tinymodbus/tinymodbus/pdu"
	"github.com/tinymodbus/tinymodbus/transport"
)

func main() {
	var (
		target    = flag.String("target", "", "target to connect to: tcp://host:port, or a serial device path [required]")
		unitID    = flag.Uint("unit", 1, "unit/slave id")
		function  = flag.String("function", "", "read-coils|read-discrete-inputs|read-holding|read-input|write-coil|write-register|write-coils|write-registers [required]")
		address   = flag.Uint("address", 0, "start address")
		quantity  = flag.Uint("quantity", 1, "quantity for read functions (write-coils/write-registers take it from -values)")
		value     = flag.Uint("value", 0, "value for write-coil/write-register")
		values    = flag.String("values", "", "comma-separated values for write-coils/write-registers")
		baud      = flag.Int("baud", 19200, "serial baud rate (rtu/ascii)")
		timeout   = flag.Duration("timeout", 2*time.Second, "read timeout")
		encapName = flag.String("encapsulation", "tcp", "tcp|rtu|ascii")
	)
	flag.Parse()

	if err := run(*target, *function, *encapName, uint8(*unitID), uint16(*address), uint16(*quantity), uint16(*value), *values, *baud, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "modbus-tool:", err)
		os.Exit(1)
	}
}

func run(target, function, encapName string, unitID uint8, address, quantity, value uint16, values string, baud int, timeout time.Duration) error {
	if target == "" {
		return errors.New("no target specified, use -target")
	}
	if function == "" {
		return errors.New("no function specified, use -function")
	}

	kind, err := parseEncapsulation(encapName)
	if err != nil {
		return err
	}

	conn, err := dial(target, kind, baud)
	if err != nil {
		return err
	}
	defer conn.Close()

	h, err := modbus.NewClientHandle(kind, conn, nil, modbus.WithReadTimeout(timeout))
	if err != nil {
		return err
	}
	h.SetDeviceAddress(unitID)

	req, err := buildRequest(function, address, quantity, value, values)
	if err != nil {
		return err
	}

	resp, err := h.Do(req)
	if err != nil {
		var merrErr *merr.Error
		if errors.As(err, &merrErr) && merrErr.Kind.IsException() {
			return fmt.Errorf("device returned exception: %s", merrErr.Kind)
		}
		return err
	}

	printResponse(resp, quantity)
	return nil
}

func isMultiWriteFunction(fc pdu.FunctionCode) bool {
	return fc == pdu.WriteMultipleCoils || fc == pdu.WriteMultipleRegisters
}

func parseEncapsulation(name string) (adu.Kind, error) {
	switch strings.ToLower(name) {
	case "tcp":
		return adu.TCP, nil
	case "rtu":
		return adu.RTU, nil
	case "ascii":
		return adu.ASCII, nil
	default:
		return 0, fmt.Errorf("unknown encapsulation %q (want tcp, rtu, or ascii)", name)
	}
}

// closeableTransport is what dial returns: every concrete transport this
// tool can open is both a modbus.Transport and closeable.
type closeableTransport interface {
	modbus.Transport
	Close() error
}

func dial(target string, kind adu.Kind, baud int) (closeableTransport, error) {
	if kind == adu.TCP {
		return transport.DialTCP(context.Background(), target)
	}
	return transport.OpenSerial(target, transport.WithBaud(baud))
}

func buildRequest(function string, address, quantity, value uint16, valuesCSV string) (pdu.Request, error) {
	switch function {
	case "read-coils":
		return pdu.NewReadCoilsRequest(address, quantity), nil
	case "read-discrete-inputs":
		return pdu.NewReadDiscreteInputsRequest(address, quantity), nil
	case "read-holding":
		return pdu.NewReadHoldingRegistersRequest(address, quantity), nil
	case "read-input":
		return pdu.NewReadInputRegistersRequest(address, quantity), nil
	case "write-coil":
		return pdu.NewWriteSingleCoilRequest(address, pdu.CoilValue(value != 0)), nil
	case "write-register":
		return pdu.NewWriteSingleRegisterRequest(address, value), nil
	case "write-coils":
		bits, err := parseBoolCSV(valuesCSV)
		if err != nil {
			return pdu.Request{}, err
		}
		return pdu.NewWriteMultipleCoilsRequest(address, uint16(len(bits)), pdu.PackCoils(bits)), nil
	case "write-registers":
		regs, err := parseUint16CSV(valuesCSV)
		if err != nil {
			return pdu.Request{}, err
		}
		return pdu.NewWriteMultipleRegistersRequest(address, regs), nil
	default:
		return pdu.Request{}, fmt.Errorf("unknown function %q", function)
	}
}

func parseBoolCSV(csv string) ([]bool, error) {
	if csv == "" {
		return nil, errors.New("-values is required for this function")
	}
	parts := strings.Split(csv, ",")
	out := make([]bool, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		out[i] = n != 0
	}
	return out, nil
}

func parseUint16CSV(csv string) ([]uint16, error) {
	if csv == "" {
		return nil, errors.New("-values is required for this function")
	}
	parts := strings.Split(csv, ",")
	out := make([]uint16, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		out[i] = uint16(n)
	}
	return out, nil
}

func printResponse(resp pdu.Response, quantity uint16) {
	switch {
	case resp.Coils != nil:
		bits := pdu.UnpackCoils(resp.Coils, int(quantity))
		fmt.Println(bits)
	case resp.Registers != nil:
		fmt.Println(resp.Registers)
	case isMultiWriteFunction(resp.Function):
		fmt.Printf("wrote %d values starting at address 0x%04X\n", resp.Quantity, resp.StartAddress)
	default:
		fmt.Printf("address=0x%04X value=0x%04X\n", resp.Address, resp.Value)
	}
}
