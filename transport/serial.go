package transport

import (
	"time"

	"github.com/tarm/serial"
	"github.com/tinymodbus/tinymodbus/merr"
)

// Serial wraps a POSIX serial port as a modbus.Transport for RTU/ASCII.
type Serial struct {
	port *serial.Port
}

// SerialOption configures the underlying serial.Config before the port is
// opened.
type SerialOption func(*serial.Config)

// WithBaud sets the baud rate. Default 19200, the Modbus-standard default.
func WithBaud(baud int) SerialOption {
	return func(c *serial.Config) { c.Baud = baud }
}

// WithDataBits sets the number of data bits per character. Default 8.
func WithDataBits(bits byte) SerialOption {
	return func(c *serial.Config) { c.Size = bits }
}

// WithParity sets the parity mode. Default serial.ParityNone.
func WithParity(parity serial.Parity) SerialOption {
	return func(c *serial.Config) { c.Parity = parity }
}

// WithStopBits sets the number of stop bits. Default serial.Stop1.
func WithStopBits(stop serial.StopBits) SerialOption {
	return func(c *serial.Config) { c.StopBits = stop }
}

// WithPortReadTimeout sets the port's own read timeout, separate from the
// engine's per-call read timeout (§4.5). Default 500ms.
func WithPortReadTimeout(d time.Duration) SerialOption {
	return func(c *serial.Config) { c.ReadTimeout = d }
}

// OpenSerial opens the named serial device (e.g. "/dev/ttyUSB0", "COM3")
// with Modbus-standard defaults, overridden by opts.
func OpenSerial(name string, opts ...SerialOption) (*Serial, error) {
	if name == "" {
		return nil, merr.New(merr.FailSerialConfig, "serial device name must not be empty")
	}
	cfg := &serial.Config{
		Name:        name,
		Baud:        19200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.Baud <= 0 {
		return nil, merr.New(merr.FailSerialConfig, "baud rate must be positive, got %d", cfg.Baud)
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, merr.Wrap(merr.FailOpenSerial, err)
	}
	return &Serial{port: port}, nil
}

func (s *Serial) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *Serial) Close() error                { return s.port.Close() }

// Flush discards unread/unwritten bytes buffered by the driver.
func (s *Serial) Flush() error { return s.port.Flush() }
