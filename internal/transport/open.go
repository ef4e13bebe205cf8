package transport

import (
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// OpenSerial opens an 8N1 serial port at baud.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", port, err)
	}
	return p, nil
}

// DialTCP connects to a TCP bridge exposing the same framed stream.
func DialTCP(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return conn, nil
}

// SerialPorts lists the serial ports visible on this host.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
