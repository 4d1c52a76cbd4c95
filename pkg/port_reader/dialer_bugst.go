package port_reader

import (
	"context"
	"fmt"
	"io"

	bugserial "go.bug.st/serial"
)

type BugstDialer struct {
	PortName string
}

func (d BugstDialer) Dial(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &bugserial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	}

	port, err := bugserial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	if err := enableSoftwareFlowControl(d.PortName); err != nil {
		port.Close()
		return nil, err
	}
	return timeoutPort{port}, nil
}

// go.bug.st/serial reports a timeout as a zero-byte read with no error.
type timeoutPort struct {
	bugserial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}
