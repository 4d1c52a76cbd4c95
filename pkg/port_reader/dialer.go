package port_reader

import (
	"context"
	"fmt"
	"io"
	"time"
)

//go:generate go tool mockgen -source=dialer.go -destination=mock_dialer.go -package=port_reader

// P1 port line settings. 8N1 is set by each driver.
const (
	BaudRate    = 115200
	ReadTimeout = 12 * time.Second
)

const (
	DriverJacobsa = "jacobsa"
	DriverBugst   = "bugst"
)

// Dialer opens the serial device. Each call returns a fresh connection.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadCloser, error)
}

// NewDialer returns the dialer for the named driver. An empty name selects
// the jacobsa driver.
func NewDialer(driver, portName string) (Dialer, error) {
	switch driver {
	case "", DriverJacobsa:
		return JacobsaDialer{PortName: portName}, nil
	case DriverBugst:
		return BugstDialer{PortName: portName}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
