package port_reader

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

type JacobsaDialer struct {
	PortName string
}

// Dial opens the port with a 12 s read timeout and XON/XOFF enabled.
// A read that times out returns io.EOF.
func (d JacobsaDialer) Dial(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := serial.OpenOptions{
		PortName:          d.PortName,
		BaudRate:          BaudRate,
		DataBits:          8,
		StopBits:          1,
		ParityMode:        serial.PARITY_NONE,
		RTSCTSFlowControl: false,
		// MinimumReadSize 0 turns the inter-character timeout into a read timeout.
		InterCharacterTimeout: uint(ReadTimeout / time.Millisecond),
		MinimumReadSize:       0,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	// go-serial writes c_iflag = 0, which clears IXON/IXOFF.
	if err := enableSoftwareFlowControl(d.PortName); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
