package port_reader

import "errors"

var (
	// ErrOpenFailed wraps any failure to open the serial device. It is fatal
	// for the reader: there is no retry policy for opening.
	ErrOpenFailed = errors.New("serial port open failed")

	// ErrReadFailed wraps read errors. The port has been closed and the frame
	// in progress dropped; the next loop iteration reopens the port.
	ErrReadFailed = errors.New("serial read failed")

	// ErrReadTimeout is returned when no data arrived within the read timeout.
	ErrReadTimeout = errors.New("serial read timeout")

	// ErrNonASCII is returned for lines that do not decode as ASCII.
	ErrNonASCII = errors.New("line is not ASCII")

	ErrNotOpen = errors.New("serial port not open")

	ErrUnknownDriver = errors.New("unknown serial driver")
)
