//go:build linux

package port_reader

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// enableSoftwareFlowControl turns on XON/XOFF for the tty at portName.
// Both drivers clear IXON/IXOFF when configuring the port, so this runs
// after the driver has opened it. The setting belongs to the tty, so a
// second descriptor is enough.
func enableSoftwareFlowControl(portName string) error {
	fd, err := unix.Open(portName, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for termios: %w", portName, err)
	}
	defer unix.Close(fd)

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to read termios: %w", err)
	}
	termios.Iflag |= unix.IXON | unix.IXOFF
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to enable XON/XOFF: %w", err)
	}
	return nil
}
