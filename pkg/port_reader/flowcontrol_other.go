//go:build !linux

package port_reader

// XON/XOFF is only configured on Linux.
func enableSoftwareFlowControl(portName string) error {
	return nil
}
