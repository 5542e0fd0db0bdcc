// Package serial opens UART devices in raw 8N1 mode for the module backends.
package serial

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedBaud is returned by Open for rates the platform cannot set.
var ErrUnsupportedBaud = errors.New("unsupported baud rate")

// DefaultBaud is the rate every supported module ships with.
const DefaultBaud = 9600

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser
	Name() string
}

func unsupportedBaud(baud int) error {
	return fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
}
