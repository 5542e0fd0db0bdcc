//go:build !linux

package serial

import "errors"

// Open is only implemented on Linux.
func Open(path string, baud int) (Port, error) {
	return nil, errors.New("serial ports are only supported on linux")
}
