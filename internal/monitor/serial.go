package monitor

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// OpenSerial opens the board's serial port. Reads block until data arrives,
// and closing the port unblocks them.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: cfg.Device,
		Baud: cfg.Baud,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}
