//go:build linux && !tinygo

package gpio

import (
	"fmt"

	"github.com/d2r2/go-i2c"
	shittyLogger "github.com/d2r2/go-logger"
)

// LinuxI2C adapts a /dev/i2c-N connection to the drivers.I2C shape. The
// connection is bound to one device address when opened.
type LinuxI2C struct {
	conn    *i2c.I2C
	address uint16
}

func OpenLinuxI2C(bus int, address uint16) (*LinuxI2C, error) {
	shittyLogger.ChangePackageLogLevel("i2c", shittyLogger.InfoLevel)

	conn, err := i2c.NewI2C(uint8(address), bus)
	if err != nil {
		return nil, fmt.Errorf("cannot open i2c bus %d at 0x%02x: %w", bus, address, err)
	}
	return &LinuxI2C{conn: conn, address: address}, nil
}

func (b *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	if addr != b.address {
		return fmt.Errorf("i2c connection bound to 0x%02x, got 0x%02x", b.address, addr)
	}
	if len(w) > 0 {
		if _, err := b.conn.WriteBytes(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if _, err := b.conn.ReadBytes(r); err != nil {
			return err
		}
	}
	return nil
}

func (b *LinuxI2C) Close() error {
	return b.conn.Close()
}
