//go:build !linux || tinygo

package gpio

import "errors"

type LinuxI2C struct{}

func OpenLinuxI2C(bus int, address uint16) (*LinuxI2C, error) {
	return nil, errors.New("i2c character devices are only available on linux")
}

func (b *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	return errors.New("i2c character devices are only available on linux")
}

func (b *LinuxI2C) Close() error {
	return nil
}
