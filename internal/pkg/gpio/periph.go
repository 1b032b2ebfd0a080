//go:build !tinygo

package gpio

import (
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphPin struct {
	gpio.PinOut
}

func (p periphPin) Set(high bool) error {
	return p.Out(gpio.Level(high))
}

// NewPeriphPort opens the six lines by their periph.io names (e.g. "GPIO17").
func NewPeriphPort(names PinNames, log *zap.Logger) (*PinPort, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("cannot initialize periph host drivers: %w", err)
	}

	var pins [lineCount]Pin
	for i, name := range names.list() {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown gpio \"%s\" for %s line", name, lineNames[i])
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("cannot set \"%s\" as output: %w", name, err)
		}
		pins[i] = periphPin{PinOut: p}
	}

	port := NewPinPort(pins, log)
	port.closer = func() error {
		for _, p := range pins {
			if err := p.(periphPin).Halt(); err != nil {
				return err
			}
		}
		return nil
	}
	return port, nil
}
