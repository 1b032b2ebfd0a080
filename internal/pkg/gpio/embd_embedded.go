//go:build (arm || arm64) && !tinygo

package gpio

import (
	"fmt"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"
	"go.uber.org/zap"
)

type embdPin struct {
	embd.DigitalPin
}

func (p embdPin) Set(high bool) error {
	if high {
		return p.Write(embd.High)
	}
	return p.Write(embd.Low)
}

// NewEmbdPort opens the six lines through embd's Raspberry Pi host driver.
// Names are embd pin keys, e.g. "GPIO_17" or "P1_11".
func NewEmbdPort(names PinNames, log *zap.Logger) (*PinPort, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, fmt.Errorf("cannot initialize embd gpio: %w", err)
	}

	var pins [lineCount]Pin
	var opened []embd.DigitalPin
	cleanup := func() {
		for _, p := range opened {
			p.Close()
		}
		embd.CloseGPIO()
	}

	for i, name := range names.list() {
		p, err := embd.NewDigitalPin(name)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("cannot open \"%s\" for %s line: %w", name, lineNames[i], err)
		}
		opened = append(opened, p)
		if err := p.SetDirection(embd.Out); err != nil {
			cleanup()
			return nil, fmt.Errorf("cannot set \"%s\" as output: %w", name, err)
		}
		pins[i] = embdPin{DigitalPin: p}
	}

	port := NewPinPort(pins, log)
	port.closer = func() error {
		for _, p := range opened {
			if err := p.Close(); err != nil {
				return err
			}
		}
		return embd.CloseGPIO()
	}
	return port, nil
}
