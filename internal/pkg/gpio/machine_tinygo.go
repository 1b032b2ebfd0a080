//go:build tinygo

package gpio

import "machine"

type machinePin struct {
	machine.Pin
}

func (p machinePin) Set(high bool) error {
	p.Pin.Set(high)
	return nil
}

// NewMachinePort configures the six MCU pins as outputs.
func NewMachinePort(rs, e, d4, d5, d6, d7 machine.Pin) *PinPort {
	var pins [lineCount]Pin
	for i, p := range []machine.Pin{rs, e, d4, d5, d6, d7} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pins[i] = machinePin{Pin: p}
	}
	return NewPinPort(pins, nil)
}
