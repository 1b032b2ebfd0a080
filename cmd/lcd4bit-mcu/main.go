//go:build tinygo

// lcd4bit-mcu drives the display straight from a microcontroller: the lines
// are wired to D2..D7 and the demo text is shown once after power-on.
package main

import (
	"machine"

	"github.com/gethiox/lcd4bit/internal/pkg/delay"
	"github.com/gethiox/lcd4bit/internal/pkg/gpio"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
)

func main() {
	port := gpio.NewMachinePort(machine.D2, machine.D3, machine.D4, machine.D5, machine.D6, machine.D7)
	sleeper := delay.TimerSleeper{
		Timer:      delay.NewHostTimer(0),
		TicksPerMs: delay.DefaultTicksPerMs,
	}

	display := lcd.New(port, sleeper)
	display.Init()
	display.Demo()

	select {}
}
