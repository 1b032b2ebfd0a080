package main

import (
	"fmt"

	"github.com/gethiox/lcd4bit/internal/pkg/gpio"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd/sim"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"go.uber.org/zap"
)

// Hardware is an opened backend. Screen is set for the sim backend only.
type Hardware struct {
	Port   lcd.Port
	Screen *sim.Controller
	close  func() error
}

func (h Hardware) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

func pcf8574Address(cfg PCF8574Config) uint16 {
	if cfg.Address == 0 {
		return gpio.DefaultPCF8574Address
	}
	return cfg.Address
}

func openBackend(cfg Config, log *zap.Logger) (Hardware, error) {
	log = log.With(zap.String("backend", string(cfg.LCD.Backend)))
	log.Info("opening backend", logger.Info)

	switch cfg.LCD.Backend {
	case BackendSim:
		ctrl := sim.New(nil)
		return Hardware{Port: lcd.NewRegisterPort(ctrl), Screen: ctrl}, nil
	case BackendPeriph:
		port, err := gpio.NewPeriphPort(cfg.Periph, log)
		if err != nil {
			return Hardware{}, err
		}
		return Hardware{Port: port, close: port.Close}, nil
	case BackendEmbd:
		port, err := gpio.NewEmbdPort(cfg.Embd, log)
		if err != nil {
			return Hardware{}, err
		}
		return Hardware{Port: port, close: port.Close}, nil
	case BackendPCF8574:
		// the bus is bound to one address, so both sides have to agree on it
		address := pcf8574Address(cfg.PCF8574)
		bus, err := gpio.OpenLinuxI2C(cfg.PCF8574.Bus, address)
		if err != nil {
			return Hardware{}, err
		}
		expander := gpio.NewPCF8574(bus, address, log)
		return Hardware{Port: lcd.NewRegisterPort(expander), close: bus.Close}, nil
	default:
		return Hardware{}, fmt.Errorf("unknown backend \"%s\"", cfg.LCD.Backend)
	}
}
