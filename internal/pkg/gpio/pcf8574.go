package gpio

import (
	"fmt"
	"sync"

	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"go.uber.org/zap"
	"tinygo.org/x/drivers"
)

// DefaultPCF8574Address is the expander address with A0..A2 tied low.
const DefaultPCF8574Address = 0x20

// PCF8574 exposes an 8-bit I2C port expander as an lcd.Register. The display
// has to be wired RS=P0, E=P1, DB4..DB7=P2..P5; P6 and P7 stay free for other
// use and are preserved by every flush.
type PCF8574 struct {
	mu      sync.Mutex
	bus     drivers.I2C
	address uint16
	shadow  uint8
	log     *zap.Logger
	buf     [1]byte
}

func NewPCF8574(bus drivers.I2C, address uint16, log *zap.Logger) *PCF8574 {
	if address == 0 {
		address = DefaultPCF8574Address
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PCF8574{bus: bus, address: address, log: log}
}

// Read returns the levels the expander reports. If the bus fails the last
// written value is returned instead.
func (p *PCF8574) Read() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.bus.Tx(p.address, nil, p.buf[:])
	if err != nil {
		p.log.Info(fmt.Sprintf("failed to read port expander 0x%02x: %v", p.address, err), logger.Warning)
		return p.shadow
	}
	return p.buf[0]
}

func (p *PCF8574) Write(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf[0] = v
	err := p.bus.Tx(p.address, p.buf[:], nil)
	if err != nil {
		p.log.Info(fmt.Sprintf("failed to write port expander 0x%02x: %v", p.address, err), logger.Warning)
		return
	}
	p.shadow = v
}
