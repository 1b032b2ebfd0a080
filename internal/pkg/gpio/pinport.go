// Package gpio connects lcd.Port and lcd.Register to real hardware: single
// GPIO lines through periph.io, kidoman/embd or TinyGo's machine package, and
// 8-bit I2C port expanders.
package gpio

import (
	"fmt"
	"sync"

	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"go.uber.org/zap"
)

// Pin is one output line.
type Pin interface {
	Set(high bool) error
}

// Lines in PinPort order.
const (
	lineRS = iota
	lineE
	lineD4
	lineD5
	lineD6
	lineD7
	lineCount
)

var lineNames = [lineCount]string{"rs", "e", "d4", "d5", "d6", "d7"}

// PinNames names the six lines the display is wired to.
type PinNames struct {
	RS, E          string
	D4, D5, D6, D7 string
}

func (n PinNames) list() [lineCount]string {
	return [lineCount]string{n.RS, n.E, n.D4, n.D5, n.D6, n.D7}
}

// PinPort drives six independent lines. Lines cannot change together, so the
// order is chosen to keep RS and data stable around every E edge: data goes
// out before a rising E, and E drops before new data is presented.
type PinPort struct {
	mu     sync.Mutex
	pins   [lineCount]Pin
	levels [lineCount]bool
	synced bool
	closer func() error
	log    *zap.Logger
}

// NewPinPort takes the lines in RS, E, D4, D5, D6, D7 order.
func NewPinPort(pins [lineCount]Pin, log *zap.Logger) *PinPort {
	if log == nil {
		log = zap.NewNop()
	}
	return &PinPort{pins: pins, log: log}
}

func levelsOf(s lcd.State) [lineCount]bool {
	return [lineCount]bool{
		lineRS: s.RegisterSelect,
		lineE:  s.Enable,
		lineD4: s.Nibble&0x1 != 0,
		lineD5: s.Nibble&0x2 != 0,
		lineD6: s.Nibble&0x4 != 0,
		lineD7: s.Nibble&0x8 != 0,
	}
}

func (p *PinPort) set(line int, high bool) {
	if p.synced && p.levels[line] == high {
		return
	}
	err := p.pins[line].Set(high)
	if err != nil {
		p.log.Info(fmt.Sprintf("failed to set %s line: %v", lineNames[line], err), logger.Warning)
		return
	}
	p.levels[line] = high
}

func (p *PinPort) Flush(s lcd.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := levelsOf(s)
	rising := next[lineE] && (!p.synced || !p.levels[lineE])

	if !rising {
		p.set(lineE, next[lineE])
	}
	for _, line := range []int{lineRS, lineD4, lineD5, lineD6, lineD7} {
		p.set(line, next[line])
	}
	if rising {
		p.set(lineE, true)
	}
	p.synced = true
}

// Close releases the underlying GPIO driver, if the backend has one.
func (p *PinPort) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
