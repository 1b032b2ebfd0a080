// Package sim emulates an HD44780 controller sitting behind an 8-bit output
// register wired the same way lcd.RegisterPort drives it.
//
// The emulator latches the nibble on every rising edge of E, starts in 8-bit
// mode like a freshly powered chip and keeps DDRAM/CGRAM contents, so tests
// and the "sim" backend can look at what a real display would show. When
// given a clock it also reports writes that arrive sooner than the datasheet
// allows.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
)

// Minimum waits from the HD44780 datasheet.
const (
	PowerOnDelay    = 15 * time.Millisecond
	FirstResync     = 4100 * time.Microsecond
	LaterResync     = 100 * time.Microsecond
	ExecTime        = 37 * time.Microsecond
	ClearHomeExec   = 1520 * time.Microsecond
	ddramSize       = 0x80
	cgramSize       = 0x40
	firstRowEnd     = 0x27
	secondRowStart  = 0x40
	secondRowEnd    = 0x67
	blank           = ' '
	resyncFunction8 = 0x30
)

type Clock interface {
	Now() time.Duration
}

// Flags is a snapshot of the controller mode registers.
type Flags struct {
	FourBit   bool
	TwoLine   bool
	Font5x10  bool
	DisplayOn bool
	CursorOn  bool
	Blink     bool
	Increment bool
	Shift     bool
}

type Controller struct {
	mu    sync.Mutex
	reg   uint8
	clock Clock

	flags Flags

	pending bool // first nibble of a 4-bit transfer received
	high    uint8
	highRS  bool

	ddram  [ddramSize]byte
	cgram  [cgramSize]byte
	addr   uint8
	cgAddr uint8
	cgMode bool

	poweredAt  time.Duration
	latched    int
	resyncs    int
	lastResync time.Duration
	busyUntil  time.Duration

	instructions []byte
	data         []byte
	violations   []string
}

// New returns a controller in its power-on state. clock may be nil, in which
// case no timing is checked.
func New(clock Clock) *Controller {
	c := &Controller{clock: clock}
	for i := range c.ddram {
		c.ddram[i] = blank
	}
	c.flags.Increment = true
	c.poweredAt = c.now()
	return c
}

func (c *Controller) now() time.Duration {
	if c.clock == nil {
		return 0
	}
	return c.clock.Now()
}

func (c *Controller) Read() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg
}

func (c *Controller) Write(v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, next := lcd.Decode(c.reg), lcd.Decode(v)
	c.reg = v
	if next.Enable && !prev.Enable {
		c.latch(next)
	}
}

func (c *Controller) violate(format string, a ...interface{}) {
	c.violations = append(c.violations, fmt.Sprintf(format, a...))
}

func (c *Controller) latch(s lcd.State) {
	now := c.now()

	if c.clock != nil {
		if c.latched == 0 && now-c.poweredAt < PowerOnDelay {
			c.violate("first write %s after power-on, need %s", now-c.poweredAt, PowerOnDelay)
		}
		if !c.pending && now < c.busyUntil {
			c.violate("write while busy, %s early", c.busyUntil-now)
		}
	}
	c.latched++

	if !c.flags.FourBit {
		// DB3..DB0 are not wired and read as zero
		b := s.Nibble << 4
		if s.RegisterSelect {
			c.writeData(b, now)
			return
		}
		if b == resyncFunction8 {
			c.resync(now)
		}
		c.execute(b, now)
		return
	}

	if !c.pending {
		c.pending = true
		c.high = s.Nibble
		c.highRS = s.RegisterSelect
		return
	}
	c.pending = false
	if s.RegisterSelect != c.highRS {
		c.violate("register select changed between nibbles")
	}
	b := c.high<<4 | s.Nibble
	if c.highRS {
		c.writeData(b, now)
	} else {
		c.execute(b, now)
	}
}

func (c *Controller) resync(now time.Duration) {
	if c.clock != nil && c.resyncs > 0 {
		need := LaterResync
		if c.resyncs == 1 {
			need = FirstResync
		}
		if now-c.lastResync < need {
			c.violate("resync %d after %s, need %s", c.resyncs+1, now-c.lastResync, need)
		}
	}
	c.resyncs++
	c.lastResync = now
}

func (c *Controller) execute(b byte, now time.Duration) {
	c.instructions = append(c.instructions, b)
	exec := ExecTime

	switch {
	case b&0x80 != 0:
		c.addr = b & 0x7F
		c.cgMode = false
	case b&0x40 != 0:
		c.cgAddr = b & 0x3F
		c.cgMode = true
	case b&0x20 != 0:
		c.flags.FourBit = b&0x10 == 0
		c.flags.TwoLine = b&0x08 != 0
		c.flags.Font5x10 = b&0x04 != 0
		c.pending = false
	case b&0x10 != 0:
		if b&0x08 == 0 {
			if b&0x04 != 0 {
				c.addr = c.step(c.addr, true)
			} else {
				c.addr = c.step(c.addr, false)
			}
		}
	case b&0x08 != 0:
		c.flags.DisplayOn = b&0x04 != 0
		c.flags.CursorOn = b&0x02 != 0
		c.flags.Blink = b&0x01 != 0
	case b&0x04 != 0:
		c.flags.Increment = b&0x02 != 0
		c.flags.Shift = b&0x01 != 0
	case b&0x02 != 0:
		c.addr = 0
		c.cgMode = false
		exec = ClearHomeExec
	case b == 0x01:
		for i := range c.ddram {
			c.ddram[i] = blank
		}
		c.addr = 0
		c.cgMode = false
		c.flags.Increment = true
		exec = ClearHomeExec
	}
	c.busyUntil = now + exec
}

func (c *Controller) step(addr uint8, forward bool) uint8 {
	if !c.flags.TwoLine {
		if forward {
			return (addr + 1) % 0x50
		}
		if addr == 0 {
			return 0x4F
		}
		return addr - 1
	}
	if forward {
		switch addr {
		case firstRowEnd:
			return secondRowStart
		case secondRowEnd:
			return 0
		}
		return (addr + 1) & 0x7F
	}
	switch addr {
	case secondRowStart:
		return firstRowEnd
	case 0:
		return secondRowEnd
	}
	return (addr - 1) & 0x7F
}

func (c *Controller) writeData(b byte, now time.Duration) {
	c.data = append(c.data, b)
	if c.cgMode {
		c.cgram[c.cgAddr] = b & 0x1F
		if c.flags.Increment {
			c.cgAddr = (c.cgAddr + 1) % cgramSize
		} else {
			c.cgAddr = (c.cgAddr - 1) % cgramSize
		}
	} else {
		c.ddram[c.addr] = b
		c.addr = c.step(c.addr, c.flags.Increment)
	}
	c.busyUntil = now + ExecTime
}

// Lines returns the 16 visible characters of both rows as raw character codes.
func (c *Controller) Lines() [lcd.Rows]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return [lcd.Rows]string{
		string(c.ddram[0:lcd.Columns]),
		string(c.ddram[secondRowStart : secondRowStart+lcd.Columns]),
	}
}

// DDRAM returns the byte stored at addr.
func (c *Controller) DDRAM(addr uint8) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ddram[addr&0x7F]
}

// Glyph returns the eight pixel rows of CGRAM slot 0..7.
func (c *Controller) Glyph(slot uint8) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := int(slot&0x7) * 8
	out := make([]byte, 8)
	copy(out, c.cgram[start:start+8])
	return out
}

// Address returns the DDRAM address counter.
func (c *Controller) Address() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

func (c *Controller) Flags() Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// Instructions returns every executed instruction byte in order.
func (c *Controller) Instructions() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.instructions...)
}

// Data returns every byte written to the data register in order.
func (c *Controller) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

func (c *Controller) Violations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.violations...)
}
