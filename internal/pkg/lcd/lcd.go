// Package lcd drives an HD44780-class character LCD over a 4-bit parallel bus
// (RS, E and DB4..DB7) by toggling GPIO lines directly.
//
// The bus is write-only: the busy flag is not wired, so every transition is
// followed by a fixed wait and nothing reports a failed transfer.
package lcd

import (
	"fmt"
	"sync"

	"github.com/gethiox/lcd4bit/internal/pkg/delay"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"go.uber.org/zap"
)

// Instructions issued by Init.
const (
	CmdClear      byte = 0x01
	CmdReturnHome byte = 0x02
	CmdEntryMode  byte = 0x06 // increment cursor, no display shift
	CmdDisplayOn  byte = 0x0F // display on, cursor on, cursor blinking
	CmdSetCGRAM   byte = 0x40
	CmdSetDDRAM   byte = 0x80

	// CmdFunctionSet selects 4-bit bus, 2 lines, 5x10 dots. Init sends it one
	// nibble at a time.
	CmdFunctionSet byte = 0x2C
)

const (
	Columns   = 16
	Rows      = 2
	Positions = Columns * Rows

	// DefaultRowPivot is the first logical position placed on the second row.
	DefaultRowPivot = 16

	secondRowOffset = 48 // 0x80|(48+16) == 0xC0, the start of the second row

	DemoText   = "Long message of text on the screen"
	DemoCursor = 17
)

// Waits in milliseconds.
const (
	transferWait = 1
	powerOnWait  = 20
	resyncWait   = 5
)

// LCD owns the port and the time source for one display.
type LCD struct {
	mu       sync.Mutex
	port     Port
	sleeper  delay.Sleeper
	state    State
	rowPivot uint8
	log      *zap.Logger
}

type Option func(*LCD)

// WithRowPivot moves the row split. 15 matches displays wired for older
// firmware, where position 15 already lands on the second row.
func WithRowPivot(pivot uint8) Option {
	return func(l *LCD) { l.rowPivot = pivot }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *LCD) { l.log = log }
}

// New takes ownership of port and sleeper. Nothing is sent until Init.
func New(port Port, sleeper delay.Sleeper, opts ...Option) *LCD {
	l := &LCD{
		port:     port,
		sleeper:  sleeper,
		rowPivot: DefaultRowPivot,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LCD) flush() {
	l.port.Flush(l.state)
	// messages are only formatted when debug entries are kept
	if ce := l.log.Check(zap.DebugLevel, "flush"); ce != nil {
		ce.Message = fmt.Sprintf("rs=%t e=%t nibble=%#x", l.state.RegisterSelect, l.state.Enable, l.state.Nibble)
		ce.Write(logger.Pins)
	}
}

// pulse presents nibble with E low, waits lowWait, then raises E and waits
// highWait. The controller latches on the rising edge.
func (l *LCD) pulse(nibble uint8, lowWait, highWait uint) {
	l.state.Enable = false
	l.state.Nibble = nibble & nibbleMax
	l.flush()
	l.sleeper.WaitMs(lowWait)

	l.state.Enable = true
	l.flush()
	l.sleeper.WaitMs(highWait)
}

func (l *LCD) release() {
	l.state.Enable = false
	l.flush()
}

func (l *LCD) write(rs bool, b byte) {
	l.state.RegisterSelect = rs
	l.pulse(b>>4, transferWait, transferWait)
	l.pulse(b, transferWait, transferWait)
	l.release()
}

func (l *LCD) instruction(b byte) {
	if ce := l.log.Check(zap.DebugLevel, "instruction"); ce != nil {
		ce.Message = fmt.Sprintf("instruction 0x%02x", b)
		ce.Write(logger.Transfer)
	}
	l.write(false, b)
}

func (l *LCD) data(b byte) {
	if ce := l.log.Check(zap.DebugLevel, "data"); ce != nil {
		ce.Message = fmt.Sprintf("data 0x%02x %q", b, b)
		ce.Write(logger.Transfer)
	}
	l.write(true, b)
}

// Init forces the controller out of whatever state it powered up in, switches
// it to 4-bit 2-line mode and leaves it cleared with the cursor at home.
func (l *LCD) Init() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Info("initializing display in 4-bit mode", logger.Info)

	l.state = State{}

	// three 0x3 nibbles resync the controller into 8-bit mode from any state
	l.pulse(0x3, powerOnWait, powerOnWait)
	l.pulse(0x3, resyncWait, 2*resyncWait)
	l.pulse(0x3, resyncWait, resyncWait)

	// still in 8-bit mode: a lone 0x2 nibble switches to 4-bit
	l.pulse(0x2, resyncWait, resyncWait)

	// function set, first instruction that arrives as two nibbles
	l.pulse(CmdFunctionSet>>4, resyncWait, resyncWait)
	l.pulse(CmdFunctionSet, resyncWait, resyncWait)
	l.release()

	for _, cmd := range []byte{CmdReturnHome, CmdEntryMode, CmdDisplayOn, CmdClear, CmdSetDDRAM} {
		l.instruction(cmd)
	}

	l.log.Info("display initialized", logger.Info)
}

// Demo writes the fixed demonstration text and parks the cursor on the second row.
func (l *LCD) Demo() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sendString(DemoText)
	l.setCursor(DemoCursor)
}

// SendInstruction writes b into the instruction register.
func (l *LCD) SendInstruction(b byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instruction(b)
}

// SendData writes b into the data register at the current address.
func (l *LCD) SendData(b byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data(b)
}

// CursorAddress maps a logical position 0..31 onto the set-DDRAM-address
// instruction. Positions past 31 are not checked.
func CursorAddress(position, pivot uint8) byte {
	if position < pivot {
		return CmdSetDDRAM | position
	}
	return CmdSetDDRAM | (secondRowOffset + position)
}

func (l *LCD) setCursor(position uint8) {
	l.instruction(CursorAddress(position, l.rowPivot))
}

// SetCursor moves the cursor to a logical position, 0..15 on the first row and
// 16..31 on the second one.
func (l *LCD) SetCursor(position uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setCursor(position)
}

func (l *LCD) sendString(text string) {
	for i := 0; i < len(text) && i < Positions; i++ {
		l.setCursor(uint8(i))
		l.data(text[i])
	}
}

// SendString writes text from position 0 onwards, wrapping onto the second
// row. Bytes past position 31 are dropped.
func (l *LCD) SendString(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendString(text)
}

// Clear blanks the display. The controller moves its cursor home on its own.
func (l *LCD) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instruction(CmdClear)
}

// LoadCustomCharacters programs CGRAM slots 0..7 with 5x8 glyphs, one byte per
// pixel row. Extra glyphs wrap around onto the first slots. The address
// counter is moved back to DDRAM position 0 afterwards.
func (l *LCD) LoadCustomCharacters(characters [][]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, char := range characters {
		var location = uint8(i) & 0x7

		l.instruction(CmdSetCGRAM | (location << 3))
		for _, row := range char {
			l.data(row)
		}
	}
	l.instruction(CmdSetDDRAM)
}
