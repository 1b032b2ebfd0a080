package lcd

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPort struct {
	mu     sync.Mutex
	states []State
}

func (p *recordingPort) Flush(s State) {
	p.mu.Lock()
	p.states = append(p.states, s)
	p.mu.Unlock()
}

type recordingSleeper struct {
	waits []uint
}

func (s *recordingSleeper) WaitMs(ms uint) {
	s.waits = append(s.waits, ms)
}

type latch struct {
	rs     bool
	nibble uint8
}

// latches returns the nibbles presented on every rising edge of E.
func latches(states []State) []latch {
	var out []latch
	var enabled bool
	for _, s := range states {
		if s.Enable && !enabled {
			out = append(out, latch{rs: s.RegisterSelect, nibble: s.Nibble})
		}
		enabled = s.Enable
	}
	return out
}

type transfer struct {
	rs bool
	b  byte
}

func (t transfer) String() string {
	if t.rs {
		return fmt.Sprintf("data(0x%02x)", t.b)
	}
	return fmt.Sprintf("instruction(0x%02x)", t.b)
}

// transfers pairs latched nibbles into bytes.
func transfers(t *testing.T, ls []latch) []transfer {
	require.Equal(t, 0, len(ls)%2, "odd number of nibbles latched")
	var out []transfer
	for i := 0; i < len(ls); i += 2 {
		require.Equal(t, ls[i].rs, ls[i+1].rs, "register select changed mid transfer")
		out = append(out, transfer{rs: ls[i].rs, b: ls[i].nibble<<4 | ls[i+1].nibble})
	}
	return out
}

func newTestLCD(opts ...Option) (*LCD, *recordingPort, *recordingSleeper) {
	port := &recordingPort{}
	sleeper := &recordingSleeper{}
	return New(port, sleeper, opts...), port, sleeper
}

func TestSendSequence(t *testing.T) {
	for _, rs := range []bool{false, true} {
		for b := 0; b < 256; b++ {
			l, port, sleeper := newTestLCD()
			if rs {
				l.SendData(byte(b))
			} else {
				l.SendInstruction(byte(b))
			}

			hi, lo := uint8(b>>4)&0xF, uint8(b)&0xF
			expected := []State{
				{RegisterSelect: rs, Enable: false, Nibble: hi},
				{RegisterSelect: rs, Enable: true, Nibble: hi},
				{RegisterSelect: rs, Enable: false, Nibble: lo},
				{RegisterSelect: rs, Enable: true, Nibble: lo},
				{RegisterSelect: rs, Enable: false, Nibble: lo},
			}
			if !assert.Equal(t, expected, port.states, "rs=%t byte=0x%02x", rs, b) {
				return
			}
			assert.Equal(t, []uint{1, 1, 1, 1}, sleeper.waits)
		}
	}
}

func TestCursorAddress(t *testing.T) {
	for _, tc := range []struct {
		position uint8
		pivot    uint8
		expected byte
	}{
		{position: 0, pivot: DefaultRowPivot, expected: 0x80},
		{position: 14, pivot: DefaultRowPivot, expected: 0x8E},
		{position: 15, pivot: DefaultRowPivot, expected: 0x8F},
		{position: 16, pivot: DefaultRowPivot, expected: 0xC0},
		{position: 17, pivot: DefaultRowPivot, expected: 0xC1},
		{position: 31, pivot: DefaultRowPivot, expected: 0xCF},

		{position: 14, pivot: 15, expected: 0x8E},
		{position: 15, pivot: 15, expected: 0xBF},
		{position: 16, pivot: 15, expected: 0xC0},
	} {
		t.Run(fmt.Sprintf("%d_pivot%d", tc.position, tc.pivot), func(t *testing.T) {
			assert.Equal(t, tc.expected, CursorAddress(tc.position, tc.pivot))
		})
	}
}

func TestSetCursor(t *testing.T) {
	l, port, _ := newTestLCD(WithRowPivot(15))
	l.SetCursor(15)
	l.SetCursor(0)

	assert.Equal(t, []transfer{{b: 0xBF}, {b: 0x80}}, transfers(t, latches(port.states)))
}

func TestSendString(t *testing.T) {
	l, port, _ := newTestLCD()
	l.SendString("AB")

	assert.Equal(t, []transfer{
		{rs: false, b: 0x80},
		{rs: true, b: 'A'},
		{rs: false, b: 0x81},
		{rs: true, b: 'B'},
	}, transfers(t, latches(port.states)))
}

func TestSendStringTruncates(t *testing.T) {
	text := strings.Repeat("0123456789", 4)
	l, port, _ := newTestLCD()
	l.SendString(text)

	var data []byte
	var cursors []byte
	for _, tr := range transfers(t, latches(port.states)) {
		if tr.rs {
			data = append(data, tr.b)
		} else {
			cursors = append(cursors, tr.b)
		}
	}
	assert.Equal(t, text[:Positions], string(data))
	require.Len(t, cursors, Positions)
	assert.Equal(t, byte(0x80), cursors[0])
	assert.Equal(t, byte(0x8F), cursors[15])
	assert.Equal(t, byte(0xC0), cursors[16])
	assert.Equal(t, byte(0xCF), cursors[31])
}

func TestSendStringEmpty(t *testing.T) {
	l, port, _ := newTestLCD()
	l.SendString("")
	assert.Empty(t, port.states)
}

func TestClear(t *testing.T) {
	l, port, _ := newTestLCD()
	l.Clear()
	assert.Equal(t, []transfer{{b: CmdClear}}, transfers(t, latches(port.states)))
}

func TestInit(t *testing.T) {
	l, port, sleeper := newTestLCD()
	l.Init()

	ls := latches(port.states)
	require.Len(t, ls, 6+5*2)

	handshake := []latch{{nibble: 0x3}, {nibble: 0x3}, {nibble: 0x3}, {nibble: 0x2}, {nibble: 0x2}, {nibble: 0xC}}
	assert.Equal(t, handshake, ls[:6])

	assert.Equal(t, []transfer{
		{b: CmdReturnHome},
		{b: CmdEntryMode},
		{b: CmdDisplayOn},
		{b: CmdClear},
		{b: CmdSetDDRAM},
	}, transfers(t, ls[6:]))

	assert.Equal(t, State{Nibble: 0x3}, port.states[0], "first flush starts with RS and E low")

	// E is low again before the first full instruction
	assert.Equal(t, State{Nibble: 0xC}, port.states[12])

	assert.Equal(t, []uint{20, 20, 5, 10, 5, 5, 5, 5, 5, 5, 5, 5}, sleeper.waits[:12])
	for _, w := range sleeper.waits[12:] {
		assert.Equal(t, uint(1), w)
	}
}

func TestDemo(t *testing.T) {
	l, port, _ := newTestLCD()
	l.Demo()

	trs := transfers(t, latches(port.states))
	require.Len(t, trs, 2*Positions+1)

	var text []byte
	for _, tr := range trs {
		if tr.rs {
			text = append(text, tr.b)
		}
	}
	assert.Equal(t, DemoText[:Positions], string(text))
	assert.Equal(t, transfer{b: 0xC1}, trs[len(trs)-1])
}

func TestLoadCustomCharacters(t *testing.T) {
	heart := []byte{0x00, 0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00}
	full := []byte{0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}

	l, port, _ := newTestLCD()
	l.LoadCustomCharacters([][]byte{heart, full})

	trs := transfers(t, latches(port.states))
	require.Len(t, trs, 1+8+1+8+1)
	assert.Equal(t, transfer{b: 0x40}, trs[0])
	assert.Equal(t, transfer{b: 0x48}, trs[9])
	assert.Equal(t, transfer{b: CmdSetDDRAM}, trs[18])
	for i, row := range heart {
		assert.Equal(t, transfer{rs: true, b: row}, trs[1+i])
	}
}

func TestConcurrentTransfersDoNotInterleave(t *testing.T) {
	l, port, _ := newTestLCD()

	var wg sync.WaitGroup
	for _, b := range []byte{0x12, 0x34, 0x56, 0x78} {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.SendData(b)
			}
		}(b)
	}
	wg.Wait()

	counts := map[byte]int{}
	for _, tr := range transfers(t, latches(port.states)) {
		counts[tr.b]++
	}
	assert.Equal(t, map[byte]int{0x12: 50, 0x34: 50, 0x56: 50, 0x78: 50}, counts)
}
