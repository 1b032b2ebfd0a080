package lcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type memRegister struct {
	value  uint8
	reads  int
	writes int
}

func (r *memRegister) Read() uint8 {
	r.reads++
	return r.value
}

func (r *memRegister) Write(v uint8) {
	r.writes++
	r.value = v
}

func TestApply(t *testing.T) {
	for _, tc := range []struct {
		name     string
		prior    uint8
		state    State
		expected uint8
	}{
		{name: "all low", prior: 0x00, state: State{}, expected: 0x00},
		{name: "clears only lcd bits", prior: 0xFF, state: State{}, expected: 0xC0},
		{name: "rs", prior: 0x00, state: State{RegisterSelect: true}, expected: 0b0000_0001},
		{name: "enable", prior: 0x00, state: State{Enable: true}, expected: 0b0000_0010},
		{name: "nibble", prior: 0x00, state: State{Nibble: 0xF}, expected: 0b0011_1100},
		{name: "nibble upper bits ignored", prior: 0x00, state: State{Nibble: 0xF1}, expected: 0b0000_0100},
		{
			name:     "rs with 1010 keeps other bits",
			prior:    0b1101_0110,
			state:    State{RegisterSelect: true, Enable: false, Nibble: 0b1010},
			expected: 0b1110_1001,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Apply(tc.prior, tc.state))
		})
	}
}

func TestApplyBits(t *testing.T) {
	v := Apply(0b1000_0000, State{RegisterSelect: true, Enable: false, Nibble: 0b1010})

	bit := func(i int) uint8 { return v >> i & 1 }
	assert.Equal(t, uint8(1), bit(0))
	assert.Equal(t, uint8(0), bit(1))
	assert.Equal(t, uint8(0), bit(2))
	assert.Equal(t, uint8(1), bit(3))
	assert.Equal(t, uint8(0), bit(4))
	assert.Equal(t, uint8(1), bit(5))
	assert.Equal(t, uint8(0), bit(6))
	assert.Equal(t, uint8(1), bit(7))
}

func TestDecode(t *testing.T) {
	for v := 0; v < 256; v++ {
		s := Decode(uint8(v))
		assert.Equal(t, uint8(v)&pinsMask, Apply(0, s))
	}
}

func TestRegisterPort(t *testing.T) {
	reg := &memRegister{value: 0b1100_0000}
	port := NewRegisterPort(reg)

	port.Flush(State{RegisterSelect: true, Enable: true, Nibble: 0x5})
	assert.Equal(t, uint8(0b1101_0111), reg.value)

	port.Flush(State{Nibble: 0x2})
	assert.Equal(t, uint8(0b1100_1000), reg.value)

	assert.Equal(t, 2, reg.reads)
	assert.Equal(t, 2, reg.writes)
}
