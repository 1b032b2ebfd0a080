package lcd

import "sync"

// Port bits of the control lines. Data nibble bit i sits on bit i+2.
const (
	bitRS     = 0
	bitE      = 1
	bitData   = 2
	pinsMask  = 0b0011_1111
	nibbleMax = 0x0F
)

// State mirrors the electrical state of the control lines.
type State struct {
	RegisterSelect bool  // false: instruction register, true: data register
	Enable         bool  // the controller latches the nibble on the rising edge
	Nibble         uint8 // DB7..DB4, lower four bits only
}

// Port is the owned GPIO handle the controller hangs off. Flush drives all
// six lines to s in one update; lines outside the LCD wiring are left alone.
type Port interface {
	Flush(s State)
}

// Register is an 8-bit output port register.
type Register interface {
	Read() uint8
	Write(v uint8)
}

// Apply returns prior with the six LCD bits replaced by s.
func Apply(prior uint8, s State) uint8 {
	var v uint8
	if s.RegisterSelect {
		v |= 1 << bitRS
	}
	if s.Enable {
		v |= 1 << bitE
	}
	v |= (s.Nibble & nibbleMax) << bitData
	return prior&^pinsMask | v
}

// Decode is the inverse of Apply.
func Decode(v uint8) State {
	return State{
		RegisterSelect: v&(1<<bitRS) != 0,
		Enable:         v&(1<<bitE) != 0,
		Nibble:         (v >> bitData) & nibbleMax,
	}
}

// RegisterPort flushes State into a Register with a read-modify-write.
type RegisterPort struct {
	mu  sync.Mutex
	reg Register
}

func NewRegisterPort(reg Register) *RegisterPort {
	return &RegisterPort{reg: reg}
}

func (p *RegisterPort) Flush(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reg.Write(Apply(p.reg.Read(), s))
}
