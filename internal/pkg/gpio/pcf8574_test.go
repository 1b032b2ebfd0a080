package gpio

import (
	"errors"
	"testing"

	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/stretchr/testify/assert"
)

type fakeBus struct {
	port    uint8
	addrs   []uint16
	failTx  bool
	written []uint8
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	if b.failTx {
		return errors.New("nack")
	}
	if len(w) > 0 {
		b.port = w[0]
		b.written = append(b.written, w[0])
	}
	if len(r) > 0 {
		r[0] = b.port
	}
	return nil
}

func TestPCF8574ReadModifyWrite(t *testing.T) {
	bus := &fakeBus{port: 0b1100_0000}
	port := lcd.NewRegisterPort(NewPCF8574(bus, 0x27, nil))

	port.Flush(lcd.State{RegisterSelect: true, Enable: true, Nibble: 0b1010})

	assert.Equal(t, []uint8{0b1110_1011}, bus.written)
	assert.Equal(t, []uint16{0x27, 0x27}, bus.addrs)
}

func TestPCF8574DefaultAddress(t *testing.T) {
	bus := &fakeBus{}
	NewPCF8574(bus, 0, nil).Write(0x01)
	assert.Equal(t, []uint16{DefaultPCF8574Address}, bus.addrs)
}

func TestPCF8574ReadFallsBackToShadow(t *testing.T) {
	bus := &fakeBus{}
	exp := NewPCF8574(bus, 0x20, nil)
	exp.Write(0x5A)

	bus.failTx = true
	assert.Equal(t, uint8(0x5A), exp.Read())

	exp.Write(0x00)
	bus.failTx = false
	bus.port = 0xFF
	assert.Equal(t, uint8(0xFF), exp.Read())
	assert.Equal(t, uint8(0x5A), exp.shadow, "failed write does not update the shadow")
}
