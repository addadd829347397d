package platform

import (
	"sync"

	"tinygo.org/x/drivers"
)

// FakePin implements Pin and IRQPin in software. Level changes fire the
// registered IRQ handler synchronously, ISR-style, so pipelines can be
// exercised end to end without hardware.
type FakePin struct {
	mu      sync.Mutex
	number  int
	level   bool
	modeOut bool
	irqEdge Edge
	irqFunc func()
}

func NewFakePin(number int) *FakePin { return &FakePin{number: number} }

func (p *FakePin) ConfigureInput(_ Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	fire := irq != nil && edgeWanted(p.irqEdge, old, level)
	p.mu.Unlock()
	if fire {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeWanted(want Edge, old, cur bool) bool {
	if old == cur {
		return false
	}
	switch want {
	case EdgeBoth:
		return true
	case EdgeRising:
		return cur
	case EdgeFalling:
		return !cur
	default:
		return false
	}
}

// FakePinFactory hands out stable FakePin instances per number.
type FakePinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakePinFactory() *FakePinFactory {
	return &FakePinFactory{pins: map[int]*FakePin{}}
}

func (f *FakePinFactory) ByNumber(n int) (Pin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p, true
}

// Pin returns the concrete fake so tests and simulators can drive levels.
func (f *FakePinFactory) Pin(n int) *FakePin {
	p, _ := f.ByNumber(n)
	return p.(*FakePin)
}

// FakeI2C implements drivers.I2C with a scriptable register map: the first
// written byte selects the register, reads return the programmed bytes.
type FakeI2C struct {
	mu   sync.Mutex
	Regs map[byte][]byte
	Err  error

	LastAddr uint16
	LastW    []byte
}

func NewFakeI2C() *FakeI2C { return &FakeI2C{Regs: map[byte][]byte{}} }

func (f *FakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastAddr = addr
	f.LastW = append([]byte(nil), w...)
	if f.Err != nil {
		return f.Err
	}
	if len(w) > 0 && len(r) > 0 {
		copy(r, f.Regs[w[0]])
	}
	return nil
}

// FakeI2CFactory exposes fake buses by id.
type FakeI2CFactory struct {
	Buses map[string]*FakeI2C
}

func NewFakeI2CFactory(ids ...string) *FakeI2CFactory {
	f := &FakeI2CFactory{Buses: map[string]*FakeI2C{}}
	for _, id := range ids {
		f.Buses[id] = NewFakeI2C()
	}
	return f
}

func (f *FakeI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.Buses[id]
	return b, ok
}
