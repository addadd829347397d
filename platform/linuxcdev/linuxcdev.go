//go:build linux && !tinygo

// Package linuxcdev backs the platform abstractions with the Linux GPIO
// character device, so the same edge pipeline runs on a Pi or any SBC that
// exposes gpiochip lines. Edge interrupts use the kernel event stream via
// gpiocdev's WithEventHandler; the handler runs on gpiocdev's event
// goroutine, which is the closest host analogue to interrupt context.
package linuxcdev

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"pulsecode-go/platform"
)

// PinFactory hands out character-device backed pins from one chip.
type PinFactory struct {
	chipName string

	mu   sync.Mutex
	pins map[int]*cdevPin
}

// NewPinFactory validates the chip exists and returns a factory over it.
// The conventional name on a Raspberry Pi is "gpiochip0".
func NewPinFactory(chipName string) (*PinFactory, error) {
	c, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	c.Close()
	return &PinFactory{chipName: chipName, pins: make(map[int]*cdevPin)}, nil
}

func (f *PinFactory) ByNumber(n int) (platform.Pin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &cdevPin{chip: f.chipName, offset: n}
		f.pins[n] = p
	}
	return p, true
}

// Close releases every requested line.
func (f *PinFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, p := range f.pins {
		if err := p.release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// cdevPin lazily requests its line on first configure. Changing direction or
// arming an interrupt re-requests the line, since the cdev API fixes edge
// detection options at request time.
type cdevPin struct {
	chip   string
	offset int

	mu      sync.Mutex
	line    *gpiocdev.Line
	output  bool
	pull    platform.Pull
	irqFunc func()
}

func (p *cdevPin) ConfigureInput(pull platform.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = false
	p.pull = pull
	return p.request(platform.EdgeNone, nil)
}

func (p *cdevPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = true
	if err := p.release(); err != nil {
		return err
	}
	line, err := gpiocdev.RequestLine(p.chip, p.offset,
		gpiocdev.AsOutput(levelValue(initial)))
	if err != nil {
		return fmt.Errorf("request output line %d: %w", p.offset, err)
	}
	p.line = line
	return nil
}

func (p *cdevPin) Set(level bool) {
	p.mu.Lock()
	line := p.line
	p.mu.Unlock()
	if line != nil {
		_ = line.SetValue(levelValue(level))
	}
}

func (p *cdevPin) Get() bool {
	p.mu.Lock()
	line := p.line
	p.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	return err == nil && v != 0
}

func (p *cdevPin) Toggle() { p.Set(!p.Get()) }

func (p *cdevPin) Number() int { return p.offset }

func (p *cdevPin) SetIRQ(edge platform.Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output {
		return fmt.Errorf("line %d: interrupts need an input line", p.offset)
	}
	p.irqFunc = handler
	return p.request(edge, handler)
}

func (p *cdevPin) ClearIRQ() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.irqFunc = nil
	return p.request(platform.EdgeNone, nil)
}

// request re-requests the line with the current pull and the wanted edge
// options. Caller holds p.mu.
func (p *cdevPin) request(edge platform.Edge, handler func()) error {
	if err := p.release(); err != nil {
		return err
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch p.pull {
	case platform.PullUp:
		// WithPullUp needs Linux 5.5 or later.
		opts = append(opts, gpiocdev.WithPullUp)
	case platform.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	switch edge {
	case platform.EdgeRising:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case platform.EdgeFalling:
		opts = append(opts, gpiocdev.WithFallingEdge)
	case platform.EdgeBoth:
		opts = append(opts, gpiocdev.WithBothEdges)
	}
	if handler != nil && edge != platform.EdgeNone {
		opts = append(opts, gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			handler()
		}))
	}
	line, err := gpiocdev.RequestLine(p.chip, p.offset, opts...)
	if err != nil {
		return fmt.Errorf("request line %d: %w", p.offset, err)
	}
	p.line = line
	return nil
}

func (p *cdevPin) release() error {
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	if err != nil {
		return fmt.Errorf("close line %d: %w", p.offset, err)
	}
	return nil
}

func levelValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
