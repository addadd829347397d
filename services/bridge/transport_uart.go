//go:build rp2040 || rp2350

package bridge

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"pulsecode-go/errcode"
)

func init() {
	RegisterTransport("uart", newUARTTransport)
}

// uartTransport writes length-prefixed frames: topic, 0x00, payload, framed
// by a 2-byte big-endian length. A host-side consumer splits on the NUL.
type uartTransport struct {
	cfg UARTConfig
	u   *uartx.UART
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "bridge", Msg: "uart transport requires uart config"}
	}
	return &uartTransport{cfg: *cfg.UART}, nil
}

func (t *uartTransport) Connect(ctx context.Context) error {
	var hw *uartx.UART
	switch t.cfg.Port {
	case "uart0", "":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return errcode.UnknownBus
	}
	// Defaults inside uartx apply if zero.
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: t.cfg.Baud,
		TX:       machine.Pin(t.cfg.TxPin),
		RX:       machine.Pin(t.cfg.RxPin),
	}); err != nil {
		return err
	}
	t.u = hw
	return nil
}

func (t *uartTransport) Publish(topic string, payload []byte) error {
	if t.u == nil {
		return errcode.LinkDown
	}
	n := len(topic) + 1 + len(payload)
	if n > 0xFFFF {
		return errcode.InvalidParams
	}
	hdr := [2]byte{byte(n >> 8), byte(n)}
	if _, err := t.u.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := t.u.Write([]byte(topic)); err != nil {
		return err
	}
	if _, err := t.u.Write([]byte{0}); err != nil {
		return err
	}
	_, err := t.u.Write(payload)
	return err
}

func (t *uartTransport) Close() error {
	t.u = nil
	return nil
}
