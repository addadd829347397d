package power

import (
	"context"
	"testing"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/platform"
	"pulsecode-go/types"
)

func TestPublishesValueAndFlags(t *testing.T) {
	buses := platform.NewFakeI2CFactory("i2c0")
	buses.Buses["i2c0"].Regs = map[byte][]byte{
		0x08: {0x00, 0x12},       // VERSION: production silicon
		0x02: {0xD0, 0x00},       // VCELL: 4160 mV
		0x04: {0x0A, 0x00},       // SOC: 10.00 %
		0x16: {0x00, 0xC8},       // CRATE: +200 LSB = +41.6 %/hr
	}

	b := bus.NewBus(16)
	svc := New(buses)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx, b.NewConnection("power"))

	cli := b.NewConnection("test")
	valSub := cli.Subscribe(bus.Topic{"power", "value"})
	defer cli.Unsubscribe(valSub)
	stateSub := cli.Subscribe(bus.Topic{"power", "state"})
	defer cli.Unsubscribe(stateSub)

	cli.Publish(cli.NewMessage(bus.Topic{"config", "power"},
		types.PowerConfig{Bus: "i2c0", IntervalMs: 20, LowPct: 20}, true))

	select {
	case msg := <-valSub.Channel():
		v := msg.Payload.(types.PowerValue)
		if v.MilliV != 4160 {
			t.Fatalf("mv = %d, want 4160", v.MilliV)
		}
		if v.SOCx100 != 1000 {
			t.Fatalf("soc = %d, want 1000", v.SOCx100)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no power value published")
	}

	select {
	case msg := <-stateSub.Channel():
		st := msg.Payload.(types.PowerState)
		if !st.Low {
			t.Fatal("10% SOC below a 20% threshold should flag low")
		}
		if !st.Charging {
			t.Fatal("positive charge rate should flag charging")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no power state published")
	}
}

func TestOversizedThresholdClampsTo100(t *testing.T) {
	buses := platform.NewFakeI2CFactory("i2c0")
	buses.Buses["i2c0"].Regs = map[byte][]byte{
		0x08: {0x00, 0x12},
		0x02: {0xD0, 0x00},
		0x04: {0x50, 0x00}, // SOC: 80.00 %
		0x16: {0x00, 0x00},
	}

	b := bus.NewBus(16)
	svc := New(buses)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx, b.NewConnection("power"))

	cli := b.NewConnection("test")
	stateSub := cli.Subscribe(bus.Topic{"power", "state"})
	defer cli.Unsubscribe(stateSub)

	cli.Publish(cli.NewMessage(bus.Topic{"config", "power"},
		types.PowerConfig{Bus: "i2c0", IntervalMs: 20, LowPct: 200}, true))

	select {
	case msg := <-stateSub.Channel():
		st := msg.Payload.(types.PowerState)
		if !st.Low {
			t.Fatal("80% SOC should still flag low against a threshold capped at 100%")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no power state published")
	}
}

func TestUnknownBusStaysIdle(t *testing.T) {
	b := bus.NewBus(4)
	svc := New(platform.NewFakeI2CFactory("i2c0"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx, b.NewConnection("power"))

	cli := b.NewConnection("test")
	valSub := cli.Subscribe(bus.Topic{"power", "value"})
	defer cli.Unsubscribe(valSub)

	cli.Publish(cli.NewMessage(bus.Topic{"config", "power"},
		types.PowerConfig{Bus: "nope", IntervalMs: 10}, true))

	select {
	case msg := <-valSub.Channel():
		t.Fatalf("unexpected value: %#v", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}
