package heartbeat

import (
	"context"
	"testing"
	"time"

	"pulsecode-go/bus"
)

func TestLoopExitsWhenConnectionDisconnects(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("hb")

	s := &Service{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.serviceLoop(context.Background(), conn)
	}()

	// Give the loop time to subscribe, then tear the connection down. The
	// loop must return cleanly off the closed subscription channel.
	time.Sleep(10 * time.Millisecond)
	conn.Disconnect()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after disconnect")
	}
}

func TestConfigResetsInterval(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("hb")
	pub := b.NewConnection("pub")

	s := &Service{}
	if err := s.Start(context.Background(), conn); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	pub.Publish(pub.NewMessage(bus.Topic{"config", "heartbeat"}, Config{IntervalMs: 50}, false))
	time.Sleep(20 * time.Millisecond)
}
