package heartbeat

import (
	"context"
	"time"

	"pulsecode-go/bus"
)

var topicConfig = bus.Topic{"config", "heartbeat"}

// Config is the optional payload on config/heartbeat.
type Config struct {
	IntervalMs uint32 `json:"interval_ms" yaml:"interval_ms"`
}

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			println("Info:", t.Format("15:04:05"), "Heartbeat")
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if cfg, ok := msg.Payload.(Config); ok && cfg.IntervalMs > 0 {
				tick.Reset(time.Duration(cfg.IntervalMs) * time.Millisecond)
				println("Info: heartbeat interval set to", cfg.IntervalMs, "ms")
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
