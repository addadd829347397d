// Package control runs the top-level 1 Hz cycle: it tracks the latest pulse
// reading and power state off the bus and emits one status line per tick.
package control

import (
	"context"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/types"
	"pulsecode-go/x/conv"
)

var (
	topicPulseValue = bus.Topic{"pulse", "value"}
	topicPowerState = bus.Topic{"power", "state"}
)

const defaultInterval = time.Second

type Service struct {
	Interval time.Duration

	havePulse bool
	pulse     types.PulseValue
	havePower bool
	power     types.PowerState
}

func New() *Service { return &Service{Interval: defaultInterval} }

// Start blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	pulseSub := conn.Subscribe(topicPulseValue)
	defer conn.Unsubscribe(pulseSub)
	powerSub := conn.Subscribe(topicPowerState)
	defer conn.Unsubscribe(powerSub)

	iv := s.Interval
	if iv <= 0 {
		iv = defaultInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: control service stopping")
			return
		case msg, ok := <-pulseSub.Channel():
			if !ok {
				return
			}
			if v, ok := msg.Payload.(types.PulseValue); ok && !v.BurstActive {
				s.pulse = v
				s.havePulse = true
			}
		case msg, ok := <-powerSub.Channel():
			if !ok {
				return
			}
			if st, ok := msg.Payload.(types.PowerState); ok {
				s.power = st
				s.havePower = true
			}
		case <-tick.C:
			println("Info: control:", s.statusLine())
		}
	}
}

func (s *Service) statusLine() string {
	b := make([]byte, 0, 96)
	if s.havePulse {
		b = append(b, "pulses="...)
		b = conv.AppendUint(b, uint64(s.pulse.PulseCount))
		b = append(b, " freq="...)
		b = conv.AppendFixed(b, s.pulse.FrequencyKHz, 1)
		b = append(b, " dur_us="...)
		b = conv.AppendUint(b, uint64(s.pulse.BurstDurationUs))
	} else {
		b = append(b, "pulses=-"...)
	}
	if s.havePower {
		if s.power.Low {
			b = append(b, " batt=low"...)
		} else if s.power.Charging {
			b = append(b, " batt=charging"...)
		} else {
			b = append(b, " batt=ok"...)
		}
	}
	return string(b)
}
