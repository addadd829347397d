// Package pulsegen produces test bursts for exercising the monitor without a
// real sensor: a configured number of pulses, repeated after a configured
// gap. Hosts toggle a software pin; RP2 builds drive a PIO pulsar.
package pulsegen

import (
	"context"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/types"
)

var (
	topicConfig  = bus.Topic{"config", "pulsegen"}
	topicControl = bus.Topic{"pulsegen", "control"}
)

const (
	defaultPulses   = 3
	defaultPeriodUs = 100
	defaultGapMs    = 500
)

// Driver emits one burst of pulses on the configured pin.
type Driver interface {
	Configure(pin int, periodUs uint32) error
	Burst(pulses uint16) error
}

type Service struct {
	drv Driver
	cfg types.GenConfig
	on  bool
}

func New(drv Driver) *Service { return &Service{drv: drv} }

// Start blocks until ctx is cancelled. Bursting begins once a config
// arrives; pulsegen/control triggers one-shot bursts.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	ctlSub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(ctlSub)

	tick := time.NewTicker(defaultGapMs * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: pulsegen service stopping")
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.applyConfig(msg, tick)
		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return
			}
			s.oneShot(conn, msg)
		case <-tick.C:
			if s.on {
				if err := s.drv.Burst(s.cfg.Pulses); err != nil {
					println("Error: pulsegen:", err.Error())
				}
			}
		}
	}
}

func (s *Service) applyConfig(msg *bus.Message, tick *time.Ticker) {
	cfg, ok := msg.Payload.(types.GenConfig)
	if !ok {
		println("Warn: pulsegen: ignoring config payload of unexpected type")
		return
	}
	if cfg.Pulses == 0 {
		cfg.Pulses = defaultPulses
	}
	if cfg.PeriodUs == 0 {
		cfg.PeriodUs = defaultPeriodUs
	}
	if cfg.GapMs == 0 {
		cfg.GapMs = defaultGapMs
	}
	if err := s.drv.Configure(cfg.Pin, cfg.PeriodUs); err != nil {
		println("Error: pulsegen:", err.Error())
		s.on = false
		return
	}
	s.cfg = cfg
	s.on = true
	tick.Reset(time.Duration(cfg.GapMs) * time.Millisecond)
	println("Info: pulsegen: bursting on pin", cfg.Pin)
}

func (s *Service) oneShot(conn *bus.Connection, msg *bus.Message) {
	req, ok := msg.Payload.(types.GenBurst)
	if !ok {
		return
	}
	if !s.on {
		if len(msg.ReplyTo) != 0 {
			conn.Reply(msg, types.ErrorReply{OK: false, Error: "not configured"}, false)
		}
		return
	}
	pulses := req.Pulses
	if pulses == 0 {
		pulses = s.cfg.Pulses
	}
	if req.PeriodUs != 0 {
		if err := s.drv.Configure(s.cfg.Pin, req.PeriodUs); err != nil {
			println("Error: pulsegen:", err.Error())
		}
	}
	err := s.drv.Burst(pulses)
	if len(msg.ReplyTo) != 0 {
		if err != nil {
			conn.Reply(msg, types.ErrorReply{OK: false, Error: err.Error()}, false)
		} else {
			conn.Reply(msg, types.OKReply{OK: true}, false)
		}
	}
}
