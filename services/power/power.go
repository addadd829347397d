// Package power polls the battery fuel gauge once per second and publishes
// the reading plus derived low-battery / charging flags as retained
// messages.
package power

import (
	"context"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/drivers/max17048"
	"pulsecode-go/platform"
	"pulsecode-go/types"
	"pulsecode-go/x/mathx"
	"pulsecode-go/x/timex"
)

var (
	topicConfig = bus.Topic{"config", "power"}
	topicValue  = bus.Topic{"power", "value"}
	topicState  = bus.Topic{"power", "state"}
)

const (
	defaultIntervalMs = 1000
	defaultLowPct     = 15
	// CRATE above this (hundredths of %/hr) counts as charging; small
	// positive readings happen at rest from gauge noise.
	chargingCRatex100 = 50
)

type Service struct {
	buses platform.I2CFactory

	gauge   *max17048.Device
	cfg     types.PowerConfig
	lastLow bool
}

func New(buses platform.I2CFactory) *Service {
	return &Service{buses: buses}
}

// Start blocks until ctx is cancelled. Polling begins once a config with a
// reachable gauge arrives on config/power.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(defaultIntervalMs * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: power service stopping")
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.applyConfig(conn, msg, tick)
		case <-tick.C:
			s.poll(conn)
		}
	}
}

func (s *Service) applyConfig(conn *bus.Connection, msg *bus.Message, tick *time.Ticker) {
	cfg, ok := msg.Payload.(types.PowerConfig)
	if !ok {
		println("Warn: power: ignoring config payload of unexpected type")
		return
	}
	if cfg.IntervalMs == 0 {
		cfg.IntervalMs = defaultIntervalMs
	}
	if cfg.LowPct == 0 {
		cfg.LowPct = defaultLowPct
	}
	cfg.LowPct = mathx.Clamp(cfg.LowPct, 1, 100)

	i2c, ok := s.buses.ByID(cfg.Bus)
	if !ok {
		println("Error: power: unknown i2c bus", cfg.Bus)
		s.gauge = nil
		return
	}
	d := max17048.New(i2c)
	dcfg := max17048.Config{}
	if cfg.Addr != 0 {
		dcfg.Address = cfg.Addr
	}
	if err := d.Configure(dcfg); err != nil {
		println("Error: power: gauge probe failed:", err.Error())
		s.gauge = nil
		return
	}

	s.cfg = cfg
	s.gauge = &d
	tick.Reset(time.Duration(cfg.IntervalMs) * time.Millisecond)
	println("Info: power: fuel gauge on", cfg.Bus)
}

func (s *Service) poll(conn *bus.Connection) {
	if s.gauge == nil {
		return
	}
	mv, err := s.gauge.CellMilliVolts()
	if err != nil {
		s.fault(conn, err)
		return
	}
	soc, err := s.gauge.SOCx100()
	if err != nil {
		s.fault(conn, err)
		return
	}
	crate, err := s.gauge.CRatex100()
	if err != nil {
		s.fault(conn, err)
		return
	}

	now := timex.NowMs()
	conn.Publish(conn.NewMessage(topicValue, types.PowerValue{
		MilliV:    mv,
		SOCx100:   soc,
		CRatex100: crate,
		TS:        now,
	}, true))

	low := soc < uint16(s.cfg.LowPct)*100
	if low && !s.lastLow {
		println("Warn: power: battery low")
	}
	s.lastLow = low
	conn.Publish(conn.NewMessage(topicState, types.PowerState{
		Low:      low,
		Charging: crate > chargingCRatex100,
		TS:       now,
	}, true))
}

func (s *Service) fault(conn *bus.Connection, err error) {
	println("Error: power: read failed:", err.Error())
	conn.Publish(conn.NewMessage(topicState, types.PowerState{TS: timex.NowMs()}, true))
}
