// Package pulsemon wraps the pulse engine as a bus service: it owns the edge
// interrupt registration, runs the polling task, and publishes readings and
// rolling statistics as retained messages.
package pulsemon

import (
	"context"
	"sync"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/errcode"
	"pulsecode-go/platform"
	"pulsecode-go/pulse"
	"pulsecode-go/types"
	"pulsecode-go/x/conv"
	"pulsecode-go/x/timex"
)

var (
	topicConfig  = bus.Topic{"config", "pulsemon"}
	topicControl = bus.Topic{"pulse", "control"}
	topicValue   = bus.Topic{"pulse", "value"}
	topicState   = bus.Topic{"pulse", "state"}
	topicReport  = bus.Topic{"pulse", "report"}
)

// Service owns one monitored pin. Lifecycle is Init / StartTask / Stop;
// readers use ReadLatest or the retained pulse/value messages.
type Service struct {
	clock pulse.Clock

	mu      sync.Mutex
	pin     platform.IRQPin
	mon     *pulse.Monitor
	cancel  context.CancelFunc
	running bool

	conn *bus.Connection // nil until Start; guarded by mu
}

// New creates an idle service. A nil clock selects the monotonic host clock.
func New(clock pulse.Clock) *Service {
	if clock == nil {
		clock = timex.NewMono()
	}
	return &Service{clock: clock}
}

// Init binds the service to a pin and zeroes all measurement state. The pin
// must support edge interrupts; both transitions of every pulse are counted.
// Init may be called again after Stop to rebind.
func (s *Service) Init(p platform.Pin, cfg types.PulseConfig) error {
	irq, ok := p.(platform.IRQPin)
	if !ok {
		return errcode.NoIRQ
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errcode.Busy
	}

	mcfg := pulse.Config{
		BurstTimeoutUs: cfg.BurstTimeoutUs,
		MaxPulseCount:  cfg.MaxPulseCount,
		PollInterval:   time.Duration(cfg.PollMs) * time.Millisecond,
		ReportInterval: time.Duration(cfg.ReportMs) * time.Millisecond,
		OnResult:       s.onResult,
		Report:         s.onReport,
	}
	mon := pulse.New(s.clock, mcfg)

	if err := p.ConfigureInput(platform.PullNone); err != nil {
		return &errcode.E{C: errcode.DeviceFault, Op: "pulsemon.Init", Err: err}
	}
	// The handler runs in interrupt context; OnEdge is written for that.
	if err := irq.SetIRQ(platform.EdgeBoth, mon.OnEdge); err != nil {
		return &errcode.E{C: errcode.NoIRQ, Op: "pulsemon.Init", Err: err}
	}

	s.pin = irq
	s.mon = mon
	return nil
}

// StartTask launches the polling task. Calling it while running is a no-op.
func (s *Service) StartTask(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mon == nil {
		return errcode.NotInitialised
	}
	if s.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	go func() {
		s.mon.Run(runCtx)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	return nil
}

// ReadLatest peeks the most recent reading, waiting up to timeout for the
// first one. timeout <= 0 polls without blocking.
func (s *Service) ReadLatest(timeout time.Duration) (pulse.Result, bool) {
	s.mu.Lock()
	mon := s.mon
	s.mu.Unlock()
	if mon == nil {
		return pulse.Result{}, false
	}
	return mon.Await(timeout)
}

// Reset clears all measurement state while keeping the pin bound.
func (s *Service) Reset() {
	s.mu.Lock()
	mon := s.mon
	s.mu.Unlock()
	if mon != nil {
		mon.Reset()
	}
}

// Stop deregisters the edge interrupt before cancelling the polling task, so
// no edge can arrive for a monitor that is going away.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin != nil {
		_ = s.pin.ClearIRQ()
		s.pin = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.mon = nil
	return nil
}

// ---- Bus wiring ----

// Start attaches the service to the bus: config/pulsemon configures and
// (re)starts monitoring, pulse/control serves read and reset requests.
// Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, pins platform.PinFactory) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	ctlSub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(ctlSub)

	s.publishState(conn, "idle", "awaiting_config")

	for {
		select {
		case <-ctx.Done():
			_ = s.Stop()
			s.publishState(conn, "stopped", "context_cancelled")
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.applyConfig(ctx, conn, pins, msg)
		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return
			}
			s.handleControl(conn, msg)
		}
	}
}

func (s *Service) applyConfig(ctx context.Context, conn *bus.Connection, pins platform.PinFactory, msg *bus.Message) {
	cfg, ok := msg.Payload.(types.PulseConfig)
	if !ok {
		println("Warn: pulsemon: ignoring config payload of unexpected type")
		return
	}
	p, ok := pins.ByNumber(cfg.Pin)
	if !ok {
		s.publishState(conn, "error", string(errcode.UnknownPin))
		return
	}

	// Reconfiguration tears down the previous binding first.
	_ = s.Stop()
	if err := s.Init(p, cfg); err != nil {
		println("Error: pulsemon:", err.Error())
		s.publishState(conn, "error", string(errcode.Of(err)))
		return
	}
	if err := s.StartTask(ctx); err != nil {
		s.publishState(conn, "error", string(errcode.Of(err)))
		return
	}
	println("Info: pulsemon: monitoring pin", cfg.Pin)
	s.publishState(conn, "ready", "monitoring")
}

func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.PulseRead:
		r, ok := s.ReadLatest(time.Duration(p.WaitMs) * time.Millisecond)
		if len(msg.ReplyTo) == 0 {
			return
		}
		if !ok {
			conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.NoData)}, false)
			return
		}
		conn.Reply(msg, toValue(r), false)
	case types.PulseReset:
		s.Reset()
		if len(msg.ReplyTo) != 0 {
			conn.Reply(msg, types.OKReply{OK: true}, false)
		}
	default:
		if len(msg.ReplyTo) != 0 {
			conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.InvalidPayload)}, false)
		}
	}
}

func (s *Service) onResult(r pulse.Result) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Publish(conn.NewMessage(topicValue, toValue(r), true))
}

func (s *Service) onReport(r pulse.Report) {
	println("Info: pulse:", reportLine(r))
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Publish(conn.NewMessage(topicReport, toStats(r), true))
}

func (s *Service) publishState(conn *bus.Connection, level, status string) {
	conn.Publish(conn.NewMessage(topicState, types.ServiceState{
		Level:  level,
		Status: status,
		TS:     timex.NowMs(),
	}, true))
}

func toValue(r pulse.Result) types.PulseValue {
	return types.PulseValue{
		BurstDurationUs:    r.BurstDurationUs,
		OffPeriodUs:        r.OffPeriodUs,
		PulseCount:         r.PulseCount,
		FrequencyKHz:       r.FrequencyKHz,
		FirstPulsePeriodUs: r.FirstPulsePeriodUs,
		TS:                 r.Timestamp,
		BurstActive:        r.BurstActive,
		Success:            r.Success,
	}
}

func toStats(r pulse.Report) types.PulseStats {
	st := types.PulseStats{
		Samples:            r.Avg.Samples,
		AvgPulseCount:      r.Avg.PulseCount,
		AvgFrequencyKHz:    r.Avg.FrequencyKHz,
		AvgFirstPeriodUs:   r.Avg.FirstPulsePeriodUs,
		AvgBurstDurationUs: r.Avg.BurstDurationUs,
		AvgOffPeriodUs:     r.Avg.OffPeriodUs,
		HaveBaseline:       r.HaveFirst,
	}
	if r.HaveFirst {
		st.BasePulseCount = r.First.PulseCount
		st.BaseFrequencyKHz = r.First.FrequencyKHz
		st.BaseCapturedMs = r.FirstCapturedMs
		st.PulseDeltaPct = r.PulseDeltaPct
		st.FreqDeltaPct = r.FreqDeltaPct
	}
	return st
}

// reportLine renders the periodic summary without fmt, fit for MCU builds.
func reportLine(r pulse.Report) string {
	b := make([]byte, 0, 128)
	b = append(b, "n="...)
	b = conv.AppendInt(b, int64(r.Avg.Samples))
	b = append(b, " pulses="...)
	b = conv.AppendFixed(b, r.Avg.PulseCount, 1)
	b = append(b, " freq="...)
	b = conv.AppendFixed(b, r.Avg.FrequencyKHz, 1)
	b = append(b, " first_us="...)
	b = conv.AppendFixed(b, r.Avg.FirstPulsePeriodUs, 1)
	b = append(b, " dur_us="...)
	b = conv.AppendFixed(b, r.Avg.BurstDurationUs, 1)
	b = append(b, " off_us="...)
	b = conv.AppendFixed(b, r.Avg.OffPeriodUs, 1)
	if r.HaveFirst {
		b = append(b, " d_pulses="...)
		b = conv.AppendFixed(b, r.PulseDeltaPct, 1)
		b = append(b, "% d_freq="...)
		b = conv.AppendFixed(b, r.FreqDeltaPct, 1)
		b = append(b, '%')
	}
	return string(b)
}
