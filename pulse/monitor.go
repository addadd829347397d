package pulse

import (
	"context"
	"time"

	"pulsecode-go/x/latch"
	"pulsecode-go/x/timex"
)

// Config tunes the segmentation engine. Zero values take the defaults.
type Config struct {
	BurstTimeoutUs uint32
	MaxPulseCount  uint16
	PollInterval   time.Duration
	ReportInterval time.Duration

	// OnResult is invoked from the polling task for every published result
	// (burst start and burst end). Optional.
	OnResult func(Result)
	// Report is invoked from the polling task for each periodic rolling
	// summary. Optional.
	Report func(Report)
}

func (c *Config) applyDefaults() {
	if c.BurstTimeoutUs == 0 {
		c.BurstTimeoutUs = DefaultBurstTimeoutUs
	}
	if c.MaxPulseCount == 0 {
		c.MaxPulseCount = DefaultMaxPulseCount
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}
}

// Monitor owns the shared burst state, the rolling window and the result
// publication slot. OnEdge is the only method safe for interrupt context;
// Poll/Run must execute on a single background task, and the window,
// baseline and report fields are owned by that task alone.
type Monitor struct {
	clock Clock
	cfg   Config

	st  burstState
	out *latch.Latch[Result]

	// Segmentation-task state.
	win          window
	base         baseline
	prevEndUs    uint32
	havePrevEnd  bool
	last         Result
	wasActive    bool
	lastReportMs uint32
}

func New(clock Clock, cfg Config) *Monitor {
	cfg.applyDefaults()
	m := &Monitor{
		clock: clock,
		cfg:   cfg,
		out:   latch.New[Result](),
	}
	m.st.timeoutUs = cfg.BurstTimeoutUs
	m.lastReportMs = clock.Millis()
	return m
}

// OnEdge is the edge-capture callback, registered for both transitions of the
// monitored pin. Safe for interrupt context: one clock read plus a bounded
// critical section.
func (m *Monitor) OnEdge() {
	m.st.onEdge(m.clock.Micros())
}

// Latest peeks the most recently published result without consuming it.
func (m *Monitor) Latest() (Result, bool) { return m.out.Peek() }

// Await peeks the latest result, waiting up to d for the first publication.
// d <= 0 polls without blocking.
func (m *Monitor) Await(d time.Duration) (Result, bool) { return m.out.Wait(d) }

// Run drives the segmentation state machine until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	tick := time.NewTicker(m.cfg.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.Poll()
		}
	}
}

// Poll executes one segmentation tick: burst end detection, burst start
// notification, and the periodic rolling report. Exposed so tests can drive
// the state machine with a synthetic clock.
func (m *Monitor) Poll() {
	nowUs := m.clock.Micros()
	snap := m.st.take()

	if snap.active && timex.SinceUs(nowUs, snap.lastEdgeUs) > m.cfg.BurstTimeoutUs {
		m.finishBurst(nowUs, snap)
	} else if snap.notify && !m.wasActive {
		// A burst has started; let consumers know without waiting for the
		// measurement to complete.
		r := m.last
		r.BurstActive = true
		r.Success = true
		m.publish(r)
		m.wasActive = true
	}

	m.maybeReport()
}

func (m *Monitor) finishBurst(nowUs uint32, snap stateSnap) {
	m.st.endBurst()
	nowMs := m.clock.Millis()

	// Duration is measured edge-to-edge, not to the poll instant, so the
	// 10 ms poll jitter never inflates it.
	var durationUs uint32
	if snap.lastEdgeUs > snap.startUs {
		durationUs = snap.lastEdgeUs - snap.startUs
	}

	var offUs uint32
	if m.havePrevEnd && snap.startUs > m.prevEndUs {
		offUs = snap.startUs - m.prevEndUs
	}

	// Each pulse contributes a rising and a falling edge; below 4 edges there
	// is no meaningful rate.
	var freqKHz float32
	if snap.edgeCount >= 4 && durationUs > 0 {
		freqKHz = float32(snap.edgeCount/2) * 1000.0 / (float32(durationUs) / 1000.0)
	}

	r := Result{
		BurstDurationUs:    durationUs,
		OffPeriodUs:        offUs,
		PulseCount:         snap.edgeCount / 2,
		FrequencyKHz:       freqKHz,
		FirstPulsePeriodUs: snap.firstPeriodUs,
		Timestamp:          nowMs,
		BurstActive:        false,
		Success:            true,
	}

	if r.PulseCount > m.cfg.MaxPulseCount {
		// Noise burst: discard the rolling statistics but keep a young
		// baseline, and still publish the instantaneous result.
		m.win.reset()
		m.base.clearIfStale(nowMs)
	} else {
		b := burstOf(r)
		m.win.push(b)
		if !m.base.set {
			m.base.latch(b, nowMs)
		}
	}

	m.prevEndUs = nowUs
	m.havePrevEnd = true
	m.publish(r)
	m.wasActive = false
}

func (m *Monitor) publish(r Result) {
	m.last = r
	m.out.Store(r)
	if m.cfg.OnResult != nil {
		m.cfg.OnResult(r)
	}
}

func (m *Monitor) maybeReport() {
	nowMs := m.clock.Millis()
	if nowMs-m.lastReportMs < uint32(m.cfg.ReportInterval.Milliseconds()) {
		return
	}
	rep, ok := m.report()
	if !ok {
		// Nothing measured yet; report as soon as data exists.
		return
	}
	m.lastReportMs = nowMs
	if m.cfg.Report != nil {
		m.cfg.Report(rep)
	}
}

func (m *Monitor) report() (Report, bool) {
	avg, ok := m.win.means()
	if !ok {
		return Report{}, false
	}
	rep := Report{Avg: avg}
	if m.base.set {
		rep.HaveFirst = true
		rep.First = m.base.b
		rep.FirstCapturedMs = m.base.capturedAtMs
		rep.PulseDeltaPct = (avg.PulseCount - float32(m.base.b.PulseCount)) / float32(m.base.b.PulseCount) * 100
		rep.FreqDeltaPct = (avg.FrequencyKHz - m.base.b.FrequencyKHz) / m.base.b.FrequencyKHz * 100
	}
	return rep, true
}

// Reset returns the monitor to its post-init state: shared fields zeroed,
// window and baseline empty, nothing published since the last Result remains
// latched (overwrite semantics keep the slot).
func (m *Monitor) Reset() {
	m.st.reset()
	m.win.reset()
	m.base = baseline{}
	m.prevEndUs = 0
	m.havePrevEnd = false
	m.wasActive = false
	m.lastReportMs = m.clock.Millis()
}
