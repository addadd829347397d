package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the engine deterministically. Millis is derived from
// Micros so both time bases stay coherent.
type fakeClock struct {
	us uint32
}

func (c *fakeClock) Micros() uint32 { return c.us }
func (c *fakeClock) Millis() uint32 { return c.us / 1000 }

type capture struct {
	results []Result
	reports []Report
}

func newMonitor(t *testing.T, cfg Config) (*Monitor, *fakeClock, *capture) {
	t.Helper()
	clk := &fakeClock{us: 1_000_000} // 1 s of pre-existing idle
	cap := &capture{}
	cfg.OnResult = func(r Result) { cap.results = append(cap.results, r) }
	cfg.Report = func(r Report) { cap.reports = append(cap.reports, r) }
	return New(clk, cfg), clk, cap
}

func edgesAt(m *Monitor, clk *fakeClock, base uint32, offsets ...uint32) {
	for _, off := range offsets {
		clk.us = base + off
		m.OnEdge()
	}
}

func pollAt(m *Monitor, clk *fakeClock, us uint32) {
	clk.us = us
	m.Poll()
}

func TestSingleBurstBoundary(t *testing.T) {
	m, clk, cap := newMonitor(t, Config{})
	base := clk.us

	// 6 edges, gaps all below the 2 ms timeout; one poll lands mid-burst.
	edgesAt(m, clk, base, 0, 100, 250, 400, 520, 700)
	pollAt(m, clk, base+800)
	pollAt(m, clk, base+700+2001)

	require.Len(t, cap.results, 2) // start notification + completed burst
	r := cap.results[1]
	assert.False(t, r.BurstActive)
	assert.True(t, r.Success)
	assert.Equal(t, uint16(3), r.PulseCount) // floor(6/2)
	assert.Equal(t, uint32(700), r.BurstDurationUs)
	assert.Equal(t, uint32(150), r.FirstPulsePeriodUs) // 250-100
}

// The worked end-to-end scenario: two bursts separated by idle gaps, with a
// poll ending each once the 2 ms timeout has elapsed.
func TestExampleScenario(t *testing.T) {
	m, clk, cap := newMonitor(t, Config{})
	base := clk.us

	edgesAt(m, clk, base, 0, 50)
	pollAt(m, clk, base+2060) // 2060-50 > 2000: first burst ends

	edgesAt(m, clk, base, 2100, 2150, 2300, 2450)
	pollAt(m, clk, base+2500) // mid-burst: start notification fires here
	pollAt(m, clk, base+4460) // 4460-2450 > 2000: second burst ends

	r, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint16(2), r.PulseCount)
	assert.Equal(t, uint32(350), r.BurstDurationUs)
	assert.InDelta(t, 5714.3, float64(r.FrequencyKHz), 0.1)
	assert.Equal(t, uint32(150), r.FirstPulsePeriodUs) // 3rd transition gap, 2300-2150

	// The start of burst two was announced before it completed.
	var sawStart bool
	for _, res := range cap.results {
		if res.BurstActive {
			sawStart = true
		}
	}
	assert.True(t, sawStart)
}

func TestTwoEdgeBurstZeroFrequency(t *testing.T) {
	m, clk, cap := newMonitor(t, Config{})
	base := clk.us

	edgesAt(m, clk, base, 0, 500)
	pollAt(m, clk, base+500+2001)

	r := cap.results[len(cap.results)-1]
	assert.Equal(t, uint16(1), r.PulseCount)
	assert.Equal(t, uint32(500), r.BurstDurationUs)
	assert.Zero(t, r.FrequencyKHz)
}

func TestOffPeriodBetweenBursts(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})
	base := clk.us

	edgesAt(m, clk, base, 0, 100)
	pollAt(m, clk, base+2200) // first end observed at base+2200

	edgesAt(m, clk, base, 10_000, 10_100)
	pollAt(m, clk, base+12_200)

	r, ok := m.Latest()
	require.True(t, ok)
	// Off period runs from the observed end of burst one to the start of
	// burst two.
	assert.Equal(t, uint32(10_000-2200), r.OffPeriodUs)
}

func TestFirstBurstHasZeroOffPeriod(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})
	base := clk.us

	edgesAt(m, clk, base, 0, 100, 200, 300)
	pollAt(m, clk, base+2400)

	r, ok := m.Latest()
	require.True(t, ok)
	assert.Zero(t, r.OffPeriodUs)
}

// feedBurst runs one complete burst of n pulses (2n edges, 100 µs apart)
// starting at startUs, then polls just past the timeout to close it.
func feedBurst(m *Monitor, clk *fakeClock, startUs uint32, pulses int) {
	for i := 0; i < pulses*2; i++ {
		clk.us = startUs + uint32(i)*100
		m.OnEdge()
	}
	clk.us = startUs + uint32(pulses*2-1)*100 + 2001
	m.Poll()
}

func TestOutlierClearsWindow(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})
	at := clk.us

	for i := 0; i < 3; i++ {
		feedBurst(m, clk, at, 5)
		at = clk.us + 5000
	}
	require.Equal(t, 3, m.win.valid)

	feedBurst(m, clk, at, 41) // above MaxPulseCount
	assert.Equal(t, 0, m.win.valid)
	assert.Equal(t, 0, m.win.cursor)

	// The outlier is still visible as the instantaneous result.
	r, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint16(41), r.PulseCount)
}

func TestBaselineRetention(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})

	feedBurst(m, clk, clk.us, 5)
	require.True(t, m.base.set)
	captured := m.base.capturedAtMs

	// Noise 2999 ms after capture: baseline must survive.
	feedBurst(m, clk, (captured+2999)*1000-2001-uint32(41*2-1)*100, 41)
	require.LessOrEqual(t, m.clock.Millis()-captured, uint32(3000))
	assert.True(t, m.base.set)

	// Noise past the 3000 ms hold: baseline cleared.
	feedBurst(m, clk, (captured+3500)*1000, 41)
	assert.False(t, m.base.set)

	// The next valid burst becomes the new baseline.
	feedBurst(m, clk, clk.us+5000, 7)
	require.True(t, m.base.set)
	assert.Equal(t, uint16(7), m.base.b.PulseCount)
}

func TestRollingMeanLastTen(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})
	at := clk.us

	// 12 bursts with pulse counts 1..12; the window must hold 3..12.
	for i := 1; i <= 12; i++ {
		feedBurst(m, clk, at, i)
		at = clk.us + 5000
	}

	rep, ok := m.report()
	require.True(t, ok)
	assert.Equal(t, 10, rep.Avg.Samples)
	assert.InDelta(t, 7.5, float64(rep.Avg.PulseCount), 1e-4)

	// Baseline is the very first valid burst.
	require.True(t, rep.HaveFirst)
	assert.Equal(t, uint16(1), rep.First.PulseCount)
	assert.InDelta(t, 650.0, float64(rep.PulseDeltaPct), 1e-3) // (7.5-1)/1*100
}

func TestPublicationOverwrite(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})

	feedBurst(m, clk, clk.us, 4)
	feedBurst(m, clk, clk.us+10_000, 9)

	r, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint16(9), r.PulseCount)

	// Peek is non-destructive: repeated reads observe the same value.
	again, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, r, again)
}

func TestAwaitTimesOutBeforeFirstResult(t *testing.T) {
	m, _, _ := newMonitor(t, Config{})
	if _, ok := m.Await(0); ok {
		t.Fatal("expected no result before the first burst")
	}
}

func TestPeriodicReportCadence(t *testing.T) {
	m, clk, cap := newMonitor(t, Config{})

	// No data: interval elapses without a report.
	pollAt(m, clk, clk.us+1_100_000)
	assert.Empty(t, cap.reports)

	// The poll that closes the burst is already past the report interval, so
	// the first summary rides on it.
	feedBurst(m, clk, clk.us+1000, 5)
	require.Len(t, cap.reports, 1)

	rep := cap.reports[0]
	assert.Equal(t, 1, rep.Avg.Samples)
	assert.InDelta(t, 5.0, float64(rep.Avg.PulseCount), 1e-4)
	assert.True(t, rep.HaveFirst)
	assert.Zero(t, rep.PulseDeltaPct) // average equals the baseline

	pollAt(m, clk, clk.us+1_100_000)
	require.Len(t, cap.reports, 2)
}

func TestResetReturnsToInitialState(t *testing.T) {
	m, clk, _ := newMonitor(t, Config{})

	feedBurst(m, clk, clk.us, 5)
	require.Equal(t, 1, m.win.valid)

	m.Reset()
	assert.Equal(t, 0, m.win.valid)
	assert.False(t, m.base.set)
	assert.False(t, m.st.take().active)
}
