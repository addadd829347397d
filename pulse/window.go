package pulse

// window is a fixed-capacity ring over the last WindowSize valid bursts,
// kept as parallel arrays to match the per-quantity averaging. Owned
// exclusively by the polling task; no locking needed.
type window struct {
	pulseCounts  [WindowSize]uint16
	frequencies  [WindowSize]float32
	firstPeriods [WindowSize]uint32
	durations    [WindowSize]uint32
	offPeriods   [WindowSize]uint32

	cursor int
	valid  int // saturates at WindowSize
}

func (w *window) push(b Burst) {
	w.pulseCounts[w.cursor] = b.PulseCount
	w.frequencies[w.cursor] = b.FrequencyKHz
	w.firstPeriods[w.cursor] = b.FirstPulsePeriodUs
	w.durations[w.cursor] = b.BurstDurationUs
	w.offPeriods[w.cursor] = b.OffPeriodUs

	w.cursor = (w.cursor + 1) % WindowSize
	if w.valid < WindowSize {
		w.valid++
	}
}

func (w *window) reset() { *w = window{} }

// means averages the populated slots. ok is false while the window is empty.
func (w *window) means() (Means, bool) {
	if w.valid == 0 {
		return Means{}, false
	}
	var m Means
	for i := 0; i < w.valid; i++ {
		m.PulseCount += float32(w.pulseCounts[i])
		m.FrequencyKHz += w.frequencies[i]
		m.FirstPulsePeriodUs += float32(w.firstPeriods[i])
		m.BurstDurationUs += float32(w.durations[i])
		m.OffPeriodUs += float32(w.offPeriods[i])
	}
	n := float32(w.valid)
	m.PulseCount /= n
	m.FrequencyKHz /= n
	m.FirstPulsePeriodUs /= n
	m.BurstDurationUs /= n
	m.OffPeriodUs /= n
	m.Samples = w.valid
	return m, true
}

// baseline is the first valid reading, retained for at least BaselineHoldMs
// even across noise resets.
type baseline struct {
	set          bool
	b            Burst
	capturedAtMs uint32
}

func (bl *baseline) latch(b Burst, nowMs uint32) {
	bl.b = b
	bl.capturedAtMs = nowMs
	bl.set = true
}

// clearIfStale drops the baseline when its minimum retention has elapsed.
// Returns true if the baseline was cleared.
func (bl *baseline) clearIfStale(nowMs uint32) bool {
	if bl.set && nowMs-bl.capturedAtMs > BaselineHoldMs {
		bl.set = false
		return true
	}
	return false
}
