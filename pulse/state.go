package pulse

import (
	"sync"

	"pulsecode-go/x/timex"
)

// burstState is the shared state between the edge-capture callback and the
// polling task. All fields are touched only inside the mutex; both sides keep
// the critical section to a handful of field accesses so the interrupt-side
// hold time stays bounded.
type burstState struct {
	mu sync.Mutex

	lastEdgeUs    uint32
	firstPeriodUs uint32 // gap between 2nd and 3rd transition; 0 until known
	startUs       uint32
	edgeCount     uint16
	active        bool
	notify        bool // set on burst start, cleared by the poller

	timeoutUs uint32
}

// onEdge classifies one logic transition. Interrupt context: no allocation,
// no floating point, no calls out.
func (s *burstState) onEdge(nowUs uint32) {
	s.mu.Lock()
	gap := timex.SinceUs(nowUs, s.lastEdgeUs)
	if !s.active && gap > s.timeoutUs {
		// First edge after a long gap starts a new burst.
		s.startUs = nowUs
		s.edgeCount = 1
		s.active = true
		s.firstPeriodUs = 0
		s.notify = true
	} else if s.active {
		s.edgeCount++
		if s.edgeCount == 3 && s.firstPeriodUs == 0 {
			s.firstPeriodUs = gap
		}
	}
	// An idle edge inside the timeout window falls through to here: it only
	// refreshes lastEdgeUs. Burst end detection is time based, so stray
	// trailing edges never extend the count.
	s.lastEdgeUs = nowUs
	s.mu.Unlock()
}

type stateSnap struct {
	lastEdgeUs    uint32
	firstPeriodUs uint32
	startUs       uint32
	edgeCount     uint16
	active        bool
	notify        bool
}

// take returns a consistent snapshot and clears the notify flag.
func (s *burstState) take() stateSnap {
	s.mu.Lock()
	snap := stateSnap{
		lastEdgeUs:    s.lastEdgeUs,
		firstPeriodUs: s.firstPeriodUs,
		startUs:       s.startUs,
		edgeCount:     s.edgeCount,
		active:        s.active,
		notify:        s.notify,
	}
	s.notify = false
	s.mu.Unlock()
	return snap
}

// endBurst marks the burst over once the poller has seen the idle timeout.
func (s *burstState) endBurst() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// reset zeroes all tracking fields, keeping the configured timeout.
func (s *burstState) reset() {
	s.mu.Lock()
	s.lastEdgeUs = 0
	s.firstPeriodUs = 0
	s.startUs = 0
	s.edgeCount = 0
	s.active = false
	s.notify = false
	s.mu.Unlock()
}
