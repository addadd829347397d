package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Mono is a monotonic clock with microsecond resolution. Both counters are
// uint32 and wrap silently; callers must treat differences as unsigned
// modulo arithmetic (see SinceUs).
type Mono struct {
	start time.Time
}

func NewMono() *Mono { return &Mono{start: time.Now()} }

// Micros returns microseconds since the clock was created, modulo 2^32
// (wraps after ~71.6 minutes).
func (m *Mono) Micros() uint32 { return uint32(time.Since(m.start).Microseconds()) }

// Millis returns milliseconds since the clock was created, modulo 2^32.
func (m *Mono) Millis() uint32 { return uint32(time.Since(m.start).Milliseconds()) }

// SinceUs returns now-then in microseconds under wraparound.
func SinceUs(now, then uint32) uint32 { return now - then }
