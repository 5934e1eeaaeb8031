// Package throttle provides a token bucket limiter for data connection
// bandwidth.
//
// The bucket starts empty and holds at most one second of tokens. Callers
// reserve tokens before moving bytes; when the bucket runs dry the caller
// sleeps until the reservation is paid off, so throughput converges on the
// configured rate without an initial burst.
package throttle

import (
	"io"
	"sync"
	"time"
)

const (
	readChunk  = 8 * 1024
	writeChunk = 64 * 1024
)

// Limiter limits throughput to a fixed number of bytes per second.
// A nil *Limiter never blocks. One Limiter may be shared by several
// readers and writers.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // bytes per second
	burst  float64
	tokens float64 // negative while a reservation is outstanding
	last   time.Time
}

// New returns a limiter for bytesPerSecond, or nil when the value is not
// positive.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &Limiter{
		rate:  float64(bytesPerSecond),
		burst: float64(bytesPerSecond),
		last:  time.Now(),
	}
}

// Rate returns the configured limit in bytes per second.
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return int64(l.rate)
}

// Wait reserves n bytes and blocks until the reservation is covered.
func (l *Limiter) Wait(n int) {
	if d := l.reserve(n); d > 0 {
		time.Sleep(d)
	}
}

func (l *Limiter) reserve(n int) time.Duration {
	if l == nil || n <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	l.tokens -= float64(n)
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

type reader struct {
	r       io.Reader
	limiter *Limiter
}

// NewReader returns r limited by l. If l is nil, r is returned unchanged.
func NewReader(r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &reader{r: r, limiter: l}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > readChunk {
		p = p[:readChunk]
	}
	n, err := r.r.Read(p)
	r.limiter.Wait(n)
	return n, err
}

type writer struct {
	w       io.Writer
	limiter *Limiter
}

// NewWriter returns w limited by l. If l is nil, w is returned unchanged.
func NewWriter(w io.Writer, l *Limiter) io.Writer {
	if l == nil {
		return w
	}
	return &writer{w: w, limiter: l}
}

func (w *writer) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := min(len(p)-written, writeChunk)
		w.limiter.Wait(chunk)
		n, err := w.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
