package probe

import (
	"sync"
	"time"
)

// Sink receives each result as soon as it is recorded.
type Sink interface {
	Emit(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

// Emit implements Sink.
func (f SinkFunc) Emit(r Result) { f(r) }

// Recorder collects results in the order they are recorded. It is safe
// for concurrent use; the sink is invoked under the recorder's lock so
// output lines never interleave.
type Recorder struct {
	mu      sync.Mutex
	results []Result
	sink    Sink
	now     func() time.Time
}

// NewRecorder returns a recorder that streams to sink. sink may be nil.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// Record appends a result for suite and forwards it to the sink.
func (r *Recorder) Record(suite, name string, status Status, details string, duration time.Duration) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{
		Seq:       len(r.results) + 1,
		Suite:     suite,
		Name:      name,
		Status:    status,
		Details:   details,
		Duration:  duration,
		Timestamp: r.now(),
	}
	r.results = append(r.results, res)
	if r.sink != nil {
		r.sink.Emit(res)
	}
	return res
}

// Results returns a copy of everything recorded so far.
func (r *Recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Len returns the number of recorded results.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Scope binds a recorder to one suite name.
func (r *Recorder) Scope(suite string) Scope {
	return Scope{rec: r, suite: suite}
}

// Scope records results on behalf of a single suite.
type Scope struct {
	rec   *Recorder
	suite string
}

// Suite returns the bound suite name.
func (s Scope) Suite() string { return s.suite }

// Pass records a PASS.
func (s Scope) Pass(name, details string, d time.Duration) {
	s.rec.Record(s.suite, name, StatusPass, details, d)
}

// Fail records a FAIL.
func (s Scope) Fail(name, details string, d time.Duration) {
	s.rec.Record(s.suite, name, StatusFail, details, d)
}

// Warn records a WARN.
func (s Scope) Warn(name, details string, d time.Duration) {
	s.rec.Record(s.suite, name, StatusWarn, details, d)
}

// Info records an INFO.
func (s Scope) Info(name, details string) {
	s.rec.Record(s.suite, name, StatusInfo, details, 0)
}

// Skip records a SKIP.
func (s Scope) Skip(name, details string) {
	s.rec.Record(s.suite, name, StatusSkip, details, 0)
}

// Log records a result with an explicit status.
func (s Scope) Log(name string, status Status, details string, d time.Duration) {
	s.rec.Record(s.suite, name, status, details, d)
}
