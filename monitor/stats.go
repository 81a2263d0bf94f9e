// Package monitor provides the messaging monitor sample and the statistics
// tracker it is built on: throughput and latency bookkeeping for a stream of
// input, output and failure events, with reset-to-initial semantics.
package monitor

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// FailureCause is the textual rendering of an error captured at record
// time. Only the most recent failure's cause is retained.
type FailureCause struct {
	Message string   `json:"message"`
	Stack   []string `json:"stack,omitempty"`
}

// StatisticsTracker counts input, output and failure events and tracks
// processing durations (last/min/max/total, all in milliseconds).
//
// Writers (Record*, Reset) are mutually exclusive; readers may run
// concurrently with each other and with writers. Individual reads are never
// torn, but a sequence of accessor calls is not a consistent snapshot.
type StatisticsTracker struct {
	mu    sync.RWMutex
	clock Clock

	inputCount  int64
	inputLatest time.Time
	hasInput    bool

	outputCount  int64
	outputLatest time.Time
	hasOutput    bool

	durationLast  int64
	durationMin   int64
	durationMax   int64
	durationTotal int64
	hasDuration   bool

	failedCount  int64
	failedLatest time.Time
	hasFailed    bool
	failedCause  *FailureCause
}

// NewStatisticsTracker returns a tracker in its reset state. A nil clock
// means the wall clock.
func NewStatisticsTracker(clock Clock) *StatisticsTracker {
	s := &StatisticsTracker{clock: wallClock(clock)}
	s.Reset()
	return s
}

// RecordInput notes that a message has been received and processing begins.
func (s *StatisticsTracker) RecordInput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputCount++
	s.inputLatest = s.clock()
	s.hasInput = true
}

// RecordOutput notes a successfully processed message and derives the
// processing duration from the most recent RecordInput call. With multiple
// messages in flight concurrently the derived duration is meaningless; such
// callers should use RecordOutputDuration instead.
func (s *StatisticsTracker) RecordOutput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasInput {
		// RecordOutput without a preceding RecordInput, or a Reset in
		// between. No duration can be derived.
		s.recordOutputLocked(-1)
		return
	}
	s.recordOutputLocked(s.clock().Sub(s.inputLatest).Milliseconds())
}

// RecordOutputDuration notes a successfully processed message with an
// explicit processing duration. A negative duration means "duration
// unknown": the output still counts, but last/min/max/total are untouched.
func (s *StatisticsTracker) RecordOutputDuration(durationMillis int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordOutputLocked(durationMillis)
}

func (s *StatisticsTracker) recordOutputLocked(durationMillis int64) {
	s.outputCount++
	s.outputLatest = s.clock()
	s.hasOutput = true

	if durationMillis < 0 {
		return
	}

	s.durationLast = durationMillis
	s.durationTotal += durationMillis
	if !s.hasDuration || durationMillis < s.durationMin {
		s.durationMin = durationMillis
	}
	if !s.hasDuration || durationMillis > s.durationMax {
		s.durationMax = durationMillis
	}
	s.hasDuration = true
}

// RecordFailure notes a failed message. The cause, if any, is rendered to
// text immediately; only the latest failure's cause is kept.
func (s *StatisticsTracker) RecordFailure(cause error) {
	rendered := captureCause(cause)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.failedCount++
	s.failedLatest = s.clock()
	s.hasFailed = true
	s.failedCause = rendered
}

// Reset restores the tracker to its initial state: all counters zero, all
// timestamps and durations absent, no failure cause.
func (s *StatisticsTracker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputCount = 0
	s.hasInput = false
	s.outputCount = 0
	s.hasOutput = false
	s.durationLast = 0
	s.durationMin = 0
	s.durationMax = 0
	s.durationTotal = 0
	s.hasDuration = false
	s.failedCount = 0
	s.hasFailed = false
	s.failedCause = nil
}

func (s *StatisticsTracker) InputCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputCount
}

func (s *StatisticsTracker) InputLatest() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputLatest, s.hasInput
}

// InputAgeSeconds reports the whole seconds since the latest input.
func (s *StatisticsTracker) InputAgeSeconds() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ageSeconds(s.inputLatest, s.hasInput)
}

func (s *StatisticsTracker) OutputCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputCount
}

func (s *StatisticsTracker) OutputLatest() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputLatest, s.hasOutput
}

func (s *StatisticsTracker) OutputAgeSeconds() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ageSeconds(s.outputLatest, s.hasOutput)
}

func (s *StatisticsTracker) DurationLatestMillis() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durationLast, s.hasDuration
}

func (s *StatisticsTracker) DurationMinMillis() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durationMin, s.hasDuration
}

func (s *StatisticsTracker) DurationMaxMillis() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durationMax, s.hasDuration
}

func (s *StatisticsTracker) DurationTotalMillis() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durationTotal
}

// DurationAverageMillis is the total duration divided by the output count.
// The count includes outputs recorded with an unknown duration, matching
// the total, which excludes them.
func (s *StatisticsTracker) DurationAverageMillis() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.outputCount == 0 {
		return 0, false
	}
	return s.durationTotal / s.outputCount, true
}

func (s *StatisticsTracker) FailedCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedCount
}

func (s *StatisticsTracker) FailedLatest() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedLatest, s.hasFailed
}

func (s *StatisticsTracker) FailedAgeSeconds() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ageSeconds(s.failedLatest, s.hasFailed)
}

// FailedCause returns the rendered cause of the latest failure, or false if
// no failure has been recorded since the last reset or the failure carried
// no cause.
func (s *StatisticsTracker) FailedCause() (FailureCause, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failedCause == nil {
		return FailureCause{}, false
	}
	return *s.failedCause, true
}

func (s *StatisticsTracker) ageSeconds(t time.Time, ok bool) (int64, bool) {
	if !ok {
		return 0, false
	}
	return int64(s.clock().Sub(t) / time.Second), true
}

// captureCause renders an error to text at capture time so the tracker
// never retains a live error value. A panicking Error() degrades to a
// placeholder message rather than propagating to the caller.
func captureCause(cause error) *FailureCause {
	if cause == nil {
		return nil
	}
	return &FailureCause{
		Message: renderError(cause),
		Stack:   captureStack(4),
	}
}

func renderError(cause error) (msg string) {
	defer func() {
		if recover() != nil {
			msg = fmt.Sprintf("%T (cause unavailable)", cause)
		}
	}()
	return cause.Error()
}

func captureStack(skip int) []string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(skip, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	lines := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		lines = append(lines, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return lines
}
