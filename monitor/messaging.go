package monitor

import (
	"errors"
	"sync"
	"time"

	"github.com/softee/managed/objectname"
	"github.com/softee/managed/registry"
)

// MessagingMonitor is a managed object for monitoring a message-processing
// pipeline: counts and timestamps for received, processed and failed
// messages plus processing-duration statistics, all externally readable,
// with a Reset operation.
type MessagingMonitor struct {
	name  objectname.ObjectName
	stats *StatisticsTracker
	clock Clock

	mu         sync.Mutex
	registry   *registry.Registry
	started    time.Time
	hasStarted bool
}

// NewMessagingMonitor builds a monitor with all statistics in their reset
// state. A nil clock means the wall clock.
func NewMessagingMonitor(name objectname.ObjectName, clock Clock) *MessagingMonitor {
	clock = wallClock(clock)
	return &MessagingMonitor{
		name:  name,
		stats: NewStatisticsTracker(clock),
		clock: clock,
	}
}

func (m *MessagingMonitor) ObjectName() objectname.ObjectName {
	return m.name
}

// Stats exposes the underlying tracker for direct instrumentation.
func (m *MessagingMonitor) Stats() *StatisticsTracker {
	return m.stats
}

// Start stamps the monitor's start time and registers it with the registry.
func (m *MessagingMonitor) Start(reg *registry.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := reg.Register(m.name, m); err != nil {
		return err
	}
	m.registry = reg
	m.started = m.clock()
	m.hasStarted = true

	return nil
}

// Stop unregisters the monitor. Statistics are left intact.
func (m *MessagingMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry == nil {
		return errors.New("monitor is not started")
	}
	if err := m.registry.Unregister(m.name); err != nil {
		return err
	}
	m.registry = nil

	return nil
}

// Started reports when the monitor was started, or false before Start.
// Reset does not clear it.
func (m *MessagingMonitor) Started() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.hasStarted
}

// RecordInput notes a received message.
func (m *MessagingMonitor) RecordInput() {
	m.stats.RecordInput()
}

// RecordOutput notes a processed message, deriving the duration from the
// latest input. See StatisticsTracker.RecordOutput for the single-producer
// caveat.
func (m *MessagingMonitor) RecordOutput() {
	m.stats.RecordOutput()
}

// RecordOutputDuration notes a processed message with an explicit duration.
func (m *MessagingMonitor) RecordOutputDuration(durationMillis int64) {
	m.stats.RecordOutputDuration(durationMillis)
}

// RecordFailure notes a failed message.
func (m *MessagingMonitor) RecordFailure(cause error) {
	m.stats.RecordFailure(cause)
}

// Reset restores all statistics to their initial state. The start time is
// a lifecycle concern of the monitor itself and is not touched.
func (m *MessagingMonitor) Reset() {
	m.stats.Reset()
}

// reRegister unregisters and registers again, so management tooling picks
// up a changed attribute set after a debug session.
func (m *MessagingMonitor) reRegister() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry == nil {
		return errors.New("monitor is not started")
	}
	if err := m.registry.Unregister(m.name); err != nil {
		return err
	}
	_, err := m.registry.Register(m.name, m)

	return err
}

func (m *MessagingMonitor) ManagedAttributes() []registry.Attribute {
	return []registry.Attribute{
		{Name: "Started", Description: "Time when the monitor was started", Value: timeValue(m.Started)},
		{Name: "InputCount", Description: "Number of messages received", Value: countValue(m.stats.InputCount)},
		{Name: "InputLatest", Description: "Time of last received message", Value: timeValue(m.stats.InputLatest)},
		{Name: "InputLatestAgeSeconds", Description: "Time since latest received message (seconds)", Value: optionalValue(m.stats.InputAgeSeconds)},
		{Name: "OutputCount", Description: "Number of processed messages", Value: countValue(m.stats.OutputCount)},
		{Name: "OutputLatest", Description: "Time of the latest processed message", Value: timeValue(m.stats.OutputLatest)},
		{Name: "OutputLatestAgeSeconds", Description: "Time since latest processed message (seconds)", Value: optionalValue(m.stats.OutputAgeSeconds)},
		{Name: "DurationLatestMillis", Description: "Processing time of the latest message (ms)", Value: optionalValue(m.stats.DurationLatestMillis)},
		{Name: "DurationTotalMillis", Description: "Total processing time of all messages (ms)", Value: countValue(m.stats.DurationTotalMillis)},
		{Name: "DurationAverageMillis", Description: "Average processing time (ms)", Value: optionalValue(m.stats.DurationAverageMillis)},
		{Name: "DurationMinMillis", Description: "Min processing time (ms)", Value: optionalValue(m.stats.DurationMinMillis)},
		{Name: "DurationMaxMillis", Description: "Max processing time (ms)", Value: optionalValue(m.stats.DurationMaxMillis)},
		{Name: "FailedCount", Description: "Number of messages that failed", Value: countValue(m.stats.FailedCount)},
		{Name: "FailedLatest", Description: "Time of the latest failed message", Value: timeValue(m.stats.FailedLatest)},
		{Name: "FailedLatestAgeSeconds", Description: "Time since latest failed message (seconds)", Value: optionalValue(m.stats.FailedAgeSeconds)},
		{Name: "FailedLatestReason", Description: "Failure reason of the latest failed message", Value: m.failedReason},
		{Name: "FailedLatestStacktrace", Description: "Failure stacktrace of the latest failed message (one line per element)", Value: m.failedStacktrace},
	}
}

func (m *MessagingMonitor) ManagedOperations() []registry.Operation {
	return []registry.Operation{
		{
			Name:        "Reset",
			Description: "Reset the monitor's statistics",
			Impact:      registry.ImpactAction,
			Invoke: func() error {
				m.Reset()
				return nil
			},
		},
		{
			Name:        "ReRegister",
			Description: "Unregister and register the monitor again",
			Impact:      registry.ImpactAction,
			Invoke:      m.reRegister,
		},
	}
}

func (m *MessagingMonitor) failedReason() any {
	cause, ok := m.stats.FailedCause()
	if !ok {
		return nil
	}
	return cause.Message
}

func (m *MessagingMonitor) failedStacktrace() any {
	cause, ok := m.stats.FailedCause()
	if !ok {
		return nil
	}
	return cause.Stack
}

// countValue adapts a counter accessor to an attribute value func.
func countValue(get func() int64) func() any {
	return func() any {
		return get()
	}
}

// timeValue adapts a timestamp accessor; absent timestamps surface as nil.
func timeValue(get func() (time.Time, bool)) func() any {
	return func() any {
		t, ok := get()
		if !ok {
			return nil
		}
		return t
	}
}

// optionalValue adapts an optional-integer accessor; absent values surface
// as nil.
func optionalValue(get func() (int64, bool)) func() any {
	return func() any {
		v, ok := get()
		if !ok {
			return nil
		}
		return v
	}
}
