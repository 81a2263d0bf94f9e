package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTracker(t *testing.T) (*StatisticsTracker, *testClock) {
	t.Helper()

	clock := newTestClock()
	return NewStatisticsTracker(clock.Now), clock
}

func assertInitialState(t *testing.T, s *StatisticsTracker) {
	t.Helper()

	assert.Equal(t, int64(0), s.InputCount())
	assert.Equal(t, int64(0), s.OutputCount())
	assert.Equal(t, int64(0), s.FailedCount())
	assert.Equal(t, int64(0), s.DurationTotalMillis())

	_, ok := s.InputLatest()
	assert.False(t, ok, "input latest should be absent")
	_, ok = s.OutputLatest()
	assert.False(t, ok, "output latest should be absent")
	_, ok = s.FailedLatest()
	assert.False(t, ok, "failed latest should be absent")
	_, ok = s.InputAgeSeconds()
	assert.False(t, ok, "input age should be absent")
	_, ok = s.DurationLatestMillis()
	assert.False(t, ok, "latest duration should be absent")
	_, ok = s.DurationMinMillis()
	assert.False(t, ok, "min duration should be absent")
	_, ok = s.DurationMaxMillis()
	assert.False(t, ok, "max duration should be absent")
	_, ok = s.DurationAverageMillis()
	assert.False(t, ok, "average duration should be absent")
	_, ok = s.FailedCause()
	assert.False(t, ok, "failure cause should be absent")
}

func TestNewStatisticsTracker(t *testing.T) {
	s, _ := setupTracker(t)
	assertInitialState(t, s)
}

func TestRecordInput(t *testing.T) {
	s, clock := setupTracker(t)

	for i := 0; i < 5; i++ {
		s.RecordInput()
	}

	assert.Equal(t, int64(5), s.InputCount())

	latest, ok := s.InputLatest()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), latest)
}

func TestRecordOutputDuration(t *testing.T) {
	s, _ := setupTracker(t)

	durations := []int64{30, 10, 50, 20}
	for _, d := range durations {
		s.RecordOutputDuration(d)
	}

	assert.Equal(t, int64(4), s.OutputCount())
	assert.Equal(t, int64(110), s.DurationTotalMillis())

	last, ok := s.DurationLatestMillis()
	require.True(t, ok)
	assert.Equal(t, int64(20), last)

	min, ok := s.DurationMinMillis()
	require.True(t, ok)
	assert.Equal(t, int64(10), min)

	max, ok := s.DurationMaxMillis()
	require.True(t, ok)
	assert.Equal(t, int64(50), max)

	avg, ok := s.DurationAverageMillis()
	require.True(t, ok)
	assert.Equal(t, int64(27), avg, "integer division of 110/4")

	assert.LessOrEqual(t, min, last)
	assert.LessOrEqual(t, last, max)
}

func TestRecordOutputDuration_Negative(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordOutputDuration(40)
	s.RecordOutputDuration(-1)

	assert.Equal(t, int64(2), s.OutputCount(), "unknown-duration output still counts")

	_, ok := s.OutputLatest()
	assert.True(t, ok)

	last, ok := s.DurationLatestMillis()
	require.True(t, ok)
	assert.Equal(t, int64(40), last, "unknown duration must not touch last")
	assert.Equal(t, int64(40), s.DurationTotalMillis())

	min, _ := s.DurationMinMillis()
	max, _ := s.DurationMaxMillis()
	assert.Equal(t, int64(40), min)
	assert.Equal(t, int64(40), max)
}

func TestRecordOutputDuration_NegativeOnly(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordOutputDuration(-1)

	assert.Equal(t, int64(1), s.OutputCount())

	_, ok := s.DurationLatestMillis()
	assert.False(t, ok, "no valid duration recorded yet")

	avg, ok := s.DurationAverageMillis()
	require.True(t, ok, "average is defined once an output exists")
	assert.Equal(t, int64(0), avg)
}

func TestDurationAverage_CountsUnknownDurations(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordOutputDuration(10)
	s.RecordOutputDuration(20)
	s.RecordOutputDuration(-1)
	s.RecordOutputDuration(-1)

	avg, ok := s.DurationAverageMillis()
	require.True(t, ok)
	assert.Equal(t, int64(7), avg, "30ms over 4 outputs")
}

func TestRecordOutput_AutoDuration(t *testing.T) {
	s, clock := setupTracker(t)

	s.RecordInput()
	clock.Advance(250 * time.Millisecond)
	s.RecordOutput()

	last, ok := s.DurationLatestMillis()
	require.True(t, ok)
	assert.Equal(t, int64(250), last)
}

func TestRecordOutput_WithoutInput(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordOutput()

	assert.Equal(t, int64(1), s.OutputCount())
	_, ok := s.DurationLatestMillis()
	assert.False(t, ok, "no duration can be derived without an input")
}

func TestRecordOutput_AfterReset(t *testing.T) {
	s, clock := setupTracker(t)

	s.RecordInput()
	s.Reset()
	clock.Advance(100 * time.Millisecond)
	s.RecordOutput()

	assert.Equal(t, int64(1), s.OutputCount())
	_, ok := s.DurationLatestMillis()
	assert.False(t, ok, "reset discards the pending input timestamp")
}

func TestRecordFailure(t *testing.T) {
	s, clock := setupTracker(t)

	s.RecordFailure(errors.New("boom"))

	assert.Equal(t, int64(1), s.FailedCount())

	latest, ok := s.FailedLatest()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), latest)

	cause, ok := s.FailedCause()
	require.True(t, ok)
	assert.Equal(t, "boom", cause.Message)
	assert.NotEmpty(t, cause.Stack)
}

func TestRecordFailure_OverwritesCause(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordFailure(errors.New("first"))
	s.RecordFailure(errors.New("second"))

	assert.Equal(t, int64(2), s.FailedCount())

	cause, ok := s.FailedCause()
	require.True(t, ok)
	assert.Equal(t, "second", cause.Message)
}

func TestRecordFailure_NilCause(t *testing.T) {
	s, _ := setupTracker(t)

	s.RecordFailure(errors.New("first"))
	s.RecordFailure(nil)

	assert.Equal(t, int64(2), s.FailedCount())

	_, ok := s.FailedCause()
	assert.False(t, ok, "nil cause overwrites the previous one")
}

type panickyError struct{}

func (panickyError) Error() string {
	panic("cannot render")
}

func TestRecordFailure_PanickingCause(t *testing.T) {
	s, _ := setupTracker(t)

	assert.NotPanics(t, func() {
		s.RecordFailure(panickyError{})
	})

	cause, ok := s.FailedCause()
	require.True(t, ok)
	assert.Contains(t, cause.Message, "cause unavailable")
}

func TestReset(t *testing.T) {
	s, clock := setupTracker(t)

	s.RecordInput()
	clock.Advance(10 * time.Millisecond)
	s.RecordOutput()
	s.RecordFailure(errors.New("boom"))

	s.Reset()
	assertInitialState(t, s)

	// Idempotent: resetting again changes nothing.
	s.Reset()
	assertInitialState(t, s)
}

func TestAgeSeconds(t *testing.T) {
	s, clock := setupTracker(t)

	s.RecordInput()
	clock.Advance(90 * time.Second)

	age, ok := s.InputAgeSeconds()
	require.True(t, ok)
	assert.Equal(t, int64(90), age)

	_, ok = s.OutputAgeSeconds()
	assert.False(t, ok)
	_, ok = s.FailedAgeSeconds()
	assert.False(t, ok)
}

func TestRecordInput_Concurrent(t *testing.T) {
	s := NewStatisticsTracker(nil)

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.RecordInput()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), s.InputCount(), "no lost updates")
}

func TestConcurrentMixedWriters(t *testing.T) {
	s := NewStatisticsTracker(nil)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers * 3)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.RecordInput()
		}()
		go func(d int64) {
			defer wg.Done()
			s.RecordOutputDuration(d)
		}(int64(i))
		go func() {
			defer wg.Done()
			s.RecordFailure(errors.New("boom"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), s.InputCount())
	assert.Equal(t, int64(workers), s.OutputCount())
	assert.Equal(t, int64(workers), s.FailedCount())

	min, ok := s.DurationMinMillis()
	require.True(t, ok)
	max, ok := s.DurationMaxMillis()
	require.True(t, ok)
	assert.Equal(t, int64(0), min)
	assert.Equal(t, int64(workers-1), max)
	assert.Equal(t, int64(workers*(workers-1)/2), s.DurationTotalMillis())
}
