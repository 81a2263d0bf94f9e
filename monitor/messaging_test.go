package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/softee/managed/objectname"
	"github.com/softee/managed/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMonitor(t *testing.T) (*MessagingMonitor, *registry.Registry, *testClock) {
	t.Helper()

	name, err := objectname.New("org.softee", "Messaging", "test")
	require.NoError(t, err)

	clock := newTestClock()
	mon := NewMessagingMonitor(name, clock.Now)
	reg := registry.NewRegistry()

	return mon, reg, clock
}

func findAttribute(t *testing.T, mon *MessagingMonitor, name string) registry.Attribute {
	t.Helper()

	for _, attr := range mon.ManagedAttributes() {
		if attr.Name == name {
			return attr
		}
	}
	t.Fatalf("attribute %s not found", name)
	return registry.Attribute{}
}

func findOperation(t *testing.T, mon *MessagingMonitor, name string) registry.Operation {
	t.Helper()

	for _, op := range mon.ManagedOperations() {
		if op.Name == name {
			return op
		}
	}
	t.Fatalf("operation %s not found", name)
	return registry.Operation{}
}

func TestMonitorStartStop(t *testing.T) {
	mon, reg, clock := setupMonitor(t)

	_, ok := mon.Started()
	assert.False(t, ok, "started should be absent before Start")

	require.NoError(t, mon.Start(reg))

	started, ok := mon.Started()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), started)

	_, found := reg.Lookup(mon.ObjectName().String())
	assert.True(t, found)

	require.NoError(t, mon.Stop())
	_, found = reg.Lookup(mon.ObjectName().String())
	assert.False(t, found)
}

func TestMonitorStart_AlreadyRegistered(t *testing.T) {
	mon, reg, _ := setupMonitor(t)

	require.NoError(t, mon.Start(reg))

	other := NewMessagingMonitor(mon.ObjectName(), nil)
	err := other.Start(reg)
	assert.ErrorIs(t, err, registry.ErrAlreadyRegistered)
}

func TestMonitorStop_NotStarted(t *testing.T) {
	mon, _, _ := setupMonitor(t)
	assert.Error(t, mon.Stop())
}

func TestMonitorAttributes(t *testing.T) {
	mon, _, clock := setupMonitor(t)

	mon.RecordInput()
	clock.Advance(40 * time.Millisecond)
	mon.RecordOutput()
	mon.RecordFailure(errors.New("boom"))

	tests := []struct {
		attribute string
		want      any
	}{
		{attribute: "InputCount", want: int64(1)},
		{attribute: "OutputCount", want: int64(1)},
		{attribute: "FailedCount", want: int64(1)},
		{attribute: "DurationLatestMillis", want: int64(40)},
		{attribute: "DurationTotalMillis", want: int64(40)},
		{attribute: "DurationAverageMillis", want: int64(40)},
		{attribute: "DurationMinMillis", want: int64(40)},
		{attribute: "DurationMaxMillis", want: int64(40)},
		{attribute: "FailedLatestReason", want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.attribute, func(t *testing.T) {
			attr := findAttribute(t, mon, tt.attribute)
			assert.Equal(t, tt.want, attr.Eval())
		})
	}
}

func TestMonitorAttributes_AbsentValuesAreNil(t *testing.T) {
	mon, _, _ := setupMonitor(t)

	absent := []string{
		"Started",
		"InputLatest",
		"InputLatestAgeSeconds",
		"OutputLatest",
		"OutputLatestAgeSeconds",
		"DurationLatestMillis",
		"DurationAverageMillis",
		"DurationMinMillis",
		"DurationMaxMillis",
		"FailedLatest",
		"FailedLatestAgeSeconds",
		"FailedLatestReason",
		"FailedLatestStacktrace",
	}

	for _, name := range absent {
		t.Run(name, func(t *testing.T) {
			attr := findAttribute(t, mon, name)
			assert.Nil(t, attr.Eval())
		})
	}
}

func TestMonitorResetOperation(t *testing.T) {
	mon, reg, _ := setupMonitor(t)
	require.NoError(t, mon.Start(reg))

	mon.RecordInput()
	mon.RecordOutputDuration(10)
	mon.RecordFailure(errors.New("boom"))

	reset := findOperation(t, mon, "Reset")
	assert.Equal(t, registry.ImpactAction, reset.Impact)
	require.NoError(t, reset.Invoke())

	assert.Equal(t, int64(0), mon.Stats().InputCount())
	assert.Equal(t, int64(0), mon.Stats().OutputCount())
	assert.Equal(t, int64(0), mon.Stats().FailedCount())

	_, ok := mon.Started()
	assert.True(t, ok, "reset must not clear the start time")
}

func TestMonitorReRegisterOperation(t *testing.T) {
	mon, reg, _ := setupMonitor(t)
	require.NoError(t, mon.Start(reg))

	before, found := reg.Lookup(mon.ObjectName().String())
	require.True(t, found)

	reRegister := findOperation(t, mon, "ReRegister")
	require.NoError(t, reRegister.Invoke())

	after, found := reg.Lookup(mon.ObjectName().String())
	require.True(t, found)
	assert.NotEqual(t, before.ID, after.ID, "re-registration issues a new ID")
}

func TestMonitorStacktraceAttribute(t *testing.T) {
	mon, _, _ := setupMonitor(t)

	mon.RecordFailure(errors.New("boom"))

	attr := findAttribute(t, mon, "FailedLatestStacktrace")
	stack, ok := attr.Eval().([]string)
	require.True(t, ok)
	assert.NotEmpty(t, stack)
}
