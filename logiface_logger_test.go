package reactor

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLogifaceEvent implements a minimal subset of logiface.Event, enough
// to drive LogifaceLogger without pulling in a concrete writer backend.
type fakeLogifaceEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields []fakeLogifaceField
}

type fakeLogifaceField struct {
	Key string
	Val any
}

func (e *fakeLogifaceEvent) Level() logiface.Level { return e.level }

func (e *fakeLogifaceEvent) AddField(key string, val any) {
	e.fields = append(e.fields, fakeLogifaceField{Key: key, Val: val})
}

type fakeLogifaceWriter struct {
	buf bytes.Buffer
}

func (w *fakeLogifaceWriter) Write(event *fakeLogifaceEvent) error {
	fmt.Fprintf(&w.buf, "[%s]", event.level.String())
	for _, f := range event.fields {
		fmt.Fprintf(&w.buf, " %s=%v", f.Key, f.Val)
	}
	fmt.Fprintln(&w.buf)
	return nil
}

func newFakeLogifaceLogger(w *fakeLogifaceWriter, level logiface.Level) *logiface.Logger[*fakeLogifaceEvent] {
	factory := logiface.LoggerFactory[*fakeLogifaceEvent]{}
	return factory.New(
		factory.WithEventFactory(logiface.NewEventFactoryFunc(func(level logiface.Level) *fakeLogifaceEvent {
			return &fakeLogifaceEvent{level: level}
		})),
		factory.WithWriter(w),
		factory.WithLevel(level),
	)
}

func TestLogifaceLoggerIsEnabledTracksWrappedLevel(t *testing.T) {
	l := NewLogifaceLogger(newFakeLogifaceLogger(&fakeLogifaceWriter{}, logiface.LevelWarning))
	assert.False(t, l.IsEnabled(LevelInfo))
	assert.True(t, l.IsEnabled(LevelWarn))
	assert.True(t, l.IsEnabled(LevelError))
}

func TestLogifaceLoggerLogWritesFieldsThroughToEvent(t *testing.T) {
	w := &fakeLogifaceWriter{}
	l := NewLogifaceLogger(newFakeLogifaceLogger(w, logiface.LevelDebug))

	l.Log(LogEntry{
		Level:    LevelError,
		Category: "conn",
		LoopName: "loop-0",
		ConnName: "c1",
		Fd:       7,
		Context:  map[string]any{"bytes": 128},
		Err:      errors.New("boom"),
		Message:  "write failed",
	})

	out := w.buf.String()
	require.Contains(t, out, "category=conn")
	require.Contains(t, out, "loop=loop-0")
	require.Contains(t, out, "conn=c1")
	require.Contains(t, out, "fd=7")
	require.Contains(t, out, "bytes=128")
	require.Contains(t, out, "err=boom")
}

func TestLogifaceLoggerLogSkipsDisabledLevels(t *testing.T) {
	w := &fakeLogifaceWriter{}
	l := NewLogifaceLogger(newFakeLogifaceLogger(w, logiface.LevelError))

	l.Log(LogEntry{Level: LevelInfo, Category: "conn", Message: "should be dropped"})

	assert.Empty(t, w.buf.String())
}
