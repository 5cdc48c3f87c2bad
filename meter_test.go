package meter

import (
	"bytes"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useful-toys/gometer/clocksource"
)

type recordedEvent struct {
	level  Level
	marker Marker
	text   string
}

// recordingLogger captures every emitted event for assertion instead of
// writing anywhere, the same role a spy Logger plays in the corpus's own
// tests.
type recordingLogger struct {
	events []recordedEvent
}

func (l *recordingLogger) Log(level Level, marker Marker, text string) {
	l.events = append(l.events, recordedEvent{level: level, marker: marker, text: text})
}

func (l *recordingLogger) markers() []Marker {
	out := make([]Marker, len(l.events))
	for i, e := range l.events {
		out[i] = e.marker
	}
	return out
}

func (l *recordingLogger) count(marker Marker) int {
	n := 0
	for _, e := range l.events {
		if e.marker == marker {
			n++
		}
	}
	return n
}

func newTestMeter(logger *recordingLogger, opts ...Option) (*Meter, *clocksource.Source, *clock.Mock) {
	src, mock := clocksource.NewMock()
	// The mock reads 0 until advanced, and MeterData treats a zero instant
	// as unset; start the clock at 1 ms so timestamps are positive.
	mock.Add(time.Millisecond)
	cfg := NewConfig(WithProgressPeriodMillis(0))
	all := append([]Option{WithLogger(logger), WithTimeSource(src), WithMeterConfig(cfg)}, opts...)
	m := New("billing", "chargeCard", all...)
	return m, src, mock
}

func TestStartEmitsStartPair(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()

	require.Len(t, logger.events, 2)
	assert.Equal(t, MsgStart, logger.events[0].marker)
	assert.Equal(t, DEBUG, logger.events[0].level)
	assert.Equal(t, DataStart, logger.events[1].marker)
	assert.Equal(t, TRACE, logger.events[1].level)
}

func TestFullLifecycleOK(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().M("charging %s", "card-1").Ctx("user", "42").Ok("approved")

	assert.Equal(t, []Marker{MsgStart, DataStart, MsgOK, DataOK}, logger.markers())
	assert.Equal(t, "approved", m.OKPath)
	assert.True(t, m.IsOK())
	assert.Equal(t, "charging card-1", m.Description)
}

func TestRejectClearsOKPath(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Path("tentative").Reject("duplicate")

	assert.Equal(t, "", m.OKPath)
	assert.Equal(t, "duplicate", m.RejectPath)
	assert.True(t, m.IsReject())
	assert.Equal(t, []Marker{MsgStart, DataStart, MsgReject, DataReject}, logger.markers())
}

func TestFailCapturesErrorTypeAndMessage(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	cause := errors.New("card declined")
	m.Start().Fail(cause)

	assert.Equal(t, fullTypeName(cause), m.FailPath)
	assert.Equal(t, "card declined", m.FailMessage)
	assert.True(t, m.IsFail())
	assert.Equal(t, ERROR, logger.events[2].level)
}

func TestPathTentativeOverwrittenByTerminalArg(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Path("first").Path("second").Ok("final")
	assert.Equal(t, "final", m.OKPath)
}

func TestPathTentativeSurvivesAnonymousOK(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Path("tentative").Ok()
	assert.Equal(t, "tentative", m.OKPath)
}

func TestPathIllegalOutsideStarted(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Path("too-early")
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, "", m.OKPath)
}

func TestPathNilIsIllegalNoop(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil
	m.Path(nil)
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, "", m.OKPath)
}

func TestDoubleStartIsInconsistentAndDoesNotMutate(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	firstStart := m.StartTime
	m.Start()

	assert.Equal(t, firstStart, m.StartTime)
	assert.Equal(t, InconsistentStart, logger.events[len(logger.events)-1].marker)
}

func TestTier1TerminationSkippingStart(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Ok("anon")

	assert.Equal(t, []Marker{InconsistentOK, MsgOK, DataOK}, logger.markers())
	assert.True(t, m.IsStarted())
	assert.True(t, m.IsOK())
	assert.Equal(t, m.CreateTime, m.StartTime)
}

func TestDoubleTerminationReplaysOriginalPair(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Ok("first")
	firstOKPath := m.OKPath
	logger.events = nil

	m.Ok("second")

	assert.Equal(t, firstOKPath, m.OKPath)
	assert.Equal(t, []Marker{InconsistentOK, MsgOK, DataOK}, logger.markers())
}

func TestDoubleTerminationAcrossDifferentKinds(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Ok()
	logger.events = nil

	m.Fail(errors.New("too late"))

	assert.True(t, m.IsOK())
	assert.False(t, m.IsFail())
	assert.Equal(t, []Marker{InconsistentFail, MsgOK, DataOK}, logger.markers())
}

func TestTier2OpsIllegalAfterTermination(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Ok()
	logger.events = nil

	m.M("too late")
	m.Ctx("k", "v")
	m.Iterations(5)
	m.LimitMilliseconds(5)

	for _, marker := range logger.markers() {
		assert.Equal(t, Illegal, marker)
	}
	assert.Len(t, logger.events, 4)
}

func TestIterationsRejectsNonPositive(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil

	m.Iterations(0)
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, uint64(0), m.ExpectedIterations)

	logger.events = nil
	m.Iterations(-1)
	assert.Equal(t, []Marker{Illegal}, logger.markers())
}

func TestIncBeforeStartIsInconsistentIncrement(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Inc()
	assert.Equal(t, []Marker{InconsistentIncrement}, logger.markers())
	assert.Equal(t, uint64(0), m.CurrentIteration)
}

func TestIncByRejectsNonPositive(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil

	m.IncBy(0)
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, uint64(0), m.CurrentIteration)
}

func TestIncToRequiresForwardMotion(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().IncTo(5)
	assert.Equal(t, uint64(5), m.CurrentIteration)

	logger.events = nil
	m.IncTo(5)
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, uint64(5), m.CurrentIteration)
}

func TestProgressSuppressedWithoutAdvance(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil

	m.Progress()
	assert.Empty(t, logger.events)
}

func TestProgressEmitsAfterAdvance(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil

	m.IncTo(1).Progress()
	assert.Equal(t, []Marker{MsgProgress, DataProgress}, logger.markers())
}

func TestProgressThrottledByPeriod(t *testing.T) {
	logger := &recordingLogger{}
	cfg := NewConfig(WithProgressPeriodMillis(50))
	src, mock := clocksource.NewMock()
	m := New("billing", "chargeCard", WithLogger(logger), WithTimeSource(src), WithMeterConfig(cfg))
	m.Iterations(15).Start()
	for i := 0; i < 5; i++ {
		m.Inc()
	}
	logger.events = nil

	mock.Add(40 * time.Millisecond)
	m.Progress()
	assert.Empty(t, logger.events, "first progress inside the throttle window must be suppressed")

	mock.Add(20 * time.Millisecond)
	m.Inc()
	m.Progress()
	assert.Equal(t, []Marker{MsgProgress, DataProgress}, logger.markers(), "progress after the throttle window must emit")

	logger.events = nil
	m.Inc()
	m.Progress()
	assert.Empty(t, logger.events, "a subsequent progress within the new throttle window must be suppressed")
}

func TestProgressOutsideStartedIsInconsistent(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Progress()
	assert.Equal(t, []Marker{InconsistentProgress}, logger.markers())
}

func TestSlowOKWhenOverTimeLimit(t *testing.T) {
	logger := &recordingLogger{}
	src, mock := clocksource.NewMock()
	m := New("billing", "chargeCard", WithLogger(logger), WithTimeSource(src))
	m.Start().LimitMilliseconds(10)
	mock.Add(50 * time.Millisecond)
	m.Ok()

	assert.Equal(t, []Marker{MsgStart, DataStart, MsgSlowOK, DataSlowOK}, logger.markers())
}

func TestFastOKUnderTimeLimit(t *testing.T) {
	logger := &recordingLogger{}
	src, mock := clocksource.NewMock()
	m := New("billing", "chargeCard", WithLogger(logger), WithTimeSource(src))
	m.Start().LimitMilliseconds(1000)
	mock.Add(1 * time.Millisecond)
	m.Ok()

	assert.Equal(t, []Marker{MsgStart, DataStart, MsgOK, DataOK}, logger.markers())
}

func TestCloseOnTerminatedMeterIsNoop(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().Ok()
	logger.events = nil

	err := m.Close()
	assert.NoError(t, err)
	assert.Empty(t, logger.events)
}

func TestCloseOnStartedMeterSynthesizesFail(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start()
	logger.events = nil

	err := m.Close()
	assert.NoError(t, err)
	assert.True(t, m.IsFail())
	assert.Equal(t, "try-with-resources", m.FailPath)
	assert.Equal(t, []Marker{MsgFail, DataFail}, logger.markers())
}

func TestCloseOnCreatedMeterPrependsInconsistentClose(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)

	err := m.Close()
	assert.NoError(t, err)
	assert.True(t, m.IsFail())
	assert.Equal(t, []Marker{InconsistentClose, MsgFail, DataFail}, logger.markers())
}

func TestMWithBadFormatClearsDescriptionAndLogsIllegal(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().M("existing")
	logger.events = nil

	m.M("needs %d", "not-a-number")
	assert.Equal(t, []Marker{Illegal}, logger.markers())
	assert.Equal(t, "", m.Description)
}

func TestCtxAnyStoresNullPlaceholder(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	m.Start().CtxAny("maybe", nil)

	v, ok := m.Context.Get("maybe")
	assert.True(t, ok)
	assert.Equal(t, "<null>", v)
}

func TestFluentChainingReturnsSameMeter(t *testing.T) {
	logger := &recordingLogger{}
	m, _, _ := newTestMeter(logger)
	result := m.Start().M("x").Ctx("k", "v").Iterations(1).LimitMilliseconds(1).Ok()
	assert.Same(t, m, result)
}

func TestStartConvenienceConstructor(t *testing.T) {
	logger := &recordingLogger{}
	m := Start("billing", "chargeCard", WithLogger(logger))
	defer m.Close()
	assert.True(t, m.IsStarted())
	assert.Equal(t, []Marker{MsgStart, DataStart}, logger.markers())
}

func TestLoggerLevelGateSuppressesDisabledLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewStdLogger(ERROR)
	m, _, _ := newTestMeter(&recordingLogger{})
	m.logger = logger
	// Start (DEBUG), a fast Ok (INFO) and their envelopes (TRACE) are all
	// below ERROR, so nothing reaches the standard log package.
	m.Start().Ok()
	assert.Empty(t, buf.String())
}
