// Package meter implements a structured operation-timing and tracing
// primitive: a single Meter tracks one operation's lifecycle from creation
// through an optional start to exactly one terminal outcome (ok, reject, or
// fail), emitting a human-readable line and a machine-readable JSON5
// envelope at each transition.
//
// A Meter is never shared across goroutines concurrently; each call site
// owns the Meter it creates (or retrieves via CurrentMeter) until it
// terminates it. Misuse — calling an operation out of order, passing a nil
// cause, double-terminating — never panics and never returns an error: it
// is logged as a diagnostic (ILLEGAL or one of the INCONSISTENT_* markers)
// and the Meter is left in the most sensible state it can reach.
package meter

import (
	"fmt"
	"io"
	"strings"
	"time"
)

type meterState int

const (
	stateCreated meterState = iota
	stateStarted
	stateStoppedOK
	stateStoppedRejected
	stateStoppedFailed
)

type terminationKind int

const (
	kindOK terminationKind = iota
	kindReject
	kindFail
)

func (k terminationKind) inconsistentMarker() Marker {
	switch k {
	case kindOK:
		return InconsistentOK
	case kindReject:
		return InconsistentReject
	default:
		return InconsistentFail
	}
}

// Meter tracks one operation's lifecycle from creation through an optional
// start to a terminal outcome. Every setter returns the Meter itself for
// fluent chaining.
type Meter struct {
	MeterData

	logger  Logger
	time    TimeSource
	probe   SystemProbe
	config  *Config
	session *SessionConfig

	state meterState

	lastProgressTime int64
	lastProgressIter uint64

	terminalLevel      Level
	terminalMsgMarker  Marker
	terminalDataMarker Marker
	terminalMsgText    string
}

// Option configures a Meter at construction time.
type Option func(*Meter)

var _ io.Closer = (*Meter)(nil)

// WithLogger overrides the Logger a Meter writes to; the default is a
// StdLogger at INFO.
func WithLogger(l Logger) Option { return func(m *Meter) { m.logger = l } }

// WithTimeSource overrides the TimeSource; the default wraps time.Now via
// time.Since's monotonic reading.
func WithTimeSource(t TimeSource) Option { return func(m *Meter) { m.time = t } }

// WithSystemProbe supplies a SystemProbe. Without one, a Meter with
// telemetry collection enabled simply leaves the telemetry fields at zero.
func WithSystemProbe(p SystemProbe) Option { return func(m *Meter) { m.probe = p } }

// WithMeterConfig overrides the Config a Meter reads progress throttling,
// telemetry, and envelope decoration from; the default is DefaultConfig().
func WithMeterConfig(c *Config) Option { return func(m *Meter) { m.config = c } }

// WithSession overrides the SessionConfig a Meter stamps its identity from;
// the default is DefaultSession().
func WithSession(s *SessionConfig) Option { return func(m *Meter) { m.session = s } }

// WithParent sets the parent identity field, overriding the fullID New
// would otherwise default it to. Used when a Meter represents a
// sub-operation of another.
func WithParent(parent string) Option { return func(m *Meter) { m.Parent = parent } }

// New returns a Meter in the Created state, stamped with an identity from
// the configured (or default) SessionConfig. Unless WithParent overrides it,
// Parent defaults to the fullID of whatever Meter is current on the calling
// goroutine, so a child Meter created while an outer one is active links
// itself to that outer operation without the caller threading anything
// explicitly.
func New(category, operation string, opts ...Option) *Meter {
	m := newRaw(category, operation, opts...)
	if m.Parent == "" {
		if cur := CurrentMeter(); cur.Category != unknownCategory {
			m.Parent = cur.fullID()
		}
	}
	return m
}

func newRaw(category, operation string, opts ...Option) *Meter {
	m := &Meter{
		MeterData: *NewMeterData(),
		logger:    NewStdLogger(INFO),
		time:      NewSystemTimeSource(),
		config:    DefaultConfig(),
		session:   DefaultSession(),
		state:     stateCreated,
	}
	m.Category = category
	m.Operation = operation
	for _, opt := range opts {
		opt(m)
	}
	m.SessionUUID = m.session.UUID()
	m.Position = m.session.NextPosition()
	m.CreateTime = m.time.NowNanos()
	m.LastCurrentTime = m.CreateTime
	return m
}

// Start is a convenience that constructs a Meter and immediately starts it.
func Start(category, operation string, opts ...Option) *Meter {
	return New(category, operation, opts...).Start()
}

func (m *Meter) isStopped() bool {
	return m.state == stateStoppedOK || m.state == stateStoppedRejected || m.state == stateStoppedFailed
}

// Start transitions Created → Started. Calling it again, or after
// termination, leaves the Meter untouched and logs INCONSISTENT_START; the
// second call never mutates StartTime.
func (m *Meter) Start() *Meter {
	if m.state != stateCreated {
		m.emit(ERROR, InconsistentStart, m.textInconsistent("start"))
		return m
	}
	m.StartTime = m.time.NowNanos()
	m.LastCurrentTime = m.StartTime
	m.lastProgressTime = m.StartTime
	m.lastProgressIter = 0
	m.state = stateStarted
	pushCurrent(m)
	m.emit(DEBUG, MsgStart, m.textStart())
	m.emitEnvelope(DataStart)
	return m
}

// M sets the human-readable description attached to every subsequent
// emission. An invalid format string (one fmt flags as malformed: a missing
// or extra argument, or a verb of the wrong type) clears the description
// and logs ILLEGAL instead of embedding fmt's "%!verb(...)" markers in
// output.
func (m *Meter) M(format string, args ...any) *Meter {
	if m.isStopped() {
		m.emit(ERROR, Illegal, m.textIllegal("m: called after termination"))
		return m
	}
	text := sprintfChecked(format, args...)
	if text == "" && format != "" {
		m.Description = ""
		m.emit(ERROR, Illegal, m.textIllegal("m: invalid format string"))
		return m
	}
	m.Description = text
	return m
}

// Ctx records a context key/value pair, both always-present Go strings.
func (m *Meter) Ctx(key, value string) *Meter {
	if m.isStopped() {
		m.emit(ERROR, Illegal, m.textIllegal("ctx: called after termination"))
		return m
	}
	m.Context.Set(key, value)
	return m
}

// CtxAny records a context value that may be nil (stored as the literal
// "<null>"), for callers passing values of unknown-nilability type instead
// of a plain string.
func (m *Meter) CtxAny(key string, value any) *Meter {
	if m.isStopped() {
		m.emit(ERROR, Illegal, m.textIllegal("ctx: called after termination"))
		return m
	}
	v := nullPlaceholder
	if value != nil {
		v = sprintfChecked("%v", value)
	}
	m.Context.Set(key, v)
	return m
}

// Iterations sets the expected iteration count for a progress-tracked
// operation. n must be at least 1.
func (m *Meter) Iterations(n int64) *Meter {
	if n < 1 {
		m.emit(ERROR, Illegal, m.textIllegal("iterations: n must be >= 1"))
		return m
	}
	if m.isStopped() {
		m.emit(ERROR, Illegal, m.textIllegal("iterations: called after termination"))
		return m
	}
	m.ExpectedIterations = uint64(n)
	return m
}

// LimitMilliseconds sets the slow-operation threshold. n must be at least
// 1; ok()/progress() compare elapsed time against this limit to decide
// whether to emit the "slow" variant of their marker.
func (m *Meter) LimitMilliseconds(n int64) *Meter {
	if n < 1 {
		m.emit(ERROR, Illegal, m.textIllegal("limitMilliseconds: n must be >= 1"))
		return m
	}
	if m.isStopped() {
		m.emit(ERROR, Illegal, m.textIllegal("limitMilliseconds: called after termination"))
		return m
	}
	m.TimeLimit = n * int64(time.Millisecond)
	return m
}

// Path pre-sets the eventual OK path while the Meter is Started. It is a
// tentative write: a terminal Ok(path) call overwrites it, and Reject/Fail
// discard it entirely. Legal only in the Started state.
func (m *Meter) Path(v any) *Meter {
	value, _, illegal := resolveCause(v, false)
	if illegal {
		m.emit(ERROR, Illegal, m.textIllegal("path: nil value"))
		return m
	}
	if m.state != stateStarted {
		m.emit(ERROR, Illegal, m.textIllegal("path: requires Started state"))
		return m
	}
	m.OKPath = value
	return m
}

// Inc advances the current iteration count by one, equivalent to IncBy(1).
func (m *Meter) Inc() *Meter { return m.IncBy(1) }

// IncBy advances the current iteration count by n, which must be positive.
func (m *Meter) IncBy(n int64) *Meter {
	if m.state != stateStarted {
		m.emit(ERROR, InconsistentIncrement, m.textInconsistent("incBy"))
		return m
	}
	if n <= 0 {
		m.emit(ERROR, Illegal, m.textIllegal("incBy: n must be > 0"))
		return m
	}
	m.CurrentIteration += uint64(n)
	return m
}

// IncTo sets the current iteration count to n, which must move it forward.
func (m *Meter) IncTo(n uint64) *Meter {
	if m.state != stateStarted {
		m.emit(ERROR, InconsistentIncrement, m.textInconsistent("incTo"))
		return m
	}
	if n <= m.CurrentIteration {
		m.emit(ERROR, Illegal, m.textIllegal("incTo: n must be greater than the current iteration"))
		return m
	}
	m.CurrentIteration = n
	return m
}

// Progress conditionally emits a progress event: legal only while Started,
// suppressed (silently, not an error) unless the iteration count has
// advanced since the previous emission and the configured throttle period
// has elapsed.
func (m *Meter) Progress() *Meter {
	if m.state != stateStarted {
		m.emit(ERROR, InconsistentProgress, m.textInconsistent("progress"))
		return m
	}
	now := m.time.NowNanos()
	advanced := m.CurrentIteration > m.lastProgressIter
	periodNanos := m.config.ProgressPeriodMillis() * int64(time.Millisecond)
	throttled := periodNanos > 0 && now-m.lastProgressTime < periodNanos
	if !advanced || throttled {
		return m
	}
	m.lastProgressTime = now
	m.lastProgressIter = m.CurrentIteration
	m.LastCurrentTime = now
	if m.config.CollectSystemTelemetry() && m.probe != nil {
		m.probe.Snapshot(&m.MeterData)
	}
	slow := m.TimeLimit > 0 && now-m.StartTime > m.TimeLimit
	dataMarker := DataProgress
	if slow {
		dataMarker = DataSlowProgress
	}
	m.emit(INFO, MsgProgress, m.textProgress(slow))
	m.emitEnvelope(dataMarker)
	return m
}

// Ok terminates the Meter successfully. An optional path argument
// overwrites any tentative path set via Path; omitting it keeps whatever
// tentative path (if any) is already recorded.
func (m *Meter) Ok(path ...any) *Meter {
	return m.terminate(kindOK, InconsistentOK, path...)
}

// Reject terminates the Meter as a rejection: the operation was refused
// before doing its work. cause is coerced the same way Path's is (string
// verbatim, error's simple type name, fmt.Stringer, or %v fallback). A nil
// cause logs ILLEGAL and leaves RejectPath unset, but the transition still
// completes.
func (m *Meter) Reject(cause any) *Meter {
	return m.terminate(kindReject, InconsistentReject, cause)
}

// Fail terminates the Meter as a failure. An error cause contributes both
// its fully-qualified type name (to FailPath) and its message (to
// FailMessage); other coercions only ever populate FailPath. A nil cause
// logs ILLEGAL and leaves FailPath/FailMessage unset, but the transition
// still completes.
func (m *Meter) Fail(cause any) *Meter {
	return m.terminate(kindFail, InconsistentFail, cause)
}

// Close implements io.Closer as a try-with-resources safety net: a Meter
// that is still Created or Started when Close is called is synthesized
// into a Fail("try-with-resources"). A Meter already terminated is
// untouched: Close is then a pure no-op, matching normal
// "defer meter.Close()" usage after an explicit termination.
func (m *Meter) Close() error {
	switch m.state {
	case stateStoppedOK, stateStoppedRejected, stateStoppedFailed:
		return nil
	default:
		m.terminate(kindFail, InconsistentClose, "try-with-resources")
		return nil
	}
}

// terminate is the single implementation behind Ok/Reject/Fail/Close.
// neverStartedMarker is the diagnostic prepended when the Meter never left
// Created (InconsistentOK/Reject/Fail for a direct terminal call skipping
// start(), InconsistentClose specifically for Close's safety net).
func (m *Meter) terminate(kind terminationKind, neverStartedMarker Marker, args ...any) *Meter {
	if m.isStopped() {
		m.emit(ERROR, kind.inconsistentMarker(), m.textInconsistent(terminationName(kind)))
		m.replayTerminal()
		return m
	}

	var value, message string
	var illegal bool
	if len(args) > 0 {
		value, message, illegal = resolveCause(args[0], kind == kindFail)
	}
	if illegal {
		m.emit(ERROR, Illegal, m.textIllegal(terminationName(kind)+": nil cause"))
	}

	neverStarted := m.state == stateCreated
	if neverStarted {
		m.emit(ERROR, neverStartedMarker, m.textInconsistent(terminationName(kind)))
		m.StartTime = m.CreateTime
		m.LastCurrentTime = m.StartTime
	}

	switch kind {
	case kindOK:
		if len(args) > 0 && !illegal {
			m.OKPath = value
		}
		m.RejectPath = ""
		m.FailPath = ""
		m.FailMessage = ""
	case kindReject:
		m.OKPath = ""
		m.FailPath = ""
		m.FailMessage = ""
		if !illegal {
			m.RejectPath = value
		}
	case kindFail:
		m.OKPath = ""
		m.RejectPath = ""
		if !illegal {
			m.FailPath = value
			m.FailMessage = message
		}
	}

	m.StopTime = m.time.NowNanos()
	m.LastCurrentTime = m.StopTime
	if m.config.CollectSystemTelemetry() && m.probe != nil {
		m.probe.Snapshot(&m.MeterData)
	}

	slow := kind == kindOK && m.TimeLimit > 0 && m.StopTime-m.StartTime > m.TimeLimit

	var level Level
	var msgMarker, dataMarker Marker
	var text string
	switch {
	case kind == kindOK && slow:
		level, msgMarker, dataMarker, text = WARN, MsgSlowOK, DataSlowOK, m.textOK(true)
	case kind == kindOK:
		level, msgMarker, dataMarker, text = INFO, MsgOK, DataOK, m.textOK(false)
	case kind == kindReject:
		level, msgMarker, dataMarker, text = INFO, MsgReject, DataReject, m.textReject()
	default:
		level, msgMarker, dataMarker, text = ERROR, MsgFail, DataFail, m.textFail()
	}

	switch kind {
	case kindOK:
		m.state = stateStoppedOK
	case kindReject:
		m.state = stateStoppedRejected
	case kindFail:
		m.state = stateStoppedFailed
	}

	m.terminalLevel = level
	m.terminalMsgMarker = msgMarker
	m.terminalDataMarker = dataMarker
	m.terminalMsgText = text

	popCurrent(m)
	m.emit(level, msgMarker, text)
	m.emitEnvelope(dataMarker)
	return m
}

// replayTerminal re-emits the original termination pair for a redundant
// second Ok/Reject/Fail call, without mutating any already-frozen
// field: the first termination wins.
func (m *Meter) replayTerminal() {
	m.emit(m.terminalLevel, m.terminalMsgMarker, m.terminalMsgText)
	m.emitEnvelope(m.terminalDataMarker)
}

func terminationName(kind terminationKind) string {
	switch kind {
	case kindOK:
		return "ok"
	case kindReject:
		return "reject"
	default:
		return "fail"
	}
}

// sprintfChecked behaves like fmt.Sprintf but returns "" if the result
// contains fmt's own malformed-verb marker, letting callers distinguish a
// genuine format error from legitimate output. A legitimately empty format
// string still yields "", which callers must special-case themselves.
func sprintfChecked(format string, args ...any) string {
	text := fmt.Sprintf(format, args...)
	if strings.Contains(text, "%!") {
		return ""
	}
	return text
}
