package meter

import "strings"

// MeterData is the serializable record a Meter owns. It is an open record:
// every field is directly readable and is mutated in place by the owning
// Meter as it moves through its lifecycle.
type MeterData struct {
	// Identity
	SessionUUID string
	Position    uint64
	Category    string
	Operation   string
	Parent      string
	Description string

	// Timing, all 64-bit nanosecond instants from an abstract monotonic
	// source; TimeLimit is a duration in nanoseconds, not an instant.
	CreateTime      int64
	StartTime       int64
	StopTime        int64
	LastCurrentTime int64
	TimeLimit       int64

	// Iterations
	CurrentIteration   uint64
	ExpectedIterations uint64

	// Outcome — at most one of OKPath/RejectPath/FailPath is non-empty
	// after a valid termination.
	OKPath      string
	RejectPath  string
	FailPath    string
	FailMessage string

	// Context, insertion-order preserved for emission. Never nil once
	// MeterData has been constructed or Reset.
	Context *OrderedContext

	// System telemetry, filled by a SystemProbe when enabled (zero
	// otherwise).
	HeapCommitted uint64
	HeapMax       uint64
	HeapUsed      uint64

	NonHeapCommitted uint64
	NonHeapMax       uint64
	NonHeapUsed      uint64

	ObjectPendingFinalizationCount uint64

	ClassLoadingLoaded   uint64
	ClassLoadingTotal    uint64
	ClassLoadingUnloaded uint64

	CompilationTime uint64

	GCCount uint64
	GCTime  uint64

	RuntimeUsedMemory  uint64
	RuntimeMaxMemory   uint64
	RuntimeTotalMemory uint64

	SystemLoad float64
}

// NewMeterData returns a zeroed MeterData with a non-nil Context.
func NewMeterData() *MeterData {
	return &MeterData{Context: NewOrderedContext()}
}

// FullID returns "category/operation#position", omitting "/operation"
// when Operation is empty.
func (d *MeterData) FullID() string {
	var b strings.Builder
	b.WriteString(d.Category)
	if d.Operation != "" {
		b.WriteByte('/')
		b.WriteString(d.Operation)
	}
	b.WriteByte('#')
	writeUint(&b, d.Position)
	return b.String()
}

// Path returns the first non-empty of OKPath, RejectPath, FailPath.
func (d *MeterData) Path() string {
	switch {
	case d.OKPath != "":
		return d.OKPath
	case d.RejectPath != "":
		return d.RejectPath
	case d.FailPath != "":
		return d.FailPath
	default:
		return ""
	}
}

// IsStarted reports whether StartTime has been set.
func (d *MeterData) IsStarted() bool { return d.StartTime > 0 }

// IsStopped reports whether StopTime has been set.
func (d *MeterData) IsStopped() bool { return d.StopTime > 0 }

// IsOK reports whether the Meter stopped successfully: stopped, and either
// OKPath is the discriminator or there is no path at all (anonymous
// success).
func (d *MeterData) IsOK() bool {
	return d.IsStopped() && d.RejectPath == "" && d.FailPath == ""
}

// IsReject reports whether the Meter stopped with a rejection.
func (d *MeterData) IsReject() bool {
	return d.IsStopped() && d.RejectPath != ""
}

// IsFail reports whether the Meter stopped with a failure.
func (d *MeterData) IsFail() bool {
	return d.IsStopped() && d.FailPath != ""
}

// Reset zeroes every field and drops the context mapping, replacing it
// with a fresh empty one.
func (d *MeterData) Reset() {
	*d = MeterData{Context: NewOrderedContext()}
}

func writeUint(b *strings.Builder, v uint64) {
	if v == 0 {
		b.WriteByte('0')
		return
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	b.Write(buf[i:])
}
