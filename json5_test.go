package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() *MeterData {
	d := NewMeterData()
	d.SessionUUID = "abc-123"
	d.Position = 7
	d.Category = "billing"
	d.Operation = "chargeCard"
	d.Parent = "req#1"
	d.Description = "first attempt"
	d.CreateTime = 100
	d.StartTime = 200
	d.StopTime = 500
	d.LastCurrentTime = 500
	d.TimeLimit = 1000
	d.CurrentIteration = 3
	d.ExpectedIterations = 10
	d.OKPath = "ok"
	d.Context.Set("user", "42")
	d.Context.Set("region", "us east")
	d.HeapUsed = 1024
	d.SystemLoad = 0.5
	return d
}

func TestSerializeEnvelopeRoundTrip(t *testing.T) {
	d := sampleData()
	env := SerializeEnvelope(d)
	require.True(t, len(env) > 2)
	assert.Equal(t, byte('{'), env[0])
	assert.Equal(t, byte('}'), env[len(env)-1])

	out := NewMeterData()
	ReadJSON5(out, env)

	assert.Equal(t, d.SessionUUID, out.SessionUUID)
	assert.Equal(t, d.Position, out.Position)
	assert.Equal(t, d.Category, out.Category)
	assert.Equal(t, d.Operation, out.Operation)
	assert.Equal(t, d.Parent, out.Parent)
	assert.Equal(t, d.Description, out.Description)
	assert.Equal(t, d.CreateTime, out.CreateTime)
	assert.Equal(t, d.StartTime, out.StartTime)
	assert.Equal(t, d.StopTime, out.StopTime)
	assert.Equal(t, d.TimeLimit, out.TimeLimit)
	assert.Equal(t, d.CurrentIteration, out.CurrentIteration)
	assert.Equal(t, d.ExpectedIterations, out.ExpectedIterations)
	assert.Equal(t, d.OKPath, out.OKPath)
	assert.Equal(t, d.HeapUsed, out.HeapUsed)
	assert.Equal(t, d.SystemLoad, out.SystemLoad)

	v, ok := out.Context.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "42", v)
	v, ok = out.Context.Get("region")
	assert.True(t, ok)
	assert.Equal(t, "us east", v)
}

func TestWriteJSON5OmitsZeroFields(t *testing.T) {
	d := NewMeterData()
	d.Category = "only-category"
	env := SerializeEnvelope(d)
	assert.Equal(t, "{c:only-category}", env)
}

func TestReadJSON5PartialUpdate(t *testing.T) {
	d := sampleData()
	// An update that only touches category and position must leave
	// everything else untouched.
	ReadJSON5(d, "{c:renamed,x:99}")
	assert.Equal(t, "renamed", d.Category)
	assert.Equal(t, uint64(99), d.Position)
	assert.Equal(t, "chargeCard", d.Operation)
	assert.Equal(t, int64(200), d.StartTime)
}

func TestReadJSON5EmptyObjectIsNoop(t *testing.T) {
	d := sampleData()
	before := *d
	ReadJSON5(d, "{}")
	assert.Equal(t, before.Category, d.Category)
	assert.Equal(t, before.Position, d.Position)
}

func TestReadJSON5UnknownKeysTolerated(t *testing.T) {
	d := NewMeterData()
	ReadJSON5(d, "{c:billing,zz:whatever,n:chargeCard}")
	assert.Equal(t, "billing", d.Category)
	assert.Equal(t, "chargeCard", d.Operation)
}

func TestWriteJSON5QuotesUnsafeTokens(t *testing.T) {
	d := NewMeterData()
	d.Category = "has space"
	d.Operation = "has,comma"
	env := SerializeEnvelope(d)

	out := NewMeterData()
	ReadJSON5(out, env)
	assert.Equal(t, "has space", out.Category)
	assert.Equal(t, "has,comma", out.Operation)
}

func TestWriteJSON5EscapesQuoteAndBackslash(t *testing.T) {
	d := NewMeterData()
	d.Description = `it's a "test" \ path`
	env := SerializeEnvelope(d)

	out := NewMeterData()
	ReadJSON5(out, env)
	assert.Equal(t, d.Description, out.Description)
}

func TestSplitTopLevelRespectsNestedContext(t *testing.T) {
	d := NewMeterData()
	ReadJSON5(d, "{c:billing,ctx:{a:1,b:'two, three'},n:op}")
	assert.Equal(t, "billing", d.Category)
	assert.Equal(t, "op", d.Operation)
	v, ok := d.Context.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, ok = d.Context.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "two, three", v)
}

func TestKeyMappingIsStable(t *testing.T) {
	// The short-key table is frozen: this test exists purely to catch an
	// accidental rename breaking wire compatibility.
	assert.Equal(t, "u", keySessionUUID)
	assert.Equal(t, "x", keyPosition)
	assert.Equal(t, "c", keyCategory)
	assert.Equal(t, "n", keyOperation)
	assert.Equal(t, "ok", keyOKPath)
	assert.Equal(t, "rj", keyRejectPath)
	assert.Equal(t, "fl", keyFailPath)
	assert.Equal(t, "fm", keyFailMessage)
	assert.Equal(t, "ctx", keyContext)
}
