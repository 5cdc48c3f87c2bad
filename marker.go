package meter

// Marker is an opaque tag attached to every emitted log event. Consumers
// route and filter on the marker name, never on the human-readable text.
type Marker string

// The fixed marker set. MSG_* markers carry the human-readable line; DATA_*
// markers carry the serialized MeterData envelope; INCONSISTENT_*/ILLEGAL
// are diagnostics for misuse that the Meter must log but never raise to the
// caller.
const (
	MsgStart       Marker = "MSG_START"
	MsgOK          Marker = "MSG_OK"
	MsgSlowOK      Marker = "MSG_SLOW_OK"
	MsgReject      Marker = "MSG_REJECT"
	MsgFail        Marker = "MSG_FAIL"
	MsgProgress    Marker = "MSG_PROGRESS"

	DataStart       Marker = "DATA_START"
	DataOK          Marker = "DATA_OK"
	DataSlowOK      Marker = "DATA_SLOW_OK"
	DataReject      Marker = "DATA_REJECT"
	DataFail        Marker = "DATA_FAIL"
	DataProgress    Marker = "DATA_PROGRESS"
	DataSlowProgress Marker = "DATA_SLOW_PROGRESS"

	Illegal Marker = "ILLEGAL"

	InconsistentOK        Marker = "INCONSISTENT_OK"
	InconsistentReject    Marker = "INCONSISTENT_REJECT"
	InconsistentFail      Marker = "INCONSISTENT_FAIL"
	InconsistentStart     Marker = "INCONSISTENT_START"
	InconsistentClose     Marker = "INCONSISTENT_CLOSE"
	InconsistentIncrement Marker = "INCONSISTENT_INCREMENT"
	InconsistentProgress  Marker = "INCONSISTENT_PROGRESS"
)
