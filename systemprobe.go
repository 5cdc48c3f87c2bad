package meter

// SystemProbe fills MeterData's system-telemetry fields. It is optional: a
// Meter with no SystemProbe configured, or with system telemetry disabled
// in Config, leaves those fields at zero.
type SystemProbe interface {
	Snapshot(d *MeterData)
}
