package meter

import "fmt"

// emit writes a human-readable line through the Logger, honoring its
// LevelEnabler gate. The text is already formatted by the caller when the
// gate is checked; only the Logger call is skipped for disabled levels.
func (m *Meter) emit(level Level, marker Marker, text string) {
	if m.logger == nil || !isEnabled(m.logger, level) {
		return
	}
	m.logger.Log(level, marker, text)
}

// emitEnvelope writes the JSON5 machine-readable form at TRACE, wrapped in
// the configured data prefix/suffix.
func (m *Meter) emitEnvelope(marker Marker) {
	if m.logger == nil || !isEnabled(m.logger, TRACE) {
		return
	}
	prefix, suffix := m.config.DataEnvelope()
	m.logger.Log(TRACE, marker, prefix+SerializeEnvelope(&m.MeterData)+suffix)
}

func (m *Meter) fullID() string {
	return m.MeterData.FullID()
}

func (m *Meter) describeSuffix() string {
	if m.Description == "" {
		return ""
	}
	return ": " + m.Description
}

func (m *Meter) textStart() string {
	return fmt.Sprintf("%s: start%s", m.fullID(), m.describeSuffix())
}

func (m *Meter) textOK(slow bool) string {
	elapsed := formatDuration(m.StopTime - m.StartTime)
	if slow {
		return fmt.Sprintf("%s: OK (slow, %s)%s", m.fullID(), elapsed, m.describeSuffix())
	}
	return fmt.Sprintf("%s: OK (%s)%s", m.fullID(), elapsed, m.describeSuffix())
}

func (m *Meter) textReject() string {
	elapsed := formatDuration(m.StopTime - m.StartTime)
	path := m.RejectPath
	if path == "" {
		path = "rejected"
	}
	return fmt.Sprintf("%s: reject %s (%s)%s", m.fullID(), path, elapsed, m.describeSuffix())
}

func (m *Meter) textFail() string {
	elapsed := formatDuration(m.StopTime - m.StartTime)
	path := m.FailPath
	if path == "" {
		path = "failure"
	}
	msg := path
	if m.FailMessage != "" {
		msg = path + ": " + m.FailMessage
	}
	return fmt.Sprintf("%s: fail %s (%s)%s", m.fullID(), msg, elapsed, m.describeSuffix())
}

func (m *Meter) textProgress(slow bool) string {
	elapsed := formatDuration(m.LastCurrentTime - m.StartTime)
	if m.ExpectedIterations > 0 {
		if slow {
			return fmt.Sprintf("%s: progress %d/%d (slow, %s)%s", m.fullID(), m.CurrentIteration, m.ExpectedIterations, elapsed, m.describeSuffix())
		}
		return fmt.Sprintf("%s: progress %d/%d (%s)%s", m.fullID(), m.CurrentIteration, m.ExpectedIterations, elapsed, m.describeSuffix())
	}
	if slow {
		return fmt.Sprintf("%s: progress %d (slow, %s)%s", m.fullID(), m.CurrentIteration, elapsed, m.describeSuffix())
	}
	return fmt.Sprintf("%s: progress %d (%s)%s", m.fullID(), m.CurrentIteration, elapsed, m.describeSuffix())
}

func (m *Meter) textInconsistent(what string) string {
	return fmt.Sprintf("%s: inconsistent %s", m.fullID(), what)
}

func (m *Meter) textIllegal(what string) string {
	return fmt.Sprintf("%s: illegal %s", m.fullID(), what)
}
