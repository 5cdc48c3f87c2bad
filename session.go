package meter

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionConfig holds a single UUID stamped on every MeterData created
// during this process's lifetime, plus the monotonic position counter that
// numbers them.
type SessionConfig struct {
	uuid     atomic.Value // string
	position atomic.Uint64
}

// NewSessionConfig returns a SessionConfig with a freshly generated UUID.
func NewSessionConfig() *SessionConfig {
	s := &SessionConfig{}
	s.uuid.Store(uuid.New().String())
	return s
}

// UUID returns the session's identifier.
func (s *SessionConfig) UUID() string { return s.uuid.Load().(string) }

// SetUUID overrides the session identifier, used by tests that need a
// reproducible value.
func (s *SessionConfig) SetUUID(id string) { s.uuid.Store(id) }

// NextPosition returns the next monotonically increasing position, the
// "position" identity field stamped on each new MeterData.
func (s *SessionConfig) NextPosition() uint64 { return s.position.Add(1) }

// ResetForTest regenerates the UUID and resets the position counter to
// zero, giving a test a clean, isolated session identity to assert against.
func (s *SessionConfig) ResetForTest() {
	s.uuid.Store(uuid.New().String())
	s.position.Store(0)
}

// globalSession is the process-wide SessionConfig.
var globalSession = NewSessionConfig()

// DefaultSession returns the process-wide SessionConfig.
func DefaultSession() *SessionConfig { return globalSession }
