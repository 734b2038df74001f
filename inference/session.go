package inference

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State is a lifecycle phase of the managed session.
type State int32

const (
	// StateUninitialized means no load has been attempted yet.
	StateUninitialized State = iota
	// StateLoading means a load attempt is in flight.
	StateLoading
	// StateReady means the session is loaded and runnable.
	StateReady
	// StateFailed means the last load attempt failed; a fresh attempt may
	// follow, Failed is not terminal.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrModelNotReady reports an inference request against a session that is
// not in StateReady.
var ErrModelNotReady = errors.New("model session is not ready")

// InitError reports a failed model load and carries the underlying cause.
type InitError struct {
	ModelPath string
	Cause     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing model %s: %v", e.ModelPath, e.Cause)
}

func (e *InitError) Unwrap() error { return e.Cause }

// Manager owns the lifecycle of exactly one loaded session: initialize
// once, reinitialize on fatal failure. It never retries on its own; the
// host applies the restart escalation.
type Manager struct {
	engine Engine

	mu          sync.Mutex
	state       State
	session     SessionHandle
	outputNames []string
	loading     chan struct{} // closed when the in-flight attempt settles
	loadErr     error
}

// NewManager creates a manager backed by the given engine.
func NewManager(engine Engine) *Manager {
	return &Manager{engine: engine}
}

// Initialize transitions Uninitialized/Failed to Loading and loads the
// model. A call made while another load is in flight awaits that attempt
// instead of starting a second one, so concurrent install-time and
// startup-time triggers coalesce into a single engine load and observe the
// same terminal state. A call against a Ready session is a no-op.
//
// Arguments:
//   - modelPath: Path to the model asset.
//   - opts: Session options forwarded to the engine.
//
// Returns:
//   - error: A *InitError if the load fails.
func (m *Manager) Initialize(modelPath string, opts SessionOptions) error {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return nil
	case StateLoading:
		done := m.loading
		m.mu.Unlock()
		<-done
		m.mu.Lock()
		err := m.loadErr
		m.mu.Unlock()
		return err
	}

	m.state = StateLoading
	m.loading = make(chan struct{})
	done := m.loading
	m.mu.Unlock()

	session, err := m.engine.Load(modelPath, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(done)

	if err != nil {
		m.state = StateFailed
		m.loadErr = &InitError{ModelPath: modelPath, Cause: err}
		return m.loadErr
	}

	m.state = StateReady
	m.session = session
	m.outputNames = session.OutputNames()
	m.loadErr = nil
	return nil
}

// Session returns the active session handle.
//
// Returns:
//   - SessionHandle: The handle, when the manager is Ready.
//   - error: ErrModelNotReady for any other state.
func (m *Manager) Session() (SessionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return nil, errors.Wrapf(ErrModelNotReady, "state %s", m.state)
	}
	return m.session, nil
}

// State reports the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OutputNames returns the output names recorded at initialization, or nil
// unless the manager is Ready.
func (m *Manager) OutputNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return nil
	}
	names := make([]string, len(m.outputNames))
	copy(names, m.outputNames)
	return names
}

// Reload tears down the active session, if any, and loads the model again
// under the same coalescing discipline as Initialize.
func (m *Manager) Reload(modelPath string, opts SessionOptions) error {
	m.mu.Lock()
	if m.state == StateLoading {
		done := m.loading
		m.mu.Unlock()
		<-done
		m.mu.Lock()
		err := m.loadErr
		m.mu.Unlock()
		return err
	}
	if m.session != nil {
		// Best effort: a session that fails to close is abandoned either way.
		_ = m.session.Close()
		m.session = nil
		m.outputNames = nil
	}
	m.state = StateUninitialized
	m.mu.Unlock()

	return m.Initialize(modelPath, opts)
}

// Close releases the session and returns the manager to Uninitialized.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Close()
		m.session = nil
		m.outputNames = nil
	}
	m.state = StateUninitialized
	m.loadErr = nil
	return err
}
