// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// Manager owns one browser process (a session) and the browsing contexts opened in it.
type Manager struct {
	id        string
	createdAt time.Time
	opts      Options
	launcher  Launcher
	logger    *zap.Logger

	mu       sync.Mutex
	state    State
	engine   Engine
	contexts map[string]*BrowsingContext
}

// NewManager creates a manager in the Uninitialized state. A nil launcher means ChromeLauncher.
func NewManager(opts Options, launcher Launcher, logger *zap.Logger) *Manager {
	if launcher == nil {
		launcher = ChromeLauncher{}
	}
	id := uuid.New().String()
	return &Manager{
		id:        id,
		createdAt: time.Now(),
		opts:      opts.withDefaults(),
		launcher:  launcher,
		logger:    logger.Named("browser_manager").With(zap.String("session_id", id)),
		state:     StateUninitialized,
		contexts:  make(map[string]*BrowsingContext),
	}
}

func (m *Manager) ID() string           { return m.id }
func (m *Manager) CreatedAt() time.Time { return m.createdAt }
func (m *Manager) Options() Options     { return m.opts }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition must be called with mu held.
func (m *Manager) transition(to State) {
	m.logger.Debug("Session state change.", zap.Stringer("from", m.state), zap.Stringer("to", to))
	m.state = to
}

// Start launches the browser. It is only valid once, from Uninitialized.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		state := m.state
		m.mu.Unlock()
		return errs.Resource("browser.start", fmt.Errorf("session is %s", state))
	}
	m.transition(StateLaunching)
	m.mu.Unlock()

	engine, err := m.launcher.Launch(ctx, m.opts, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.transition(StateFaulted)
		m.logger.Error("Browser launch failed.", zap.Error(err))
		return errs.Resource("browser.start", err)
	}
	m.engine = engine
	m.transition(StateReady)
	m.logger.Info("Browser session ready.",
		zap.Int("viewport_width", m.opts.Context.Viewport.Width),
		zap.Int("viewport_height", m.opts.Context.Viewport.Height))
	return nil
}

// NewContext opens an isolated browsing context carrying the session's ContextConfig.
func (m *Manager) NewContext(ctx context.Context) (*BrowsingContext, error) {
	m.mu.Lock()
	if m.state != StateReady {
		state := m.state
		m.mu.Unlock()
		return nil, errs.Resource("browser.new_context", fmt.Errorf("session is %s", state))
	}
	engine := m.engine
	m.mu.Unlock()

	if !engine.Alive() {
		err := errors.New("browser process is gone")
		m.fault(err)
		return nil, errs.Resource("browser.new_context", err)
	}
	backend, err := engine.NewContext(ctx, m.opts.Context)
	if err != nil {
		// A canceled caller says nothing about the browser's health.
		if ctx.Err() == nil {
			m.fault(err)
		}
		return nil, errs.Resource("browser.new_context", err)
	}

	bc := &BrowsingContext{
		id:      uuid.New().String(),
		cfg:     m.opts.Context,
		backend: backend,
		manager: m,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Shutdown may have raced us while the backend was being created.
	if m.state != StateReady {
		_ = backend.Close(Detach(ctx))
		return nil, errs.Resource("browser.new_context", fmt.Errorf("session is %s", m.state))
	}
	m.contexts[bc.id] = bc
	m.logger.Debug("Browsing context created.", zap.String("context_id", bc.id))
	return bc, nil
}

// fault moves a Ready session to Faulted so later scenarios fail fast instead of
// retrying a dead browser. Shutdown still cleans it up.
func (m *Manager) fault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return
	}
	m.transition(StateFaulted)
	m.logger.Error("Browser session faulted.", zap.Error(err))
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.contexts, id)
	m.mu.Unlock()
}

// Shutdown disposes every live browsing context and stops the browser. Calling it
// again after it has completed is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		return nil
	case StateUninitialized:
		m.transition(StateClosed)
		m.mu.Unlock()
		return nil
	case StateLaunching, StateClosing:
		state := m.state
		m.mu.Unlock()
		return errs.Resource("browser.shutdown", fmt.Errorf("session is %s", state))
	}
	m.transition(StateClosing)
	engine := m.engine
	live := make([]*BrowsingContext, 0, len(m.contexts))
	for _, bc := range m.contexts {
		live = append(live, bc)
	}
	m.mu.Unlock()

	cleanupCtx := Detach(ctx)
	var firstErr error
	for _, bc := range live {
		if err := bc.Close(cleanupCtx); err != nil {
			m.logger.Warn("Failed to dispose browsing context.", zap.String("context_id", bc.id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if engine != nil {
		if err := engine.Close(cleanupCtx); err != nil {
			m.logger.Warn("Failed to close browser.", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.mu.Lock()
	m.engine = nil
	m.transition(StateClosed)
	m.mu.Unlock()

	m.logger.Info("Browser session shut down.", zap.Int("contexts_disposed", len(live)))
	if firstErr != nil {
		return errs.Resource("browser.shutdown", firstErr)
	}
	return nil
}
