// Package session holds the single active automation session and its
// per-session state: capabilities, settings, the element cache and the
// last scroll acknowledgment.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// ErrNoSession is returned when no session is active or the requested id
// does not name the active one.
var ErrNoSession = errors.New("no active session")

// Capabilities are the desired capabilities a session was created with.
type Capabilities map[string]any

// AppPackage returns the appPackage capability, or "".
func (c Capabilities) AppPackage() string {
	s, _ := c["appPackage"].(string)
	return s
}

// Session is one automation session.
type Session struct {
	ID           string
	Capabilities Capabilities
	Cache        *element.Cache
	Created      time.Time

	mu           sync.RWMutex
	settings     Settings
	implicitWait time.Duration
	lastScroll   *platform.AccessibilityEvent
}

func (s *Session) AppPackage() string {
	return s.Capabilities.AppPackage()
}

func (s *Session) IdleTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.WaitForIdleTimeout
}

func (s *Session) ScrollTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.ScrollAcknowledgmentTimeout
}

// SelectorTimeout bounds how long a scroll-into-view search keeps swiping.
func (s *Session) SelectorTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.WaitForSelectorTimeout
}

// RecordScroll stores ev as the last scroll acknowledgment.
func (s *Session) RecordScroll(ev platform.AccessibilityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScroll = &ev
}

// LastScroll returns the last recorded scroll acknowledgment.
func (s *Session) LastScroll() (platform.AccessibilityEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastScroll == nil {
		return platform.AccessibilityEvent{}, false
	}
	return *s.lastScroll, true
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.clone()
}

// UpdateSettings applies update atomically.
func (s *Session) UpdateSettings(update map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Apply(update)
}

// ImplicitWait is how long element lookups retry before giving up.
func (s *Session) ImplicitWait() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.implicitWait
}

func (s *Session) SetImplicitWait(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.implicitWait = d
}

// Manager owns the active session. At most one session exists at a time.
type Manager struct {
	mu           sync.RWMutex
	current      *Session
	defaults     Settings
	implicitWait time.Duration
	log          *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaults seeds the settings of new sessions.
func WithDefaults(s Settings) Option {
	return func(m *Manager) { m.defaults = s }
}

// WithImplicitWait sets the initial implicit wait of new sessions.
func WithImplicitWait(d time.Duration) Option {
	return func(m *Manager) { m.implicitWait = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager with no active session.
func NewManager(opts ...Option) *Manager {
	m := &Manager{defaults: DefaultSettings(), log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create starts a new session. An active session is torn down first.
func (m *Manager) Create(caps Capabilities) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.teardownLocked()
	}
	return m.startLocked(caps)
}

// CurrentOrCreate returns the active session, starting one with caps when
// there is none.
func (m *Manager) CurrentOrCreate(caps Capabilities) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current
	}
	return m.startLocked(caps)
}

func (m *Manager) startLocked(caps Capabilities) *Session {
	if caps == nil {
		caps = Capabilities{}
	}
	s := &Session{
		ID:           uuid.NewString(),
		Capabilities: caps,
		Cache:        element.NewCache(),
		Created:      time.Now(),
		settings:     m.defaults.clone(),
		implicitWait: m.implicitWait,
	}
	m.current = s
	m.log.Info("session created", zap.String("session", s.ID), zap.String("app_package", caps.AppPackage()))
	return s
}

// Current returns the active session.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Get returns the active session if its id is id.
func (m *Manager) Get(id string) (*Session, error) {
	s, err := m.Current()
	if err != nil {
		return nil, err
	}
	if s.ID != id {
		return nil, ErrNoSession
	}
	return s, nil
}

// Delete ends the session named id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ID != id {
		return ErrNoSession
	}
	m.teardownLocked()
	return nil
}

// List returns the active session, if any.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return []*Session{m.current}
}

func (m *Manager) teardownLocked() {
	old := m.current
	old.Cache.Clear()
	m.current = nil
	m.log.Info("session deleted", zap.String("session", old.ID), zap.Duration("age", time.Since(old.Created)))
}
