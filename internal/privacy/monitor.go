// Package privacy implements the lock/privacy state machine: it
// decides, from app-lifecycle signals, when the opaque cover must be
// shown and when the vault must re-lock.
//
// The machine is a pure function of synthetic lifecycle events so it
// can be driven without a UI host. Everything runs synchronously on
// the delivering goroutine: the moment foreground is about to be
// lost is exactly the window a screenshot or app-switcher snapshot
// could capture plaintext, so there is no async gap.
package privacy

import (
	"sync"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/session"
)

// LifecycleEvent is an abstract app-lifecycle signal, independent of
// any particular delivery mechanism.
type LifecycleEvent int

const (
	// WillResignActive fires just before foreground is lost.
	WillResignActive LifecycleEvent = iota

	// DidEnterBackground fires once the app is backgrounded.
	DidEnterBackground

	// DidBecomeActive fires when the app returns to foreground.
	DidBecomeActive
)

func (e LifecycleEvent) String() string {
	switch e {
	case WillResignActive:
		return "will_resign_active"
	case DidEnterBackground:
		return "did_enter_background"
	case DidBecomeActive:
		return "did_become_active"
	default:
		return "unknown"
	}
}

// Locker is the credential manager surface the monitor needs.
type Locker interface {
	Lock()
}

// Options configures the monitor.
type Options struct {
	// PrivacyModeEnabled controls whether the cover is ever shown.
	PrivacyModeEnabled bool

	// RequireForegroundReauthentication locks the vault on loss of
	// foreground, not just covers it.
	RequireForegroundReauthentication bool
}

// Monitor is the lock/privacy state machine.
type Monitor struct {
	mu sync.Mutex

	opts    Options
	locker  Locker
	session *session.Session
	logger  *events.Logger

	// trustedDepth counts nested trusted system modals (e.g. the
	// media picker). While positive, losing foreground is the
	// modal's doing, not the user leaving the app.
	trustedDepth int

	coverVisible bool
}

// NewMonitor creates the state machine.
func NewMonitor(opts Options, locker Locker, sess *session.Session, logger *events.Logger) *Monitor {
	return &Monitor{
		opts:    opts,
		locker:  locker,
		session: sess,
		logger:  logger.WithField("component", "privacy_monitor"),
	}
}

// BeginTrustedModal marks a legitimate system dialog as on screen.
func (m *Monitor) BeginTrustedModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trustedDepth++
}

// EndTrustedModal unwinds one trusted modal. The counter never goes
// negative.
func (m *Monitor) EndTrustedModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trustedDepth > 0 {
		m.trustedDepth--
	}
}

// TrustedModalActive reports whether any trusted modal is on screen.
func (m *Monitor) TrustedModalActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trustedDepth > 0
}

// CoverVisible reports whether the opaque privacy cover is shown.
func (m *Monitor) CoverVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coverVisible
}

// HandleEvent runs one lifecycle transition. It must be called
// synchronously on the signal's delivery. The locker is invoked after
// the monitor's mutex is released, so lock listeners may call back
// into the monitor.
func (m *Monitor) HandleEvent(event LifecycleEvent) {
	m.mu.Lock()
	lock := false

	switch event {
	case WillResignActive:
		lock = m.handleResign()
	case DidEnterBackground:
		// Idempotent with WillResignActive.
		if m.opts.PrivacyModeEnabled && m.trustedDepth == 0 {
			m.showCover()
		}
	case DidBecomeActive:
		// Keep the cover while an unlock prompt is outstanding.
		if m.session.State() != session.Unlocking {
			m.hideCover()
		}
	}
	m.mu.Unlock()

	if lock {
		m.locker.Lock()
	}
}

// handleResign covers first, then reports whether the vault must
// lock. The cover goes up before any other work so nothing sensitive
// is visible by the time the OS snapshots the app.
func (m *Monitor) handleResign() bool {
	if m.trustedDepth > 0 {
		m.logger.Debug("Foreground loss inside trusted modal, ignoring")
		return false
	}

	if m.opts.PrivacyModeEnabled {
		m.showCover()
	}
	return m.opts.RequireForegroundReauthentication
}

func (m *Monitor) showCover() {
	if !m.coverVisible {
		m.coverVisible = true
		m.logger.Debug("Privacy cover shown")
	}
}

func (m *Monitor) hideCover() {
	if m.coverVisible {
		m.coverVisible = false
		m.logger.Debug("Privacy cover hidden")
	}
}
