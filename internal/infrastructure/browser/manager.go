// Package browser manages the headless Chrome lifecycle behind the
// session port: lazy launch via rod, stealth page creation, restart on
// connection failure, cleanup on close.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"CineScanner/internal/ports"
)

var _ ports.Browser = (*Manager)(nil)

// Config configures the browser manager.
type Config struct {
	// Headless disables the visible browser window. Default: true.
	Headless bool

	// RestartAttempts bounds relaunches after a dead connection. Default: 3.
	RestartAttempts int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RestartAttempts <= 0 {
		c.RestartAttempts = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process and hands out stealth pages as
// sessions. Chrome is launched on first use, not at construction.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Chrome starts lazily on OpenSession.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// OpenSession returns a new isolated page. A failed page creation
// triggers a browser restart before the next attempt.
func (m *Manager) OpenSession(ctx context.Context) (ports.BrowserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.RestartAttempts; attempt++ {
		if m.browser == nil {
			if err := m.launchLocked(); err != nil {
				lastErr = err
				continue
			}
		}
		page, err := stealth.Page(m.browser)
		if err == nil {
			return &session{page: page, log: m.cfg.Logger}, nil
		}
		lastErr = err
		m.cfg.Logger.Warn("browser: page creation failed, restarting",
			"attempt", attempt, "error", err)
		m.cleanupLocked()
	}
	return nil, fmt.Errorf("browser: open session: %w", lastErr)
}

// Close shuts Chrome down and releases the launcher's user data dir.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanupLocked()
	return nil
}

func (m *Manager) launchLocked() error {
	l := launcher.New().
		Headless(m.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")

	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("browser: connect: %w", err)
	}

	m.lnch = l
	m.browser = b
	m.cfg.Logger.Info("browser: launched chrome", "headless", m.cfg.Headless)
	return nil
}

func (m *Manager) cleanupLocked() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
