// Package view owns the imagery mode and theme of a viewer and drives
// the fade-masked layer swaps between them.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeblew999/plat-aoi/internal/notify"
	"github.com/joeblew999/plat-aoi/internal/sched"
	"github.com/joeblew999/plat-aoi/internal/storage"
)

// Mode selects between the orthophoto overlay and the street map.
type Mode string

const (
	ModeBase Mode = "base"
	ModeMap  Mode = "map"
)

// Theme selects the basemap tile source.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultFadeDelay masks tile swaps.
const DefaultFadeDelay = 250 * time.Millisecond

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBase, ModeMap:
		return Mode(s), nil
	}
	return "", fmt.Errorf("view: unknown mode %q", s)
}

// ParseTheme validates a theme string.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("view: unknown theme %q", s)
}

// Layers is the map capability the machine swaps.
type Layers interface {
	// InstallOverlay adds the imagery overlay; done reports whether the
	// remote service could be reached. done may run later.
	InstallOverlay(done func(error))
	RemoveOverlay() bool
	SetBasemap(t Theme)
}

// Fader runs the cross-fade around a swap.
type Fader interface {
	BeginFade()
	EndFade()
}

// Config wires a Machine.
type Config struct {
	Layers    Layers
	Fader     Fader
	KV        storage.KV
	Notifier  notify.Notifier
	Scheduler sched.Scheduler
	Alive     func() bool
	FadeDelay time.Duration
	Initial   Mode
}

// Machine is the viewMode × theme state machine. Callers serialize
// access; the machine does no locking of its own.
type Machine struct {
	cfg   Config
	mode  Mode
	theme Theme
	swaps uint64 // bumped per mode transition; older swaps and probes are stale
	log   *slog.Logger
}

// New creates a machine, restoring the last persisted theme.
func New(cfg Config) *Machine {
	if cfg.FadeDelay <= 0 {
		cfg.FadeDelay = DefaultFadeDelay
	}
	if cfg.Initial == "" {
		cfg.Initial = ModeMap
	}
	m := &Machine{
		cfg:  cfg,
		mode: cfg.Initial,
		log:  slog.Default().With("component", "view"),
	}
	m.theme = LoadTheme(cfg.KV)
	cfg.Layers.SetBasemap(m.theme)
	if m.mode == ModeBase {
		m.install(m.swaps)
	}
	return m
}

// LoadTheme reads the persisted theme. Missing or malformed values give
// ThemeLight.
func LoadTheme(kv storage.KV) Theme {
	if kv == nil {
		return ThemeLight
	}
	raw, err := kv.Get(context.Background(), storage.KeyTheme)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("read theme", "err", err)
		}
		return ThemeLight
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return ThemeLight
	}
	return t
}

// Mode returns the current view mode.
func (m *Machine) Mode() Mode { return m.mode }

// Theme returns the current theme.
func (m *Machine) Theme() Theme { return m.theme }

// SetViewMode switches imagery. It reports whether a transition started.
// The mode is updated immediately; the layer swap happens behind the
// fade after the delay.
func (m *Machine) SetViewMode(next Mode) bool {
	if next == m.mode {
		return false
	}
	m.mode = next
	m.swaps++
	gen := m.swaps
	m.cfg.Fader.BeginFade()
	m.after(func() {
		if gen != m.swaps {
			return
		}
		m.swapImagery(gen)
		m.cfg.Fader.EndFade()
	})
	return true
}

// ToggleViewMode flips between base and map.
func (m *Machine) ToggleViewMode() bool {
	if m.mode == ModeBase {
		return m.SetViewMode(ModeMap)
	}
	return m.SetViewMode(ModeBase)
}

// SetTheme switches the basemap and persists the choice.
func (m *Machine) SetTheme(next Theme) bool {
	if next == m.theme {
		return false
	}
	m.theme = next
	m.cfg.Fader.BeginFade()
	m.cfg.Layers.SetBasemap(next)
	m.persistTheme(next)
	m.after(m.cfg.Fader.EndFade)
	return true
}

// ToggleTheme flips between light and dark.
func (m *Machine) ToggleTheme() bool {
	if m.theme == ThemeDark {
		return m.SetTheme(ThemeLight)
	}
	return m.SetTheme(ThemeDark)
}

// swapImagery brings layers in line with the mode at fire time. Only
// the latest transition swaps, so rapid toggles settle on the last
// requested mode with a single install.
func (m *Machine) swapImagery(gen uint64) {
	m.cfg.Layers.RemoveOverlay()
	if m.mode == ModeBase {
		m.install(gen)
	}
}

// install adds the overlay. A failure is reported only while the
// transition that asked for it is still current and the mode is base.
func (m *Machine) install(gen uint64) {
	m.cfg.Layers.InstallOverlay(func(err error) {
		if err == nil {
			return
		}
		if m.cfg.Alive != nil && !m.cfg.Alive() {
			return
		}
		if gen != m.swaps || m.mode != ModeBase {
			m.log.Debug("stale imagery probe", "err", err)
			return
		}
		m.log.Warn("imagery overlay failed", "err", err)
		if m.cfg.Notifier != nil {
			m.cfg.Notifier.Notify(notify.Warning, "Base imagery could not be loaded")
		}
	})
}

func (m *Machine) persistTheme(t Theme) {
	if m.cfg.KV == nil {
		return
	}
	if err := m.cfg.KV.Set(context.Background(), storage.KeyTheme, string(t)); err != nil {
		m.log.Warn("persist theme", "err", err)
	}
}

func (m *Machine) after(fn func()) {
	m.cfg.Scheduler.After(m.cfg.FadeDelay, sched.Guard(m.cfg.Alive, fn))
}
