package view

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-aoi/internal/notify"
	"github.com/joeblew999/plat-aoi/internal/sched"
	"github.com/joeblew999/plat-aoi/internal/storage"
)

// fakeLayers records layer calls. installErr is reported to done, right
// away unless hold is set, in which case done waits in pending.
type fakeLayers struct {
	overlay    bool
	basemap    Theme
	installs   int
	installErr error
	hold       bool
	pending    []func(error)
	calls      []string
}

func (f *fakeLayers) InstallOverlay(done func(error)) {
	f.installs++
	f.overlay = true
	f.calls = append(f.calls, "install")
	if f.hold {
		f.pending = append(f.pending, done)
		return
	}
	done(f.installErr)
}

// settle reports the held probe results.
func (f *fakeLayers) settle() {
	pending := f.pending
	f.pending = nil
	for _, done := range pending {
		done(f.installErr)
	}
}

func (f *fakeLayers) RemoveOverlay() bool {
	had := f.overlay
	f.overlay = false
	f.calls = append(f.calls, "remove")
	return had
}

func (f *fakeLayers) SetBasemap(t Theme) {
	f.basemap = t
	f.calls = append(f.calls, "basemap:"+string(t))
}

type fakeFader struct {
	fading bool
	begins int
	ends   int
}

func (f *fakeFader) BeginFade() { f.fading = true; f.begins++ }
func (f *fakeFader) EndFade()   { f.fading = false; f.ends++ }

type fixture struct {
	m      *Machine
	layers *fakeLayers
	fader  *fakeFader
	clock  *sched.Manual
	kv     *storage.Memory
	notes  *notify.Recorder
	alive  bool
}

func newFixture(t *testing.T, initial Mode, installErr error) *fixture {
	t.Helper()
	f := &fixture{
		layers: &fakeLayers{installErr: installErr},
		fader:  &fakeFader{},
		clock:  &sched.Manual{},
		kv:     storage.NewMemory(),
		notes:  &notify.Recorder{},
		alive:  true,
	}
	f.m = New(Config{
		Layers:    f.layers,
		Fader:     f.fader,
		KV:        f.kv,
		Notifier:  f.notes,
		Scheduler: f.clock,
		Alive:     func() bool { return f.alive },
		Initial:   initial,
	})
	return f
}

func TestNew_RestoresTheme(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyTheme, "dark"))

	layers := &fakeLayers{}
	m := New(Config{Layers: layers, Fader: &fakeFader{}, KV: kv, Scheduler: &sched.Manual{}})
	assert.Equal(t, ThemeDark, m.Theme())
	assert.Equal(t, ModeMap, m.Mode())
	assert.Equal(t, ThemeDark, layers.basemap)
	assert.Zero(t, layers.installs)
}

func TestLoadTheme_Fallbacks(t *testing.T) {
	assert.Equal(t, ThemeLight, LoadTheme(nil))

	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyTheme, "sepia"))
	assert.Equal(t, ThemeLight, LoadTheme(kv))
}

func TestNew_BaseModeInstallsOverlay(t *testing.T) {
	f := newFixture(t, ModeBase, nil)
	assert.Equal(t, 1, f.layers.installs)
	assert.True(t, f.layers.overlay)
}

func TestSetViewMode_NoOp(t *testing.T) {
	f := newFixture(t, ModeMap, nil)
	assert.False(t, f.m.SetViewMode(ModeMap))
	assert.Zero(t, f.fader.begins)
	assert.Zero(t, f.clock.Len())
}

func TestSetViewMode_FadesThenSwaps(t *testing.T) {
	f := newFixture(t, ModeMap, nil)

	require.True(t, f.m.SetViewMode(ModeBase))
	assert.Equal(t, ModeBase, f.m.Mode(), "mode changes immediately")
	assert.True(t, f.fader.fading)
	assert.False(t, f.layers.overlay, "swap waits for the fade")

	f.clock.Flush()
	assert.True(t, f.layers.overlay)
	assert.False(t, f.fader.fading)

	require.True(t, f.m.SetViewMode(ModeMap))
	f.clock.Flush()
	assert.False(t, f.layers.overlay)
	assert.Equal(t, 2, f.fader.ends)
}

func TestSetViewMode_RapidToggleSettlesOnLast(t *testing.T) {
	f := newFixture(t, ModeMap, nil)

	f.m.ToggleViewMode() // base
	f.m.ToggleViewMode() // map
	f.m.ToggleViewMode() // base
	assert.Equal(t, 3, f.clock.Len())

	f.clock.Flush()
	assert.Equal(t, ModeBase, f.m.Mode())
	assert.True(t, f.layers.overlay)
	assert.False(t, f.fader.fading)
	assert.Equal(t, 1, f.layers.installs, "only the last toggle swaps")
}

func TestSetViewMode_RapidToggleWarnsOnce(t *testing.T) {
	f := newFixture(t, ModeMap, errors.New("wms down"))

	f.m.ToggleViewMode()
	f.m.ToggleViewMode()
	f.m.ToggleViewMode()
	f.clock.Flush()

	assert.Len(t, f.notes.Items, 1)
}

func TestSetViewMode_FailureAfterSwitchingBackIsQuiet(t *testing.T) {
	f := newFixture(t, ModeMap, errors.New("wms down"))
	f.layers.hold = true

	f.m.SetViewMode(ModeBase)
	f.clock.Flush()
	require.Len(t, f.layers.pending, 1)

	f.m.SetViewMode(ModeMap)
	f.layers.settle()
	f.clock.Flush()

	assert.Empty(t, f.notes.Items)
	assert.False(t, f.layers.overlay)
}

func TestSetViewMode_SupersededProbeIsQuiet(t *testing.T) {
	f := newFixture(t, ModeMap, errors.New("wms down"))
	f.layers.hold = true

	f.m.SetViewMode(ModeBase)
	f.clock.Flush()
	f.m.SetViewMode(ModeMap)
	f.clock.Flush()
	f.m.SetViewMode(ModeBase)
	f.clock.Flush()
	require.Len(t, f.layers.pending, 2)

	f.layers.settle()
	assert.Len(t, f.notes.Items, 1, "only the current install warns")
}

func TestSetViewMode_InstallFailureWarns(t *testing.T) {
	f := newFixture(t, ModeMap, errors.New("wms down"))

	f.m.SetViewMode(ModeBase)
	f.clock.Flush()

	assert.Equal(t, ModeBase, f.m.Mode(), "no rollback on failure")
	last, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)
	assert.Equal(t, "Base imagery could not be loaded", last.Message)
}

func TestSetViewMode_TornDownBeforeTimer(t *testing.T) {
	f := newFixture(t, ModeMap, nil)

	f.m.SetViewMode(ModeBase)
	f.alive = false
	f.clock.Flush()

	assert.False(t, f.layers.overlay)
	assert.Zero(t, f.fader.ends)
}

func TestSetTheme_SwapsAndPersists(t *testing.T) {
	f := newFixture(t, ModeMap, nil)

	assert.False(t, f.m.SetTheme(ThemeLight))
	require.True(t, f.m.SetTheme(ThemeDark))
	assert.Equal(t, ThemeDark, f.layers.basemap)
	assert.True(t, f.fader.fading)

	v, err := f.kv.Get(context.Background(), storage.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	f.clock.Flush()
	assert.False(t, f.fader.fading)

	f.m.ToggleTheme()
	assert.Equal(t, ThemeLight, f.m.Theme())
	assert.Equal(t, ThemeLight, LoadTheme(f.kv))
}

func TestParse(t *testing.T) {
	m, err := ParseMode("base")
	require.NoError(t, err)
	assert.Equal(t, ModeBase, m)
	_, err = ParseMode("satellite")
	assert.Error(t, err)

	th, err := ParseTheme("dark")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)
	_, err = ParseTheme("")
	assert.Error(t, err)
}
