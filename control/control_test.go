package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dgop/config"
	"dgop/overlay"
	"dgop/scalar"
	"dgop/scale"
	"dgop/theme"
	"dgop/viewer"
)

func atomLine(name, res, chain string, seq int, b string) string {
	return fmt.Sprintf("ATOM  %5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6s          %2s",
		1, name, res, chain, seq, 1.0, 2.0, 3.0, 1.0, b, name[:1])
}

var pdbText = strings.Join([]string{
	atomLine("N", "ALA", "A", 1, "10.00"),
	atomLine("CA", "ALA", "A", 1, "10.00"),
	atomLine("CA", "PRO", "A", 2, "30.00"),
	atomLine("CA", "GLY", "A", 3, "0.00"),
	atomLine("CA", "SER", "A", 4, "nan"),
	atomLine("CA", "LEU", "A", 5, "23.00"),
}, "\n")

var (
	keyALA = scalar.ResidueKey{Chain: "A", Name: "ALA", Seq: 1}
	keyLEU = scalar.ResidueKey{Chain: "A", Name: "LEU", Seq: 5}
)

// recorder records every theme application.
type recorder struct {
	structures []*viewer.Structure
	applied    []string
	fail       error
}

func (r *recorder) Structures() []*viewer.Structure { return r.structures }

func (r *recorder) UpdateRepresentationsTheme(_ context.Context, _ []*viewer.Component, name string) error {
	r.applied = append(r.applied, name)
	return r.fail
}

func newController(t *testing.T, text string, mode scale.Mode) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{structures: []*viewer.Structure{{Name: "s"}}}
	a := overlay.New(mode, theme.DefaultPalette.Fallback)
	c := NewController(rec, scalar.Extract(text), mode, theme.DefaultPalette, a, "note")
	return c, rec
}

func TestControllerInitialState(t *testing.T) {
	c, _ := newController(t, pdbText, scale.OneSided)
	// PRO's 30 counts toward the range even though it renders gray.
	assert.Equal(t, scale.Range{Min: 0, Max: 30}, c.Range())
	assert.Equal(t, c.Range(), c.Original())
	v := c.View()
	assert.Equal(t, "idle", v.State)
	assert.False(t, v.Legend.Visible)
	assert.False(t, v.Panel.Visible)
	assert.Equal(t, "30", v.Panel.MaxInput)
	assert.Equal(t, "0", v.Panel.MinInput)
	assert.Len(t, c.Colors(), 5)
}

func TestControllerInactiveUntilActivated(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	assert.ErrorIs(t, c.Input("0", "10"), ErrInactive)
	assert.ErrorIs(t, c.Apply(context.Background()), ErrInactive)
	assert.ErrorIs(t, c.Reset(context.Background()), ErrInactive)
	c.Focus()
	assert.Equal(t, "idle", c.View().State)
	assert.Empty(t, rec.applied)
}

func TestActivateShowsLegend(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	require.True(t, c.Activate(context.Background(), rec.structures[0]))
	assert.Equal(t, []string{overlay.ThemeName}, rec.applied)
	v := c.View()
	assert.True(t, v.Legend.Visible)
	assert.True(t, v.Panel.Visible)
	assert.Equal(t, "ΔGop (kJ/mol)", v.Legend.Title)
	assert.Equal(t, "linear-gradient(to right, #FFFFFF, #F6851F)", v.Legend.Gradient)
	assert.Equal(t, "0", v.Legend.Min)
	assert.Equal(t, "30", v.Legend.Max)
	assert.Equal(t, "note", v.Legend.Note)
}

func TestActivateEmptyTableStaysHidden(t *testing.T) {
	c, rec := newController(t, "", scale.OneSided)
	assert.False(t, c.Activate(context.Background(), rec.structures[0]))
	assert.Empty(t, rec.applied)
	assert.False(t, c.View().Legend.Visible)
	assert.Equal(t, scale.Range{Min: 0, Max: 50}, c.Range())
}

func TestApplyRecolorsWithToggle(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	ctx := context.Background()
	c.Activate(ctx, rec.structures[0])
	before := c.Colors()

	c.Focus()
	assert.Equal(t, "editing", c.View().State)
	require.NoError(t, c.Input("0", "10"))
	require.NoError(t, c.Apply(ctx))

	assert.Equal(t, scale.Range{Min: 0, Max: 10}, c.Range())
	assert.Equal(t, []string{overlay.ThemeName, NeutralTheme, overlay.ThemeName}, rec.applied)
	assert.NotEqual(t, before[keyALA], c.Colors()[keyALA])
	assert.Equal(t, uint32(0xF6851F), c.Colors()[keyALA])
	v := c.View()
	assert.Equal(t, "idle", v.State)
	assert.Equal(t, "10", v.Legend.Max)
}

func TestApplyInvalidKeepsState(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	ctx := context.Background()
	c.Activate(ctx, rec.structures[0])
	colors := c.Colors()
	legend := c.View().Legend

	for _, in := range [][2]string{{"10", "10"}, {"20", "5"}, {"x", "5"}, {"", ""}} {
		require.NoError(t, c.Input(in[0], in[1]))
		err := c.Apply(ctx)
		require.Error(t, err)
		assert.Equal(t, colors, c.Colors())
		assert.Equal(t, legend, c.View().Legend)
		assert.Equal(t, "invalid vmin/vmax values", c.View().Message)
	}
	assert.Equal(t, []string{overlay.ThemeName}, rec.applied)
	assert.Equal(t, scale.Range{Min: 0, Max: 30}, c.Range())
}

func TestResetRestoresOriginal(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	ctx := context.Background()
	c.Activate(ctx, rec.structures[0])
	original := c.Colors()
	for _, max := range []string{"10", "100", "7"} {
		require.NoError(t, c.Input("-5", max))
		require.NoError(t, c.Apply(ctx))
	}
	require.NoError(t, c.Reset(ctx))
	assert.Equal(t, scale.Range{Min: 0, Max: 30}, c.Range())
	assert.Equal(t, original, c.Colors())
	v := c.View()
	assert.Equal(t, "0", v.Panel.MinInput)
	assert.Equal(t, "30", v.Panel.MaxInput)
	assert.Equal(t, "30", v.Legend.Max)
}

func TestApplyReportsThemeFailure(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	ctx := context.Background()
	c.Activate(ctx, rec.structures[0])
	rec.fail = errors.New("boom")
	require.NoError(t, c.Input("0", "5"))
	err := c.Apply(ctx)
	require.Error(t, err)
	// the new range is still recorded
	assert.Equal(t, scale.Range{Min: 0, Max: 5}, c.Range())
}

func TestApplyWithoutStructures(t *testing.T) {
	c, rec := newController(t, pdbText, scale.OneSided)
	ctx := context.Background()
	c.Activate(ctx, rec.structures[0])
	rec.structures = nil
	require.NoError(t, c.Input("0", "5"))
	require.NoError(t, c.Apply(ctx))
	assert.Equal(t, []string{overlay.ThemeName}, rec.applied)
}

func TestDivergingLegendAndToggle(t *testing.T) {
	c, rec := newController(t, pdbText, scale.Diverging)
	c.Activate(context.Background(), rec.structures[0])
	v := c.View()
	assert.Equal(t, "ΔΔGop (kJ/mol)", v.Legend.Title)
	assert.Equal(t, "-30", v.Legend.Min)
	assert.Equal(t, "30", v.Legend.Max)
	assert.Equal(t, "+", v.Panel.Toggle)
	c.Toggle()
	assert.True(t, c.View().Panel.Expanded)
	assert.Equal(t, "−", c.View().Panel.Toggle)
	c.Toggle()
	assert.False(t, c.View().Panel.Expanded)
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "0", formatLabel(-0.2))
	assert.Equal(t, "25", formatLabel(25))
	assert.Equal(t, "-13", formatLabel(-12.7))
}

type countingHierarchy struct {
	calls   int
	readyAt int
}

func (h *countingHierarchy) Structures() []*viewer.Structure {
	h.calls++
	if h.readyAt > 0 && h.calls >= h.readyAt {
		return []*viewer.Structure{{Name: "s"}}
	}
	return nil
}

func TestWaitForStructure(t *testing.T) {
	h := &countingHierarchy{readyAt: 3}
	s, err := WaitForStructure(context.Background(), h, time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, "s", s.Name)
	assert.Equal(t, 3, h.calls)
}

func TestWaitForStructureMaxPolls(t *testing.T) {
	h := &countingHierarchy{}
	_, err := WaitForStructure(context.Background(), h, time.Millisecond, 4)
	assert.ErrorIs(t, err, viewer.ErrNoStructure)
	assert.Equal(t, 4, h.calls)
}

func TestWaitForStructureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WaitForStructure(ctx, &countingHierarchy{}, time.Hour, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.PollMs = 5
	return cfg
}

func waitReady(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("session never became ready")
	}
}

func TestSessionEndToEnd(t *testing.T) {
	p := viewer.NewPlugin()
	p.LoadDelay = 10 * time.Millisecond
	ctx := context.Background()
	s := Open(ctx, p, []File{{Path: "run/dg.pdb", Text: pdbText, Format: "pdb"}}, testConfig())
	assert.Equal(t, scale.OneSided, s.Mode)
	assert.Len(t, s.Table, 5)
	assert.Contains(t, p.Themes.Names(), overlay.ThemeName)

	s.Start(ctx)
	waitReady(t, s)
	require.True(t, s.Active())
	assert.Equal(t, 23.0, s.Metadata().Values[overlay.SeqKey{Chain: "A", Seq: 5}])

	st := p.Structures()[0]
	poly := st.Components[0]
	assert.Equal(t, overlay.ThemeName, poly.Theme())
	leu := 5 // atom index of LEU CA
	got, ok := poly.ColorOf(leu)
	require.True(t, ok)
	assert.Equal(t, s.Controller.Colors()[keyLEU], got)
	pro, _ := poly.ColorOf(2)
	assert.Equal(t, uint32(0x969696), pro)

	require.NoError(t, s.Controller.Input("0", "23"))
	require.NoError(t, s.Controller.Apply(ctx))
	got, _ = poly.ColorOf(leu)
	assert.Equal(t, uint32(0xF6851F), got, "viewer output must follow the new range")

	s.Close()
	assert.NotContains(t, p.Themes.Names(), overlay.ThemeName)
}

func TestSessionDivergingAndUnreadable(t *testing.T) {
	p := viewer.NewPlugin()
	p.LoadDelay = 0
	ctx := context.Background()

	s := Open(ctx, p, []File{{Path: "run/ddg.pdb", Text: pdbText, Format: "pdb"}}, testConfig())
	assert.Equal(t, scale.Diverging, s.Mode)
	assert.Equal(t, scale.Range{Min: -30, Max: 30}, s.Controller.Original())
	s.Close()

	p.Wait()
	p.Clear()
	s = Open(ctx, p, []File{{Path: "missing.pdb", Format: "pdb"}}, testConfig())
	s.Start(ctx)
	waitReady(t, s)
	assert.False(t, s.Active())
	assert.False(t, s.Controller.View().Legend.Visible)
	assert.ErrorIs(t, s.Controller.Apply(ctx), ErrInactive)
	s.Close()
}

func TestSessionUnreadableDivergingPathIsOneSided(t *testing.T) {
	p := viewer.NewPlugin()
	p.LoadDelay = 0
	ctx := context.Background()
	s := Open(ctx, p, []File{{Path: "run/ddg.pdb", Format: "pdb"}}, testConfig())
	defer s.Close()
	assert.Equal(t, scale.OneSided, s.Mode)
	assert.Empty(t, s.Table)
	assert.Equal(t, scale.Range{Min: 0, Max: 50}, s.Controller.Original())
	assert.Equal(t, "ΔGop", s.Adapter.Label())
	prov, ok := p.Themes.Get(overlay.ThemeName)
	require.True(t, ok)
	assert.Equal(t, "ΔGop", prov.Label)
}

func TestSessionCloseStopsPolling(t *testing.T) {
	p := viewer.NewPlugin()
	p.LoadDelay = time.Hour
	ctx := context.Background()
	s := Open(ctx, p, []File{{Path: "a.pdb", Text: pdbText, Format: "pdb"}}, testConfig())
	s.Start(ctx)
	s.Close()
	p.Wait()
	assert.Empty(t, p.Structures())
	select {
	case <-s.Ready():
		t.Fatal("closed session must not become ready")
	default:
	}
}
