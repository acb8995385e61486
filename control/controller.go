// Package control owns the active normalization range of a loaded structure
// and re-themes the viewer when the user edits or resets it.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"

	"dgop/overlay"
	"dgop/scalar"
	"dgop/scale"
	"dgop/theme"
	"dgop/viewer"
)

// NeutralTheme is applied before the scalar theme to force re-evaluation.
const NeutralTheme = "element-symbol"

var ErrInactive = errors.New("controls are not active")

// Themer is the part of the viewer the controller drives.
type Themer interface {
	Structures() []*viewer.Structure
	UpdateRepresentationsTheme(ctx context.Context, comps []*viewer.Component, name string) error
}

type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Legend is the legend widget content.
type Legend struct {
	Visible  bool   `json:"visible"`
	Title    string `json:"title"`
	Gradient string `json:"gradient"`
	Min      string `json:"min"`
	Max      string `json:"max"`
	Note     string `json:"note"`
}

// Panel is the range control panel content.
type Panel struct {
	Visible  bool   `json:"visible"`
	Expanded bool   `json:"expanded"`
	Toggle   string `json:"toggle"`
	MinInput string `json:"min_input"`
	MaxInput string `json:"max_input"`
	Step     int    `json:"step"`
}

// View is a snapshot of everything the surrounding UI displays.
type View struct {
	State   string      `json:"state"`
	Range   scale.Range `json:"range"`
	Legend  Legend      `json:"legend"`
	Panel   Panel       `json:"panel"`
	Message string      `json:"message,omitempty"`
}

// Controller is the range state machine. The color map and range are
// replaced wholesale on every apply.
type Controller struct {
	themer  Themer
	table   scalar.Table
	mode    scale.Mode
	palette theme.Palette
	adapter *overlay.Adapter
	note    string

	mu       sync.Mutex
	state    State
	active   bool
	original scale.Range
	current  scale.Range
	colors   theme.ColorMap
	minInput string
	maxInput string
	expanded bool
	message  string
	legend   Legend
}

// NewController estimates the default range and computes the first color
// map. The controls stay inactive until Activate.
func NewController(t Themer, table scalar.Table, mode scale.Mode, p theme.Palette, a *overlay.Adapter, note string) *Controller {
	rng := scale.Estimate(table, mode)
	c := &Controller{
		themer:   t,
		table:    table,
		mode:     mode,
		palette:  p,
		adapter:  a,
		note:     note,
		original: rng,
		current:  rng,
		colors:   theme.Map(table, rng, mode, p),
		minInput: formatInput(rng.Min),
		maxInput: formatInput(rng.Max),
	}
	a.Set(c.colors)
	c.legend = c.legendFor(rng, false)
	return c
}

// Activate applies the scalar theme to s and shows the legend and panel.
// Nothing is shown when no residue received a color.
func (c *Controller) Activate(ctx context.Context, s *viewer.Structure) bool {
	c.mu.Lock()
	if len(c.colors) == 0 {
		c.mu.Unlock()
		return false
	}
	c.active = true
	c.legend = c.legendFor(c.current, true)
	c.mu.Unlock()

	if err := c.themer.UpdateRepresentationsTheme(ctx, s.Components, overlay.ThemeName); err != nil {
		log.Printf("control: apply theme: %v", err)
	}
	return true
}

// Focus enters the editing state. No computation happens.
func (c *Controller) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.state = Editing
	}
}

// Input records raw text typed into the min/max inputs.
func (c *Controller) Input(min, max string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrInactive
	}
	c.minInput, c.maxInput = min, max
	c.state = Editing
	return nil
}

// Toggle collapses or expands the control panel.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expanded = !c.expanded
}

// Apply validates the inputs and, if valid, recolors with the new range.
// Invalid input leaves the active range, colors and legend untouched.
func (c *Controller) Apply(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrInactive
	}
	rng, err := scale.ParseBounds(c.minInput, c.maxInput)
	if err != nil {
		c.message = "invalid vmin/vmax values"
		c.mu.Unlock()
		log.Printf("control: invalid vmin/vmax values: %v", err)
		return err
	}
	c.mu.Unlock()
	return c.apply(ctx, rng)
}

// Reset restores the range estimated at load time.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrInactive
	}
	rng := c.original
	c.minInput, c.maxInput = formatInput(rng.Min), formatInput(rng.Max)
	c.mu.Unlock()
	return c.apply(ctx, rng)
}

func (c *Controller) apply(ctx context.Context, rng scale.Range) error {
	log.Printf("control: applying range %g..%g", rng.Min, rng.Max)
	colors := theme.Map(c.table, rng, c.mode, c.palette)

	c.mu.Lock()
	c.current = rng
	c.colors = colors
	c.adapter.Set(colors)
	c.state = Idle
	c.message = ""
	c.legend = c.legendFor(rng, true)
	c.mu.Unlock()

	// A superseded re-theme still reads the latest map from the adapter.
	return c.retheme(ctx)
}

// retheme switches to the neutral strategy and back so the viewer drops its
// cached colors.
func (c *Controller) retheme(ctx context.Context) error {
	structures := c.themer.Structures()
	if len(structures) == 0 {
		return nil
	}
	comps := structures[0].Components
	if err := c.themer.UpdateRepresentationsTheme(ctx, comps, NeutralTheme); err != nil {
		return fmt.Errorf("update theme: %w", err)
	}
	if err := c.themer.UpdateRepresentationsTheme(ctx, comps, overlay.ThemeName); err != nil {
		return fmt.Errorf("update theme: %w", err)
	}
	return nil
}

// Range returns the active range.
func (c *Controller) Range() scale.Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Original returns the range estimated at load time.
func (c *Controller) Original() scale.Range { return c.original }

// Colors returns the active color map.
func (c *Controller) Colors() theme.ColorMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colors
}

func (c *Controller) Mode() scale.Mode { return c.mode }

// View returns a snapshot for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	toggle := "+"
	if c.expanded {
		toggle = "−"
	}
	return View{
		State:   c.state.String(),
		Range:   c.current,
		Legend:  c.legend,
		Message: c.message,
		Panel: Panel{
			Visible:  c.active,
			Expanded: c.expanded,
			Toggle:   toggle,
			MinInput: c.minInput,
			MaxInput: c.maxInput,
			Step:     5,
		},
	}
}

func (c *Controller) legendFor(rng scale.Range, visible bool) Legend {
	title := "ΔGop (kJ/mol)"
	if c.mode == scale.Diverging {
		title = "ΔΔGop (kJ/mol)"
	}
	return Legend{
		Visible:  visible,
		Title:    title,
		Gradient: c.palette.Gradient(c.mode),
		Min:      formatLabel(rng.Min),
		Max:      formatLabel(rng.Max),
		Note:     c.note,
	}
}

// formatLabel renders a bound with no decimals.
func formatLabel(v float64) string {
	r := math.Round(v)
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}

func formatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
