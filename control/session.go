package control

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"dgop/config"
	"dgop/overlay"
	"dgop/scalar"
	"dgop/scale"
	"dgop/theme"
	"dgop/viewer"
)

// Viewer is the full collaborator surface a session needs.
type Viewer interface {
	Themer
	AddTheme(viewer.ThemeProvider)
	RemoveTheme(name string)
	Load(ctx context.Context, name, text, format string)
}

// File is one structural file handed to a session. Text is empty when the
// file could not be read.
type File struct {
	Path   string
	Text   string
	Format string
}

// Session is the single owning scope for one loaded structure: its scalar
// table, adapter and controller live and die together.
type Session struct {
	ID         string
	Mode       scale.Mode
	Table      scalar.Table
	Adapter    *overlay.Adapter
	Controller *Controller

	viewer   Viewer
	interval time.Duration
	maxPolls int
	cancel   context.CancelFunc
	done     chan struct{}
	ready    chan struct{}
	started  bool
	active   bool
	metadata overlay.Metadata
}

// Open parses the first file, registers the scalar theme and loads every
// file into the viewer. Call Start to wait for the structure and activate
// the controls.
func Open(ctx context.Context, v Viewer, files []File, cfg *config.Config) *Session {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	table := scalar.Table{}
	if len(files) > 0 {
		table = scalar.Extract(files[0].Text)
	}
	// Unreadable or empty content always falls back to one-sided.
	mode := scale.OneSided
	if len(table) > 0 {
		mode = scale.DetectMode(paths, cfg.Mode.Markers)
	}
	palette := theme.FromConfig(cfg)
	adapter := overlay.New(mode, palette.Fallback)
	v.AddTheme(adapter.Provider())

	s := &Session{
		ID:         uuid.NewString(),
		Mode:       mode,
		Table:      table,
		Adapter:    adapter,
		Controller: NewController(v, table, mode, palette, adapter, cfg.Legend.Note),
		viewer:     v,
		interval:   time.Duration(cfg.PollMs) * time.Millisecond,
		maxPolls:   cfg.MaxPolls,
		done:       make(chan struct{}),
		ready:      make(chan struct{}),
	}
	log.Printf("session %s: %d residues, mode %s, range %g..%g",
		s.ID, len(table), mode, s.Controller.Original().Min, s.Controller.Original().Max)

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, f := range files {
		v.Load(loadCtx, f.Path, f.Text, f.Format)
	}
	return s
}

// Start polls for the structure in the background. Once it is present the
// residue metadata is attached, the theme applied and Ready closed.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	prev := s.cancel
	s.cancel = func() { cancel(); prev() }
	s.started = true
	go func() {
		defer close(s.done)
		st, err := WaitForStructure(ctx, s.viewer, s.interval, s.maxPolls)
		if err != nil {
			log.Printf("session %s: %v", s.ID, err)
			return
		}
		s.metadata = s.Adapter.Attach(st.Model)
		s.active = s.Controller.Activate(ctx, st)
		close(s.ready)
	}()
}

// Ready is closed after the structure-derived pass has run.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Active reports whether the legend and controls were shown. Only
// meaningful after Ready.
func (s *Session) Active() bool { return s.active }

// Metadata returns the hover data attached at load. Only meaningful after
// Ready.
func (s *Session) Metadata() overlay.Metadata { return s.metadata }

// Close cancels polling and pending loads and unregisters the theme.
func (s *Session) Close() {
	s.cancel()
	if s.started {
		<-s.done
	}
	s.viewer.RemoveTheme(overlay.ThemeName)
	log.Printf("session %s: closed", s.ID)
}
