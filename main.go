package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"dgop/config"
	"dgop/control"
	"dgop/events"
	"dgop/scalar"
	"dgop/viewer"
)

func main() {
	log.SetOutput(os.Stderr)
	cfgPath := flag.String("config", "", "path to config.toml")
	watch := flag.Bool("watch", false, "reload structures when their files change")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("config: %v", err)
	}
	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: dgop [-config path] [-watch] FILE...")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	plugin := viewer.NewPlugin()
	session := openSession(ctx, plugin, paths, cfg)

	cmdCh := make(chan events.Command, 16)
	go events.Read(os.Stdin, cmdCh)

	var (
		fileEvents <-chan fsnotify.Event
		fileErrors <-chan error
	)
	watched := watchTargets(paths)
	if *watch {
		w, err := newWatcher(watched)
		if err != nil {
			log.Printf("watch: %v", err)
		} else {
			defer w.Close()
			fileEvents, fileErrors = w.Events, w.Errors
		}
	}

	enc := json.NewEncoder(os.Stdout)
	ready := session.Ready()
	for {
		select {
		case <-ctx.Done():
			session.Close()
			return
		case <-ready:
			ready = nil
			emit(enc, session)
		case cmd, ok := <-cmdCh:
			if !ok {
				cmdCh = nil
				continue
			}
			if handleCommand(ctx, session.Controller, cmd) {
				emit(enc, session)
			}
		case err := <-fileErrors:
			log.Printf("watch: %v", err)
		case ev := <-fileEvents:
			if !isReload(ev, watched) {
				continue
			}
			log.Printf("watch: %s changed; reloading", ev.Name)
			session.Close()
			plugin.Wait()
			plugin.Clear()
			session = openSession(ctx, plugin, paths, cfg)
			ready = session.Ready()
		}
	}
}

func openSession(ctx context.Context, v control.Viewer, paths []string, cfg *config.Config) *control.Session {
	files := make([]control.File, 0, len(paths))
	for _, p := range paths {
		text, err := os.ReadFile(p)
		if err != nil {
			// Unreadable files load as empty content.
			log.Printf("read %s: %v", p, err)
		}
		files = append(files, control.File{Path: p, Text: string(text), Format: scalar.FormatHint(p)})
	}
	s := control.Open(ctx, v, files, cfg)
	s.Start(ctx)
	return s
}

// handleCommand dispatches one command and reports whether the view changed.
func handleCommand(ctx context.Context, c *control.Controller, cmd events.Command) bool {
	var err error
	switch cmd.Action {
	case events.Focus:
		c.Focus()
	case events.Input:
		err = c.Input(string(cmd.Min), string(cmd.Max))
	case events.Apply:
		err = c.Apply(ctx)
	case events.Reset:
		err = c.Reset(ctx)
	case events.Toggle:
		c.Toggle()
	default:
		log.Printf("command: unknown action %q", cmd.Action)
		return false
	}
	if errors.Is(err, control.ErrInactive) {
		return false
	}
	if err != nil {
		log.Printf("command %s: %v", cmd.Action, err)
	}
	return true
}

func emit(enc *json.Encoder, s *control.Session) {
	if err := enc.Encode(s.Controller.View()); err != nil {
		log.Printf("encode view: %v", err)
	}
}

// watchTargets returns the cleaned absolute form of each loaded path.
func watchTargets(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out[filepath.Clean(p)] = struct{}{}
	}
	return out
}

// isReload reports whether ev rewrote one of the targets. Editors that save by
// renaming a temp file over the target show up as Create on the target name.
func isReload(ev fsnotify.Event, targets map[string]struct{}) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := ev.Name
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	_, ok := targets[filepath.Clean(name)]
	return ok
}

// newWatcher watches the parent directory of every target, so the watch
// survives the target being replaced.
func newWatcher(targets map[string]struct{}) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	dirs := map[string]struct{}{}
	for t := range targets {
		dirs[filepath.Dir(t)] = struct{}{}
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", d, err)
		}
	}
	return w, nil
}
