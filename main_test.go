package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dgop/control"
	"dgop/events"
	"dgop/overlay"
	"dgop/scalar"
	"dgop/scale"
	"dgop/theme"
	"dgop/viewer"
)

func TestHandleCommandInactive(t *testing.T) {
	p := viewer.NewPlugin()
	a := overlay.New(scale.OneSided, theme.DefaultPalette.Fallback)
	c := control.NewController(p, scalar.Table{}, scale.OneSided, theme.DefaultPalette, a, "")
	ctx := context.Background()

	assert.False(t, handleCommand(ctx, c, events.Command{Action: "bogus"}))
	assert.False(t, handleCommand(ctx, c, events.Command{Action: events.Apply}))
	assert.False(t, handleCommand(ctx, c, events.Command{Action: events.Input, Min: "1", Max: "2"}))
	assert.True(t, handleCommand(ctx, c, events.Command{Action: events.Toggle}))
	assert.True(t, c.View().Panel.Expanded)
}

func TestIsReloadFiltersOnTargetName(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "run_ddg.pdb")
	targets := watchTargets([]string{target})

	assert.True(t, isReload(fsnotify.Event{Name: target, Op: fsnotify.Write}, targets))
	// rename-over saves surface as Create on the target name
	assert.True(t, isReload(fsnotify.Event{Name: target, Op: fsnotify.Create}, targets))
	assert.False(t, isReload(fsnotify.Event{Name: target, Op: fsnotify.Rename}, targets))
	assert.False(t, isReload(fsnotify.Event{Name: target, Op: fsnotify.Remove}, targets))
	assert.False(t, isReload(fsnotify.Event{Name: filepath.Join(dir, ".run_ddg.pdb.swp"), Op: fsnotify.Write}, targets))
}

func TestWatcherSurvivesRenameOver(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "model.pdb")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))
	targets := watchTargets([]string{target})
	w, err := newWatcher(targets)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 2; i++ {
		tmp := filepath.Join(dir, "model.pdb.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("new"), 0o644))
		require.NoError(t, os.Rename(tmp, target))
		waitForReload(t, w, targets)
	}
}

func waitForReload(t *testing.T, w *fsnotify.Watcher, targets map[string]struct{}) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events:
			if isReload(ev, targets) {
				return
			}
		case err := <-w.Errors:
			t.Fatalf("watch error: %v", err)
		case <-timeout:
			t.Fatal("no reload event for target")
		}
	}
}
