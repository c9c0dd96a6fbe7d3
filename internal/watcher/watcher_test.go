package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcserve/srcserve/internal/logging"
)

func TestExtensionFilter(t *testing.T) {
	filter := ExtensionFilter([]string{".js", ".ts"})

	assert.True(t, filter("/src/app.js"))
	assert.True(t, filter("/src/app.TS"))
	assert.False(t, filter("/src/app.css"))
	assert.False(t, filter("/src/Makefile"))
}

func TestSkipHidden(t *testing.T) {
	assert.True(t, SkipHidden("src/app.js"))
	assert.True(t, SkipHidden("./src/app.js"))
	assert.False(t, SkipHidden("node_modules/pkg/index.js"))
	assert.False(t, SkipHidden("src/.git/config"))
	assert.False(t, SkipHidden(".cache/app.js"))
}

func TestDebouncer_BatchesAndDeduplicates(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	d.add(ChangeEvent{Type: EventCreated, Path: "/a.js"})
	d.add(ChangeEvent{Type: EventModified, Path: "/a.js"})
	d.add(ChangeEvent{Type: EventModified, Path: "/b.js"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "/a.js", events[0].Path)
		assert.Equal(t, EventModified, events[0].Type, "latest event per path wins")
		assert.Equal(t, "/b.js", events[1].Path)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncer_QuietPeriodResets(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	d.add(ChangeEvent{Type: EventModified, Path: "/a.js"})
	time.Sleep(25 * time.Millisecond)
	d.add(ChangeEvent{Type: EventModified, Path: "/b.js"})

	select {
	case events := <-d.output:
		assert.Len(t, events, 2, "events within the quiet period share one batch")
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestWatcher_DeliversFilteredChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("a"), 0o644))

	w, err := New(20*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	defer w.Stop()

	w.AddFilter(ExtensionFilter([]string{".js"}))

	var mu sync.Mutex
	var got []ChangeEvent
	delivered := make(chan struct{}, 1)
	w.AddHandler(func(events []ChangeEvent) {
		mu.Lock()
		got = append(got, events...)
		mu.Unlock()
		select {
		case delivered <- struct{}{}:
		default:
		}
	})

	require.NoError(t, w.WatchRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	for _, event := range got {
		assert.Equal(t, ".js", filepath.Ext(event.Path), "txt changes are filtered out")
	}
}
