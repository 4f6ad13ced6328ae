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
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	root := filepath.Join("/", "project", "icons")
	sprite := filepath.Join(root, "dist", "sprite.svg")

	testCases := []struct {
		name   string
		filter FileFilter
		path   string
		want   bool
	}{
		{"svg accepted", SVGFilter, filepath.Join(root, "home.svg"), true},
		{"upper-case extension accepted", SVGFilter, filepath.Join(root, "HOME.SVG"), true},
		{"temp file rejected", SVGFilter, filepath.Join(root, ".sprite.svg.123.tmp"), false},
		{"markdown rejected", SVGFilter, filepath.Join(root, "README.md"), false},
		{"generated sprite rejected", ExcludeFilter(sprite), sprite, false},
		{"other svg kept", ExcludeFilter(sprite), filepath.Join(root, "home.svg"), true},
		{"reserved dir rejected", ReservedDirFilter(root, "otherFiles"), filepath.Join(root, "otherFiles", "a.svg"), false},
		{"similar dir kept", ReservedDirFilter(root, "otherFiles"), filepath.Join(root, "otherFilesX", "a.svg"), true},
		{"git rejected", NoGitFilter, "repo/.git/HEAD", false},
		{"plain path kept", NoGitFilter, "repo/icons/a.svg", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter(tc.path))
		})
	}
}

func TestDebouncerBatchesAndDeduplicates(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.svg"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.svg"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.svg"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.svg", events[0].Path)
		assert.Equal(t, "b.svg", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	d.flush()

	select {
	case <-d.output:
		t.Fatal("empty flush produced a batch")
	default:
	}
}

func TestFileWatcherReportsIconChanges(t *testing.T) {
	root := t.TempDir()
	sprite := filepath.Join(root, "sprite.svg")

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(SVGFilter)
	watcher.AddFilter(ExcludeFilter(sprite))
	require.NoError(t, watcher.AddRecursive(root))

	var mu sync.Mutex
	var batches [][]ChangeEvent
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, events)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(sprite, []byte("<svg/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "home.svg"), []byte("<svg/>"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, batch := range batches {
		for _, ev := range batch {
			assert.Equal(t, filepath.Join(root, "home.svg"), ev.Path)
		}
	}
}

func TestFileWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(SVGFilter)
	require.NoError(t, watcher.AddRecursive(root))

	seen := make(chan string, 16)
	watcher.AddHandler(func(events []ChangeEvent) error {
		for _, ev := range events {
			seen <- ev.Path
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	sub := filepath.Join(root, "brand")
	require.NoError(t, os.Mkdir(sub, 0755))

	// wait for the directory batch so the new directory is being watched
	select {
	case p := <-seen:
		assert.Equal(t, sub, p)
	case <-time.After(3 * time.Second):
		t.Fatal("directory creation not reported")
	}

	icon := filepath.Join(sub, "logo.svg")
	require.NoError(t, os.WriteFile(icon, []byte("<svg/>"), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-seen:
			if p == icon {
				return
			}
		case <-deadline:
			t.Fatal("icon in new directory not reported")
		}
	}
}

func TestAddRecursiveMissingRoot(t *testing.T) {
	watcher, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Error(t, watcher.AddRecursive(filepath.Join(t.TempDir(), "missing")))
}
