package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncedBurstEmitsEveryUpload(t *testing.T) {
	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads", "ack-1")
	require.NoError(t, os.MkdirAll(uploadDir, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Root: root, Debounce: time.Millisecond}, nil)
	require.NoError(t, err)

	const n = 200
	go func() {
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("doc-%03d.pdf", i)
			_ = os.WriteFile(filepath.Join(uploadDir, name), []byte("%PDF"), 0o644)
		}
	}()

	seen := map[string]struct{}{}
	deadline := time.After(10 * time.Second)
	for len(seen) < n {
		select {
		case key := <-events:
			seen[key] = struct{}{}
		case <-deadline:
			t.Fatalf("saw %d of %d uploads before timeout", len(seen), n)
		}
	}
	assert.Contains(t, seen, "uploads/ack-1/doc-000.pdf")
	assert.Contains(t, seen, fmt.Sprintf("uploads/ack-1/doc-%03d.pdf", n-1))
}

func TestWatcher_IgnoresNonUploadKeys(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads", "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "results"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Root: root}, nil)
	require.NoError(t, err)

	// Result workbooks and disallowed extensions never re-trigger processing.
	require.NoError(t, os.WriteFile(filepath.Join(root, "results", "out.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uploads", "a", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uploads", "a", "scan.png"), []byte("x"), 0o644))

	select {
	case key := <-events:
		assert.Equal(t, "uploads/a/scan.png", key)
	case <-time.After(5 * time.Second):
		t.Fatal("upload was never emitted")
	}

	// Without debounce one write can surface more than once; anything other
	// than the allowed upload key is a filtering failure.
	drain := time.After(100 * time.Millisecond)
	for {
		select {
		case key := <-events:
			assert.Equal(t, "uploads/a/scan.png", key)
		case <-drain:
			return
		}
	}
}

func TestWatcher_InitialScanEmitsExistingUploads(t *testing.T) {
	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads", "ack-1")
	require.NoError(t, os.MkdirAll(uploadDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "old.pdf"), []byte("%PDF"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Root: root, InitialScan: true}, nil)
	require.NoError(t, err)

	select {
	case key := <-events:
		assert.Equal(t, "uploads/ack-1/old.pdf", key)
	case <-time.After(5 * time.Second):
		t.Fatal("pre-existing upload was never emitted")
	}
}
