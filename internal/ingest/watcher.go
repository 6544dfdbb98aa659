// Package ingest watches the object-store root for freshly written
// uploads, standing in for the bucket-event trigger of a hosted setup.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docuflow/textract-export/constants"
)

type WatchConfig struct {
	Root        string              // object-store root; uploads live under Root/uploads
	AllowedExts map[string]struct{} // lowercase, without '.'
	InitialScan bool                // if true, walk and emit existing uploads
	Debounce    time.Duration       // coalesce rapid write bursts
}

// StartWatcher emits object keys (relative to Root, forward slashes) for
// uploaded documents. Only keys under uploads/ are emitted; result
// workbooks written back into the store never re-trigger processing.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("no watch root provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = constants.AllowedExtensions
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	emit := func(path string) {
		key := relKey(cfg.Root, path)
		if key == "" || !strings.HasPrefix(key, "uploads/") || !allowed(key, cfg.AllowedExts) {
			return
		}
		select {
		case evCh <- key:
		default:
			logger.Warn("watcher channel full, dropping event", "key", key)
		}
	}

	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan {
				emit(path)
			}
			return nil
		})
	}
	if err := addTree(cfg.Root); err != nil {
		logger.Error("failed to add watch root", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		// pending and the debounce timer are confined to this goroutine;
		// the timer only ever fires through the select below.
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				emit(p)
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				fire = nil
				sendPending()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					// New directories (fresh uploads/{ackId}/) need watching too.
					// Add is a no-op failure for plain files.
					_ = w.Add(e.Name)
				}

				if (e.Op & (fsnotify.Create | fsnotify.Write | fsnotify.Rename)) != 0 {
					if cfg.Debounce <= 0 {
						emit(e.Name)
						continue
					}
					pending[e.Name] = struct{}{}
					if timer == nil {
						timer = time.NewTimer(cfg.Debounce)
					} else {
						if !timer.Stop() {
							select {
							case <-timer.C:
							default:
							}
						}
						timer.Reset(cfg.Debounce)
					}
					fire = timer.C
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func relKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func allowed(key string, exts map[string]struct{}) bool {
	ext := constants.NormalizeExt(filepath.Ext(key))
	_, ok := exts[ext]
	return ok
}
