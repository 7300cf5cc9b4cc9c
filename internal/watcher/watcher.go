// Package watcher imports project documents dropped into a watched
// directory. Each .json file describes one edited clip; writing the file
// creates or updates the matching session, so external tools can hand
// edits to the agent without touching the HTTP API.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/reelcut/reelcut-agent/internal/logging"
	"github.com/reelcut/reelcut-agent/internal/session"
)

// ProjectFile is the on-disk document shape. The three edit documents are
// optional; an absent document leaves the session's defaults in place.
type ProjectFile struct {
	SourcePath string          `json:"source_path"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	FPS        float64         `json:"fps,omitempty"`
	Duration   float64         `json:"duration"`
	Crop       json.RawMessage `json:"crop,omitempty"`
	Segments   json.RawMessage `json:"segments,omitempty"`
	Highlights json.RawMessage `json:"highlights,omitempty"`
}

type Watcher struct {
	sessions *session.Service
	logger   *slog.Logger

	mu    sync.Mutex
	known map[string]string // project file path -> session id
}

func New(sessions *session.Service, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		sessions: sessions,
		logger:   logging.WithComponent(logger, "watcher"),
		known:    make(map[string]string),
	}
}

// Watch imports the project files already in dir, then blocks handling
// filesystem events until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if err := w.importExisting(ctx, dir); err != nil {
		return err
	}

	w.logger.Info("watching project directory", "dir", logging.SanitizePath(dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isProjectFile(event.Name) {
				continue
			}
			if err := w.importFile(ctx, event.Name); err != nil {
				w.logger.Warn("failed to import project file",
					"path", logging.SanitizePath(event.Name), "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func isProjectFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func (w *Watcher) importExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read project dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isProjectFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := w.importFile(ctx, path); err != nil {
			w.logger.Warn("failed to import project file",
				"path", logging.SanitizePath(path), "error", err)
		}
	}
	return nil
}

// importFile creates a session for a new project file, or reloads the edit
// documents of the session a previous import created for the same path.
func (w *Watcher) importFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read project file: %w", err)
	}

	var pf ProjectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse project file: %w", err)
	}

	sess, err := w.resolveSession(ctx, path, pf)
	if err != nil {
		return err
	}

	if len(pf.Crop) > 0 {
		if err := sess.LoadCrop(pf.Crop); err != nil {
			return fmt.Errorf("load crop document: %w", err)
		}
	}
	if len(pf.Segments) > 0 {
		if err := sess.LoadSegments(pf.Segments); err != nil {
			return fmt.Errorf("load segments document: %w", err)
		}
	}
	if len(pf.Highlights) > 0 {
		if err := sess.LoadHighlights(pf.Highlights); err != nil {
			return fmt.Errorf("load highlights document: %w", err)
		}
	}

	if err := w.sessions.Save(ctx, sess); err != nil {
		return err
	}
	w.logger.Info("imported project file",
		"path", logging.SanitizePath(path), "session_id", sess.ID)
	return nil
}

func (w *Watcher) resolveSession(ctx context.Context, path string, pf ProjectFile) (*session.Session, error) {
	w.mu.Lock()
	id, ok := w.known[path]
	w.mu.Unlock()

	if ok {
		sess, err := w.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
		// Session was deleted since the last import; fall through and
		// create a fresh one.
	}

	sess, err := w.sessions.Create(ctx, session.Params{
		SourcePath: pf.SourcePath,
		Width:      pf.Width,
		Height:     pf.Height,
		FPS:        pf.FPS,
		Duration:   pf.Duration,
	})
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.known[path] = sess.ID
	w.mu.Unlock()
	return sess, nil
}
