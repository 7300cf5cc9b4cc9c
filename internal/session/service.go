package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Service manages the live sessions and their persisted records. Each edit
// session is owned exclusively by its Session value; the service only
// hands out references and copies documents in and out of storage.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*Session
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, live: make(map[string]*Session)}
}

// Create builds a new session and persists its initial state.
func (s *Service) Create(ctx context.Context, p Params) (*Session, error) {
	sess, err := New(p)
	if err != nil {
		return nil, err
	}

	rec, err := s.toRecord(sess)
	if err != nil {
		return nil, fmt.Errorf("serialize session: %w", err)
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.live[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created", "session_id", sess.ID, "source", sess.SourcePath)
	return sess, nil
}

// Get returns the live session, loading it from storage on first access.
// A nil session with nil error means "not found".
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	if sess, ok := s.live[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	sess, err := s.fromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have restored it meanwhile; keep the first.
	if existing, ok := s.live[id]; ok {
		return existing, nil
	}
	s.live[id] = sess
	return sess, nil
}

// List returns the persisted session records, newest first.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	return s.repo.List(ctx)
}

// Save writes the session's current documents back to storage.
func (s *Service) Save(ctx context.Context, sess *Session) error {
	rec, err := s.toRecord(sess)
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.logger.Debug("session saved", "session_id", sess.ID)
	return nil
}

// Delete removes a session from storage and from the live set.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	s.logger.Info("session deleted", "session_id", id)
	return nil
}

// LiveCount returns the number of sessions restored into memory.
func (s *Service) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Count returns the number of persisted sessions.
func (s *Service) Count(ctx context.Context) (int, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (s *Service) toRecord(sess *Session) (*Record, error) {
	crop, err := sess.CropDocument()
	if err != nil {
		return nil, err
	}
	segs, err := sess.SegmentsDocument()
	if err != nil {
		return nil, err
	}
	highlights, err := sess.HighlightsDocument()
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:             sess.ID,
		SourcePath:     sess.SourcePath,
		StartFrame:     sess.Clip.StartFrame,
		EndFrame:       sess.Clip.EndFrame,
		Width:          sess.Width,
		Height:         sess.Height,
		FPS:            sess.FPS,
		Duration:       sess.Duration,
		CropJSON:       string(crop),
		SegmentsJSON:   string(segs),
		HighlightsJSON: string(highlights),
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}, nil
}

func (s *Service) fromRecord(rec *Record) (*Session, error) {
	sess, err := New(Params{
		SourcePath: rec.SourcePath,
		Width:      rec.Width,
		Height:     rec.Height,
		FPS:        rec.FPS,
		Duration:   rec.Duration,
	})
	if err != nil {
		return nil, err
	}
	sess.ID = rec.ID
	sess.Clip.StartFrame = rec.StartFrame
	sess.Clip.EndFrame = rec.EndFrame
	sess.CreatedAt = rec.CreatedAt
	sess.UpdatedAt = rec.UpdatedAt

	if rec.CropJSON != "" {
		if err := sess.LoadCrop([]byte(rec.CropJSON)); err != nil {
			return nil, err
		}
	}
	if rec.SegmentsJSON != "" {
		if err := sess.LoadSegments([]byte(rec.SegmentsJSON)); err != nil {
			return nil, err
		}
	}
	if rec.HighlightsJSON != "" {
		if err := sess.LoadHighlights([]byte(rec.HighlightsJSON)); err != nil {
			return nil, err
		}
	}
	return sess, nil
}
