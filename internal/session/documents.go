package session

import (
	"github.com/reelcut/reelcut-agent/internal/region"
	"github.com/reelcut/reelcut-agent/internal/segment"
	"github.com/reelcut/reelcut-agent/internal/track"
)

// The three boundary documents (crop data, segments data, highlights data)
// are the only shapes that cross to persistence and rendering collaborators.
// Loading replaces the corresponding engine state wholesale; dumping
// snapshots it.

// LoadCrop replaces the crop track from a crop-data document.
func (s *Session) LoadCrop(data []byte) error {
	store, err := track.DecodeCrop(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop = store
	s.touch()
	return nil
}

// CropDocument serializes the crop track.
func (s *Session) CropDocument() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return track.EncodeCrop(s.crop)
}

// LoadSegments replaces the segment engine from a segments-data document.
func (s *Session) LoadSegments(data []byte) error {
	e, err := segment.DecodeSegments(data, s.Duration, s.FPS)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = e
	s.touch()
	return nil
}

// SegmentsDocument serializes the segment state.
func (s *Session) SegmentsDocument() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return segment.EncodeSegments(s.segments)
}

// LoadHighlights replaces the highlight regions from a highlights-data
// document. Malformed keyframes are dropped inside the codec; the load
// itself never fails on them.
func (s *Session) LoadHighlights(data []byte) error {
	regions, err := region.DecodeHighlights(data, s.FPS)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = regions
	s.touch()
	return nil
}

// HighlightsDocument serializes the highlight regions.
func (s *Session) HighlightsDocument() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return region.EncodeHighlights(s.regions, s.FPS)
}
