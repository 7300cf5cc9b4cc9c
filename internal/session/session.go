// Package session ties the engine pieces together for one edited clip: the
// crop track, the segment engine and the highlight regions, guarded by a
// single lock so the composite edit operations are never observed half
// applied. Cross-session sharing goes through the region transformer only;
// sessions never share mutable state.
package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/region"
	"github.com/reelcut/reelcut-agent/internal/segment"
	"github.com/reelcut/reelcut-agent/internal/space"
	"github.com/reelcut/reelcut-agent/internal/track"
)

// Session is one edit session over one working clip.
type Session struct {
	ID         string
	SourcePath string
	Clip       region.ClipRef
	Width      float64
	Height     float64
	FPS        float64
	Duration   float64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	mu       sync.Mutex
	crop     *track.Store[track.Rect]
	segments *segment.Engine
	regions  []*region.Region
}

// Params describes a new session.
type Params struct {
	SourcePath string
	Width      float64
	Height     float64
	FPS        float64
	Duration   float64
}

// New creates a session with a full-frame crop track anchored at frame 0
// and the final frame, and a single untrimmed segment.
func New(p Params) (*Session, error) {
	if p.SourcePath == "" {
		return nil, fmt.Errorf("source path is required")
	}
	if p.Duration <= 0 || math.IsNaN(p.Duration) {
		return nil, fmt.Errorf("duration must be positive")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	fps := p.FPS
	if fps <= 0 || math.IsNaN(fps) {
		fps = 30
	}

	lastFrame := int(math.Round(p.Duration * fps))
	now := time.Now().UTC()
	return &Session{
		ID:         uuid.NewString(),
		SourcePath: p.SourcePath,
		Clip:       region.ClipRef{SourcePath: p.SourcePath, StartFrame: 0, EndFrame: lastFrame},
		Width:      p.Width,
		Height:     p.Height,
		FPS:        fps,
		Duration:   p.Duration,
		CreatedAt:  now,
		UpdatedAt:  now,
		crop:       track.NewStore(track.Rect{X: 0, Y: 0, Width: p.Width, Height: p.Height}, lastFrame),
		segments:   segment.NewEngine(p.Duration, fps),
	}, nil
}

// Dims returns the working video dimensions.
func (s *Session) Dims() space.Dims {
	return space.Dims{Width: s.Width, Height: s.Height}
}

// InterpolateCrop returns the crop rectangle active at a source frame.
func (s *Session) InterpolateCrop(frame int) track.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop.At(frame)
}

// SetCropAt writes a crop keyframe.
func (s *Session) SetCropAt(frame int, r track.Rect, origin track.Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop.Set(frame, r, origin)
	s.touch()
}

// RemoveCropAt deletes a crop keyframe; permanent keyframes are a no-op.
func (s *Session) RemoveCropAt(frame int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop.Remove(frame)
	s.touch()
}

// SetBoundaries replaces the segment boundary list.
func (s *Session) SetBoundaries(times []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments.SetBoundaries(times)
	s.touch()
}

// TrimSegment toggles segment i's trim, running the whole keyframe-cleanup
// sequence under the session lock so no caller sees an intermediate state.
func (s *Session) TrimSegment(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.segments.ToggleTrim(i, s.crop)
	if ok {
		s.touch()
	}
	return ok
}

// SetSpeed sets segment i's playback multiplier.
func (s *Session) SetSpeed(i int, speed float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.segments.SetSpeed(i, speed)
	if ok {
		s.touch()
	}
	return ok
}

// SetTrimRange sets or clears the outer visible window.
func (s *Session) SetTrimRange(r *segment.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments.SetTrimRange(r)
	s.touch()
}

// Segments returns a snapshot of the current segment list.
func (s *Session) Segments() []segment.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.Segments()
}

// MapWorkingTime maps a working-timeline time to its source frame. The
// second return is false when the time falls in trimmed footage or outside
// the visible window.
func (s *Session) MapWorkingTime(t float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.WorkingTimeToSourceFrame(t)
}

// WorkingDuration returns the working timeline length in seconds.
func (s *Session) WorkingDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.WorkingDuration()
}

// TrimRange returns the outer visible window, or nil when unset.
func (s *Session) TrimRange() *segment.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.TrimRange()
}

// AddRegion creates a highlight region starting at start seconds of the
// working timeline.
func (s *Session) AddRegion(start float64, shape track.Ellipse) *region.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := region.New(start, s.segments.WorkingDuration(), s.FPS, shape)
	s.regions = append(s.regions, r)
	s.touch()
	return r
}

// Regions returns the session's highlight regions.
func (s *Session) Regions() []*region.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*region.Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Region returns the highlight region with the given ID, or nil.
func (s *Session) Region(id string) *region.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// SetRegionShapeAt writes a shape keyframe on one of the session's regions.
// Returns false when the region does not exist.
func (s *Session) SetRegionShapeAt(regionID string, frame int, shape track.Ellipse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.ID == regionID {
			r.SetShapeAt(frame, shape, s.FPS)
			s.touch()
			return true
		}
	}
	return false
}

// ProjectRegionTo projects one of this session's regions into another
// session editing the same source footage. Returns nil when the region has
// no equivalent in the target context. Locks are taken one side at a time;
// the projection works on snapshots, never on shared references.
func (s *Session) ProjectRegionTo(regionID string, target *Session) *region.Region {
	s.mu.Lock()
	var src *region.Region
	for _, r := range s.regions {
		if r.ID == regionID {
			src = r
			break
		}
	}
	if src == nil {
		s.mu.Unlock()
		return nil
	}
	sr := region.ToSource(src, s.Clip, s.crop, s.segments, s.Dims())
	s.mu.Unlock()

	if sr == nil || target == nil {
		return nil
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	projected := region.ToWorking(sr, target.crop, target.segments, target.Dims())
	if projected != nil {
		target.regions = append(target.regions, projected)
		target.touch()
	}
	return projected
}

// Export returns the render-ready state: the crop keyframes filtered to the
// visible window, the cut list, and an EDL document.
func (s *Session) Export(title string) ([]track.Keyframe[track.Rect], []export.Cut, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kfs := export.FilterForExport(s.crop.Keyframes(), s.segments)
	cuts := export.VisibleCuts(s.segments)
	edl := export.GenerateEDL(cuts, title, s.SourcePath, s.FPS)
	return kfs, cuts, edl
}

// touch must be called with the lock held.
func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
