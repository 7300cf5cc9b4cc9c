// Package segment manages the boundary list, per-segment trim and speed
// state, and the working-time/source-frame mapping for one clip.
//
// Trim and speed state is keyed by FrameRange, not by segment index. A
// segment's index shifts whenever a boundary is inserted or removed before
// it; its frame range only changes when its own endpoints move. Keying by
// frame range is what keeps trim state attached to the right stretch of
// footage across structural edits.
package segment

import (
	"math"

	"github.com/reelcut/reelcut-agent/internal/track"
)

const (
	// MinSpeed and MaxSpeed bound the per-segment playback multiplier.
	MinSpeed = 0.1
	MaxSpeed = 10.0

	// DefaultSpeed plays a segment at its natural rate.
	DefaultSpeed = 1.0
)

// FrameRange is the stable identity of a segment's trim/speed state: its
// boundary times converted to integer frames at the active framerate.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Range is a time window in seconds.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a read-only view of one segment at its current index.
type Segment struct {
	Index   int
	Start   float64 // source seconds
	End     float64
	Speed   float64
	Trimmed bool
	Key     FrameRange
}

// Engine owns the segment state for one clip. All methods are total: bad
// indices and out-of-range times degrade to no-ops or "not found", never
// panics. The engine is not safe for concurrent use; the owning session
// serializes access.
type Engine struct {
	duration   float64
	fps        float64
	boundaries []float64
	trimmed    map[FrameRange]bool
	speeds     map[FrameRange]float64
	trimRange  *Range
}

// NewEngine creates an engine for a clip of the given source duration in
// seconds. The boundary list starts as [0, duration].
func NewEngine(duration, fps float64) *Engine {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = 30
	}
	return &Engine{
		duration:   duration,
		fps:        fps,
		boundaries: []float64{0, duration},
		trimmed:    make(map[FrameRange]bool),
		speeds:     make(map[FrameRange]float64),
	}
}

// Duration returns the clip's source duration in seconds.
func (e *Engine) Duration() float64 { return e.duration }

// FPS returns the active framerate.
func (e *Engine) FPS() float64 { return e.fps }

// Boundaries returns a copy of the boundary time list.
func (e *Engine) Boundaries() []float64 {
	out := make([]float64, len(e.boundaries))
	copy(out, e.boundaries)
	return out
}

// TrimRange returns the outer visible window, or nil when unset.
func (e *Engine) TrimRange() *Range {
	if e.trimRange == nil {
		return nil
	}
	r := *e.trimRange
	return &r
}

// SetTrimRange sets or clears the outer visible window. The window is in
// working-timeline seconds and is clamped to [0, WorkingDuration].
func (e *Engine) SetTrimRange(r *Range) {
	if r == nil {
		e.trimRange = nil
		return
	}
	wd := e.WorkingDuration()
	start := clamp(r.Start, 0, wd)
	end := clamp(r.End, start, wd)
	e.trimRange = &Range{Start: start, End: end}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func (e *Engine) key(start, end float64) FrameRange {
	return FrameRange{
		Start: int(math.Round(start * e.fps)),
		End:   int(math.Round(end * e.fps)),
	}
}

// SegmentCount returns the number of segments (boundaries minus one).
func (e *Engine) SegmentCount() int {
	if len(e.boundaries) < 2 {
		return 0
	}
	return len(e.boundaries) - 1
}

// Segment returns the segment at index i, or false for a bad index.
func (e *Engine) Segment(i int) (Segment, bool) {
	if i < 0 || i >= e.SegmentCount() {
		return Segment{}, false
	}
	start := e.boundaries[i]
	end := e.boundaries[i+1]
	key := e.key(start, end)
	speed, ok := e.speeds[key]
	if !ok {
		speed = DefaultSpeed
	}
	return Segment{
		Index:   i,
		Start:   start,
		End:     end,
		Speed:   speed,
		Trimmed: e.trimmed[key],
		Key:     key,
	}, true
}

// Segments returns all segments in order.
func (e *Engine) Segments() []Segment {
	out := make([]Segment, 0, e.SegmentCount())
	for i := 0; i < e.SegmentCount(); i++ {
		seg, _ := e.Segment(i)
		out = append(out, seg)
	}
	return out
}

// SetBoundaries replaces the boundary list. Times are filtered to finite
// values strictly inside (0, duration), deduplicated by frame, and sorted;
// 0 and duration are always present. Segments whose own frame range did not
// move keep their trim and speed state; a segment whose frame range changed
// is a new segment with defaults. State stored under a key that no longer
// corresponds to any segment is simply unreachable afterwards; removing the
// sole separator of a trimmed segment therefore silently clears that trim.
func (e *Engine) SetBoundaries(times []float64) {
	bs := []float64{0}
	seen := make(map[int]bool)
	for _, t := range sorted(times) {
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 || t >= e.duration {
			continue
		}
		f := int(math.Round(t * e.fps))
		if seen[f] || f == 0 || f == int(math.Round(e.duration*e.fps)) {
			continue
		}
		seen[f] = true
		bs = append(bs, t)
	}
	bs = append(bs, e.duration)
	e.boundaries = bs

	// Prune state whose key no longer corresponds to any segment. This is
	// where removing the sole separator of a trimmed segment loses that
	// trim: the membership's key stops matching anything and is dropped,
	// not resurrected by a later edit that recreates the same range.
	keys := make(map[FrameRange]bool, e.SegmentCount())
	for _, s := range e.Segments() {
		keys[s.Key] = true
	}
	for k := range e.trimmed {
		if !keys[k] {
			delete(e.trimmed, k)
		}
	}
	for k := range e.speeds {
		if !keys[k] {
			delete(e.speeds, k)
		}
	}
}

func sorted(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// AddBoundary inserts a boundary at time t.
func (e *Engine) AddBoundary(t float64) {
	e.SetBoundaries(append(e.Boundaries(), t))
}

// RemoveBoundary removes the interior boundary whose frame matches t, if
// any. The outer boundaries 0 and duration cannot be removed.
func (e *Engine) RemoveBoundary(t float64) {
	target := int(math.Round(t * e.fps))
	var kept []float64
	for _, b := range e.boundaries[1 : len(e.boundaries)-1] {
		if int(math.Round(b*e.fps)) == target {
			continue
		}
		kept = append(kept, b)
	}
	e.SetBoundaries(kept)
}

// SetSpeed sets segment i's playback multiplier, clamped to
// [MinSpeed, MaxSpeed]. Returns false for a bad index or non-finite value.
func (e *Engine) SetSpeed(i int, speed float64) bool {
	seg, ok := e.Segment(i)
	if !ok || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return false
	}
	e.speeds[seg.Key] = clamp(speed, MinSpeed, MaxSpeed)
	return true
}

// IsTrimmed reports whether segment i is currently trimmed.
func (e *Engine) IsTrimmed(i int) bool {
	seg, ok := e.Segment(i)
	return ok && seg.Trimmed
}

// CanTrim reports whether segment i may be trimmed. Interior holes are not
// supported: a segment is trimmable only while it is the outermost
// non-trimmed segment walking inward from either end, so the visible
// timeline stays contiguous. The last remaining visible segment cannot be
// trimmed.
func (e *Engine) CanTrim(i int) bool {
	seg, ok := e.Segment(i)
	if !ok || seg.Trimmed {
		return false
	}

	visible := 0
	first, last := -1, -1
	for _, s := range e.Segments() {
		if s.Trimmed {
			continue
		}
		visible++
		if first == -1 {
			first = s.Index
		}
		last = s.Index
	}
	if visible <= 1 {
		return false
	}
	return i == first || i == last
}

// ToggleTrim trims or untrims segment i, coordinating with the crop track
// so the boundary value survives. Trimming runs the whole sequence before
// the membership bit flips, so no caller ever observes a half-applied trim:
//
//  1. capture the interpolated crop at the segment's end frame,
//  2. delete every crop keyframe inside the segment's frame range except a
//     frame-0 permanent keyframe,
//  3. write a trim-origin keyframe at the start frame carrying the captured
//     value,
//  4. mark the segment trimmed.
//
// Untrimming only clears the membership bit; deleted keyframes are gone.
// Returns false when the toggle was rejected (bad index, or trimming would
// break timeline contiguity).
func (e *Engine) ToggleTrim(i int, crop *track.Store[track.Rect]) bool {
	seg, ok := e.Segment(i)
	if !ok {
		return false
	}

	if seg.Trimmed {
		delete(e.trimmed, seg.Key)
		return true
	}

	if !e.CanTrim(i) {
		return false
	}

	if crop != nil {
		captured := crop.At(seg.Key.End)
		crop.RemoveRange(seg.Key.Start, seg.Key.End)
		crop.Set(seg.Key.Start, captured, track.OriginTrim)
	}
	e.trimmed[seg.Key] = true
	return true
}

// restoreState reinstalls trim/speed maps wholesale; used by the codec when
// loading a segments document.
func (e *Engine) restoreState(trimmed map[FrameRange]bool, speeds map[FrameRange]float64) {
	if trimmed != nil {
		e.trimmed = trimmed
	}
	if speeds != nil {
		e.speeds = speeds
	}
}
