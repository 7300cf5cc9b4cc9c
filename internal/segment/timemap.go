package segment

import "math"

// Speed convention, fixed once for the whole engine: a segment playing at
// speed s consumes s seconds of source per second of working time. Speed
// 0.5 over 10 seconds of working time consumes 5 seconds of source (slow
// motion); a segment of source duration D occupies D/s seconds of the
// working timeline. Trimmed segments still occupy their stretch of the
// working timeline; queries inside them are unmapped.

// workingLen returns the working-timeline length of segment s.
func workingLen(s Segment) float64 {
	return (s.End - s.Start) / s.Speed
}

// WorkingDuration returns the total length of the working timeline across
// all segments, trimmed or not.
func (e *Engine) WorkingDuration() float64 {
	total := 0.0
	for _, s := range e.Segments() {
		total += workingLen(s)
	}
	return total
}

// WorkingTimeToSourceFrame converts a working-timeline time to a source
// frame number. The trim-range start offset is applied first. Returns
// false when t lands inside a trimmed segment or outside the timeline;
// callers treat that as "no source frame here", never as an error.
func (e *Engine) WorkingTimeToSourceFrame(t float64) (int, bool) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	if e.trimRange != nil {
		t += e.trimRange.Start
	}
	if t < 0 {
		return 0, false
	}

	const eps = 1e-9
	acc := 0.0
	segs := e.Segments()
	for i, s := range segs {
		wl := workingLen(s)
		// The final segment owns its end time so t == WorkingDuration maps
		// to the last frame instead of falling off the timeline.
		inside := t < acc+wl || (i == len(segs)-1 && t <= acc+wl+eps)
		if !inside {
			acc += wl
			continue
		}
		if s.Trimmed {
			return 0, false
		}
		src := s.Start + (t-acc)*s.Speed
		if src > s.End {
			src = s.End
		}
		return int(math.Round(src * e.fps)), true
	}
	return 0, false
}

// SourceFrameToWorkingTime is the inverse mapping: the working-timeline
// time at which source frame f plays, relative to the trim-range start.
// Returns false when the frame lies in a trimmed segment or outside the
// clip.
func (e *Engine) SourceFrameToWorkingTime(f int) (float64, bool) {
	t, ok := e.SourceFrameToTimelineTime(f)
	if !ok {
		return 0, false
	}
	if e.trimRange != nil {
		t -= e.trimRange.Start
	}
	return t, true
}

// SourceFrameToTimelineTime maps a source frame onto the full working
// timeline, ignoring the trim-range offset. The export filter compares
// these absolute times against the trim window itself.
func (e *Engine) SourceFrameToTimelineTime(f int) (float64, bool) {
	if f < 0 {
		return 0, false
	}
	src := float64(f) / e.fps
	if src > e.duration {
		return 0, false
	}

	acc := 0.0
	segs := e.Segments()
	for i, s := range segs {
		wl := workingLen(s)
		inside := src < s.End || (i == len(segs)-1 && src <= s.End)
		if !inside {
			acc += wl
			continue
		}
		if s.Trimmed {
			return 0, false
		}
		return acc + (src-s.Start)/s.Speed, true
	}
	return 0, false
}

// InVisibleRange reports whether working time t falls inside the outer trim
// window. With no trim range set, the whole working timeline is visible.
func (e *Engine) InVisibleRange(t float64) bool {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return false
	}
	if e.trimRange == nil {
		return t <= e.WorkingDuration()
	}
	// t is relative to the trim-range start.
	return t <= e.trimRange.End-e.trimRange.Start
}

// SegmentAt returns the segment containing working time t. Like the
// mapping functions, t is relative to the trim-range start.
func (e *Engine) SegmentAt(t float64) (Segment, bool) {
	if math.IsNaN(t) {
		return Segment{}, false
	}
	if e.trimRange != nil {
		t += e.trimRange.Start
	}
	if t < 0 {
		return Segment{}, false
	}
	acc := 0.0
	segs := e.Segments()
	for i, s := range segs {
		wl := workingLen(s)
		if t < acc+wl || (i == len(segs)-1 && t <= acc+wl) {
			return s, true
		}
		acc += wl
	}
	return Segment{}, false
}

// ClampToVisible snaps a working time (trim-relative, like the mapping
// functions) onto the nearest playable instant: inside the trim window and
// not inside a trimmed segment. Playback uses this to skip trimmed regions.
func (e *Engine) ClampToVisible(t float64) float64 {
	offset := 0.0
	lo, hi := 0.0, e.WorkingDuration()
	if e.trimRange != nil {
		offset = e.trimRange.Start
		lo, hi = e.trimRange.Start, e.trimRange.End
	}
	abs := clamp(t+offset, lo, hi)

	seg, ok := e.SegmentAt(abs - offset)
	if !ok || !seg.Trimmed {
		return abs - offset
	}

	// Skip forward to the start of the next visible segment, falling back
	// to the end of the previous one.
	acc := 0.0
	starts := make([]float64, 0, e.SegmentCount())
	for _, s := range e.Segments() {
		starts = append(starts, acc)
		acc += workingLen(s)
	}
	for _, s := range e.Segments() {
		if s.Index > seg.Index && !s.Trimmed && starts[s.Index] <= hi {
			return math.Max(starts[s.Index], lo) - offset
		}
	}
	for i := seg.Index - 1; i >= 0; i-- {
		s, _ := e.Segment(i)
		if !s.Trimmed {
			return clamp(starts[i]+workingLen(s), lo, hi) - offset
		}
	}
	return lo - offset
}
