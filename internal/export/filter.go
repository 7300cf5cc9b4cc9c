// Package export prepares edit state for the downstream renderer: it prunes
// keyframe sets down to the visible window and emits a cut list of the
// playable segments. Renderers know nothing about trim state and fault on
// out-of-range values, so filtering runs immediately before serialization.
package export

import (
	"github.com/reelcut/reelcut-agent/internal/segment"
	"github.com/reelcut/reelcut-agent/internal/track"
)

// FilterForExport returns only the keyframes whose working time lies inside
// [trimRange.start, trimRange.end], both inclusive. Keyframes in trimmed
// segments have no working time and are dropped too. Without a trim range
// every mapped keyframe is kept.
func FilterForExport[T track.Payload[T]](kfs []track.Keyframe[T], segs *segment.Engine) []track.Keyframe[T] {
	var out []track.Keyframe[T]
	tr := segs.TrimRange()
	for _, kf := range kfs {
		t, ok := segs.SourceFrameToTimelineTime(kf.Frame)
		if !ok {
			continue
		}
		if tr != nil && (t < tr.Start || t > tr.End) {
			continue
		}
		out = append(out, kf)
	}
	return out
}

// Cut is one playable stretch of source footage in render order.
type Cut struct {
	SourceStart float64 `json:"source_start"`
	SourceEnd   float64 `json:"source_end"`
	Speed       float64 `json:"speed"`
}

// VisibleCuts lists the non-trimmed segments, clipped to the outer trim
// window, in timeline order. This is the renderer's play list.
func VisibleCuts(segs *segment.Engine) []Cut {
	tr := segs.TrimRange()

	var out []Cut
	acc := 0.0
	for _, s := range segs.Segments() {
		wl := (s.End - s.Start) / s.Speed
		start, end := acc, acc+wl
		acc = end
		if s.Trimmed {
			continue
		}

		srcStart, srcEnd := s.Start, s.End
		if tr != nil {
			if end <= tr.Start || start >= tr.End {
				continue
			}
			if start < tr.Start {
				srcStart = s.Start + (tr.Start-start)*s.Speed
			}
			if end > tr.End {
				srcEnd = s.Start + (tr.End-start)*s.Speed
			}
		}
		if srcEnd <= srcStart {
			continue
		}
		out = append(out, Cut{SourceStart: srcStart, SourceEnd: srcEnd, Speed: s.Speed})
	}
	return out
}
