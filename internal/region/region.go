// Package region models highlight annotations: time-bounded regions of
// ellipse keyframes on the working timeline, and the transformer that
// projects them between differently edited versions of the same source
// footage.
package region

import (
	"math"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/track"
)

const (
	// DefaultDuration is a new region's length before editing.
	DefaultDuration = 3.0
	// MinDuration is the floor applied when the clip has less room than
	// DefaultDuration.
	MinDuration = 0.5
)

// ClipRef identifies the raw source clip a region was authored against.
// Two sessions sharing a ClipRef are differently edited views of the same
// footage, which is what makes cross-context projection meaningful.
type ClipRef struct {
	SourcePath string `json:"source_path"`
	StartFrame int    `json:"start_frame"`
	EndFrame   int    `json:"end_frame"`
}

// Region is one highlight annotation. Keyframe frames are working-timeline
// frames; StartTime/EndTime are the same interval in seconds.
type Region struct {
	ID        string
	StartTime float64
	EndTime   float64
	Enabled   bool
	Keyframes *track.Store[track.Ellipse]

	// IsEndKeyframeExplicit records whether the end keyframe has been
	// edited on its own. Until then it mirrors the start keyframe.
	IsEndKeyframeExplicit bool
}

// New creates a region starting at start seconds. The duration defaults to
// DefaultDuration, clamped to the room left before available, with a floor
// of MinDuration. The end keyframe mirrors shape until explicitly edited.
func New(start, available, fps float64, shape track.Ellipse) *Region {
	if start < 0 || math.IsNaN(start) {
		start = 0
	}
	dur := DefaultDuration
	if room := available - start; room < dur {
		dur = room
	}
	if dur < MinDuration {
		dur = MinDuration
	}

	startFrame := int(math.Round(start * fps))
	endFrame := int(math.Round((start + dur) * fps))
	if endFrame <= startFrame {
		endFrame = startFrame + 1
	}

	kfs := track.FromKeyframes([]track.Keyframe[track.Ellipse]{
		{Frame: startFrame, Value: shape, Origin: track.OriginPermanent},
		{Frame: endFrame, Value: shape, Origin: track.OriginPermanent},
	})

	return &Region{
		ID:        uuid.NewString(),
		StartTime: start,
		EndTime:   start + dur,
		Enabled:   true,
		Keyframes: kfs,
	}
}

// Duration returns the region's length in seconds.
func (r *Region) Duration() float64 {
	return r.EndTime - r.StartTime
}

func (r *Region) frameBounds(fps float64) (int, int) {
	return int(math.Round(r.StartTime * fps)), int(math.Round(r.EndTime * fps))
}

// SetShapeAt writes a keyframe at frame. Editing the start keyframe while
// the end keyframe is still implicit mirrors the shape onto the end;
// editing the end keyframe itself makes it explicit.
func (r *Region) SetShapeAt(frame int, shape track.Ellipse, fps float64) {
	startF, endF := r.frameBounds(fps)
	switch frame {
	case startF:
		r.Keyframes.Set(startF, shape, track.OriginPermanent)
		if !r.IsEndKeyframeExplicit {
			r.Keyframes.Set(endF, shape, track.OriginPermanent)
		}
	case endF:
		r.Keyframes.Set(endF, shape, track.OriginPermanent)
		r.IsEndKeyframeExplicit = true
	default:
		if frame > startF && frame < endF {
			r.Keyframes.Set(frame, shape, track.OriginUser)
		}
	}
}

// ShapeAt returns the interpolated shape at a working frame.
func (r *Region) ShapeAt(frame int) track.Ellipse {
	return r.Keyframes.At(frame)
}

// Contains reports whether working time t lies inside the region.
func (r *Region) Contains(t float64) bool {
	return t >= r.StartTime && t <= r.EndTime
}
