package region

import (
	"math"

	"github.com/reelcut/reelcut-agent/internal/segment"
	"github.com/reelcut/reelcut-agent/internal/space"
	"github.com/reelcut/reelcut-agent/internal/track"
)

// SourceKeyframe is one region keyframe expressed in source coordinates:
// a source frame number and a shape in source pixels.
type SourceKeyframe struct {
	Frame   int           `json:"frame"`
	Shape   track.Ellipse `json:"shape"`
	Origin  track.Origin  `json:"origin"`
	Visible bool          `json:"visible"`
}

// SourceRegion is a region projected out of a particular edited context.
// OriginalDuration preserves the authored length for reference; the
// keyframes alone cannot reproduce it once speed remapping is involved.
type SourceRegion struct {
	ID               string           `json:"id"`
	Clip             ClipRef          `json:"clip"`
	Enabled          bool             `json:"enabled"`
	Keyframes        []SourceKeyframe `json:"keyframes"`
	OriginalDuration float64          `json:"original_duration"`
}

// ToSource projects a region authored in one edited context into source
// space. Each keyframe's working frame resolves to a source frame through
// the segment engine (keyframes in trimmed ranges are dropped), the crop
// active at that source frame comes from the crop track, and the shape maps
// through it into source pixels. Returns nil when no keyframe survives,
// meaning the whole region sat inside trimmed footage.
func ToSource(r *Region, clip ClipRef, crop *track.Store[track.Rect], segs *segment.Engine, dims space.Dims) *SourceRegion {
	if r == nil || r.Keyframes == nil {
		return nil
	}

	out := &SourceRegion{
		ID:               r.ID,
		Clip:             clip,
		Enabled:          r.Enabled,
		OriginalDuration: r.Duration(),
	}

	fps := segs.FPS()
	for _, kf := range r.Keyframes.Keyframes() {
		wt := float64(kf.Frame) / fps
		sf, ok := segs.WorkingTimeToSourceFrame(wt)
		if !ok {
			continue
		}
		cropRect := crop.At(sf)
		shape, visible := space.EllipseWorkingToSource(kf.Value, cropRect, dims)
		out.Keyframes = append(out.Keyframes, SourceKeyframe{
			Frame:   sf,
			Shape:   shape,
			Origin:  kf.Origin,
			Visible: visible,
		})
	}
	if len(out.Keyframes) == 0 {
		return nil
	}
	return out
}

// ToWorking projects a source-space region into the edited context
// described by crop, segs and dims, typically a re-edited version of the
// clip the region was authored against. Keyframes whose source frame falls
// in trimmed footage or outside the visible window are omitted, as are
// keyframes whose shape maps outside the working frame. Returns nil when
// nothing survives: there is no equivalent effect in this context.
func ToWorking(sr *SourceRegion, crop *track.Store[track.Rect], segs *segment.Engine, dims space.Dims) *Region {
	if sr == nil || len(sr.Keyframes) == 0 {
		return nil
	}

	fps := segs.FPS()
	var kfs []track.Keyframe[track.Ellipse]
	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, kf := range sr.Keyframes {
		wt, ok := segs.SourceFrameToWorkingTime(kf.Frame)
		if !ok || wt < 0 || !segs.InVisibleRange(wt) {
			continue
		}
		cropRect := crop.At(kf.Frame)
		shape, visible := space.EllipseSourceToWorking(kf.Shape, cropRect, dims)
		if !visible {
			continue
		}
		kfs = append(kfs, track.Keyframe[track.Ellipse]{
			Frame:  int(math.Round(wt * fps)),
			Value:  shape,
			Origin: kf.Origin,
		})
		minT = math.Min(minT, wt)
		maxT = math.Max(maxT, wt)
	}
	if len(kfs) == 0 {
		return nil
	}

	// The projected start/end anchors must be permanent regardless of
	// which original keyframes survived.
	kfs[0].Origin = track.OriginPermanent
	kfs[len(kfs)-1].Origin = track.OriginPermanent

	return &Region{
		ID:                    sr.ID,
		StartTime:             minT,
		EndTime:               maxT,
		Enabled:               sr.Enabled,
		Keyframes:             track.FromKeyframes(kfs),
		IsEndKeyframeExplicit: true,
	}
}
