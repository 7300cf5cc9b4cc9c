package region

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/track"
)

// The highlights wire format carries floating-point times, not frames.
// Frame conversion happens here, at the boundary, and nowhere else.

type highlightKeyframeJSON struct {
	// Time is a pointer so a null or absent time is distinguishable and
	// can be dropped. Keyframes with null times once reached a downstream
	// renderer's sort comparator and crashed it; they stop here.
	Time    *float64 `json:"time"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	RadiusX float64  `json:"radiusX"`
	RadiusY float64  `json:"radiusY"`
	Opacity float64  `json:"opacity"`
	Color   string   `json:"color"`
}

type regionJSON struct {
	ID        string                  `json:"id"`
	StartTime float64                 `json:"start_time"`
	EndTime   float64                 `json:"end_time"`
	Enabled   bool                    `json:"enabled"`
	Keyframes []highlightKeyframeJSON `json:"keyframes"`
}

type highlightsJSON struct {
	Regions []regionJSON `json:"regions"`
}

// DecodeHighlights parses a highlights-data document. Keyframes with null,
// NaN or negative times are dropped rather than propagated; a region left
// with no keyframes is dropped entirely. Regions without an id get one.
func DecodeHighlights(data []byte, fps float64) ([]*Region, error) {
	var raw highlightsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse highlights data: %w", err)
	}

	var out []*Region
	for _, rr := range raw.Regions {
		var kfs []track.Keyframe[track.Ellipse]
		for _, kf := range rr.Keyframes {
			if kf.Time == nil || math.IsNaN(*kf.Time) || math.IsInf(*kf.Time, 0) || *kf.Time < 0 {
				continue
			}
			kfs = append(kfs, track.Keyframe[track.Ellipse]{
				Frame: int(math.Round(*kf.Time * fps)),
				Value: track.Ellipse{
					X:       kf.X,
					Y:       kf.Y,
					RadiusX: kf.RadiusX,
					RadiusY: kf.RadiusY,
					Opacity: kf.Opacity,
					Color:   kf.Color,
				},
				Origin: track.OriginUser,
			})
		}
		if len(kfs) == 0 {
			continue
		}

		store := track.FromKeyframes(kfs)
		points := store.Keyframes()
		store.Set(points[0].Frame, points[0].Value, track.OriginPermanent)
		store.Set(points[len(points)-1].Frame, points[len(points)-1].Value, track.OriginPermanent)

		id := rr.ID
		if id == "" {
			id = uuid.NewString()
		}
		start := rr.StartTime
		end := rr.EndTime
		if end <= start {
			start = float64(points[0].Frame) / fps
			end = float64(points[len(points)-1].Frame) / fps
		}
		out = append(out, &Region{
			ID:                    id,
			StartTime:             start,
			EndTime:               end,
			Enabled:               rr.Enabled,
			Keyframes:             store,
			IsEndKeyframeExplicit: true,
		})
	}
	return out, nil
}

// EncodeHighlights serializes regions back into the highlights wire shape.
func EncodeHighlights(regions []*Region, fps float64) ([]byte, error) {
	doc := highlightsJSON{Regions: make([]regionJSON, 0, len(regions))}
	for _, r := range regions {
		rr := regionJSON{
			ID:        r.ID,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Enabled:   r.Enabled,
		}
		for _, kf := range r.Keyframes.Keyframes() {
			t := float64(kf.Frame) / fps
			rr.Keyframes = append(rr.Keyframes, highlightKeyframeJSON{
				Time:    &t,
				X:       kf.Value.X,
				Y:       kf.Value.Y,
				RadiusX: kf.Value.RadiusX,
				RadiusY: kf.Value.RadiusY,
				Opacity: kf.Value.Opacity,
				Color:   kf.Value.Color,
			})
		}
		doc.Regions = append(doc.Regions, rr)
	}
	return json.Marshal(doc)
}
