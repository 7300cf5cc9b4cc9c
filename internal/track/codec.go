package track

import (
	"encoding/json"
	"fmt"
)

// cropPointJSON is the wire shape for one crop keyframe. Pointer fields let
// the decoder tell "absent or null" apart from zero so malformed points can
// be dropped instead of silently becoming zeros.
type cropPointJSON struct {
	Frame  *int     `json:"frame"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Origin string   `json:"origin"`
}

// DecodeCrop parses a crop-data document (an ordered array of keyframes).
// Points with a null frame, a negative frame, missing coordinates, or
// negative dimensions are dropped; they must never reach the interpolation
// math. A decode error is returned only for malformed JSON, not for bad
// points.
func DecodeCrop(data []byte) (*Store[Rect], error) {
	var raw []cropPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse crop data: %w", err)
	}

	var kfs []Keyframe[Rect]
	for _, p := range raw {
		if p.Frame == nil || *p.Frame < 0 {
			continue
		}
		if p.X == nil || p.Y == nil || p.Width == nil || p.Height == nil {
			continue
		}
		if *p.Width < 0 || *p.Height < 0 {
			continue
		}
		kfs = append(kfs, Keyframe[Rect]{
			Frame:  *p.Frame,
			Value:  Rect{X: *p.X, Y: *p.Y, Width: *p.Width, Height: *p.Height},
			Origin: parseOrigin(p.Origin),
		})
	}
	return FromKeyframes(kfs), nil
}

func parseOrigin(s string) Origin {
	switch Origin(s) {
	case OriginPermanent, OriginUser, OriginTrim:
		return Origin(s)
	default:
		return OriginUser
	}
}

// EncodeCrop serializes the store back into the crop-data wire shape.
func EncodeCrop(s *Store[Rect]) ([]byte, error) {
	out := make([]map[string]any, 0, s.Len())
	for _, kf := range s.Keyframes() {
		out = append(out, map[string]any{
			"frame":  kf.Frame,
			"x":      kf.Value.X,
			"y":      kf.Value.Y,
			"width":  kf.Value.Width,
			"height": kf.Value.Height,
			"origin": string(kf.Origin),
		})
	}
	return json.Marshal(out)
}
