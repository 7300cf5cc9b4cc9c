// Package track holds frame-indexed keyframes for a single visual property
// track (the crop rectangle or a highlight shape) and interpolates between
// them. Frames are integers at rest; fractional time only exists at the
// JSON boundary and in the segment timeline math.
package track

import (
	"math"
	"sort"
)

// Origin classifies why a keyframe exists.
type Origin string

const (
	// OriginPermanent marks structurally required keyframes (track start,
	// track end). They survive ordinary Remove calls.
	OriginPermanent Origin = "permanent"
	// OriginUser marks keyframes explicitly authored by an edit action.
	OriginUser Origin = "user"
	// OriginTrim marks keyframes synthesized when a segment is trimmed, to
	// preserve the visual value at the trim boundary.
	OriginTrim Origin = "trim"
)

// Payload is a spatial value that can be decomposed into numeric components
// for interpolation. WithComponents rebuilds a value from interpolated
// components; non-numeric fields (a highlight's color) are carried over from
// the receiver.
type Payload[T any] interface {
	Components() []float64
	WithComponents(c []float64) T
}

// Rect is a crop rectangle in pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Components() []float64 {
	return []float64{r.X, r.Y, r.Width, r.Height}
}

func (r Rect) WithComponents(c []float64) Rect {
	return Rect{X: c[0], Y: c[1], Width: c[2], Height: c[3]}
}

// Ellipse is a highlight shape. Color does not interpolate; it holds the
// value of the earlier keyframe.
type Ellipse struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	RadiusX float64 `json:"radiusX"`
	RadiusY float64 `json:"radiusY"`
	Opacity float64 `json:"opacity"`
	Color   string  `json:"color"`
}

func (e Ellipse) Components() []float64 {
	return []float64{e.X, e.Y, e.RadiusX, e.RadiusY, e.Opacity}
}

func (e Ellipse) WithComponents(c []float64) Ellipse {
	return Ellipse{X: c[0], Y: c[1], RadiusX: c[2], RadiusY: c[3], Opacity: c[4], Color: e.Color}
}

// Keyframe is one control point on a track.
type Keyframe[T Payload[T]] struct {
	Frame  int
	Value  T
	Origin Origin
}

// Store is an ordered collection of keyframes for one track. The zero value
// is not usable; construct with NewStore or FromKeyframes so the permanent
// keyframe invariant holds.
type Store[T Payload[T]] struct {
	points []Keyframe[T]
}

// NewStore builds a track with permanent keyframes carrying def at frame 0
// and at lastFrame (when lastFrame > 0).
func NewStore[T Payload[T]](def T, lastFrame int) *Store[T] {
	s := &Store[T]{}
	s.points = append(s.points, Keyframe[T]{Frame: 0, Value: def, Origin: OriginPermanent})
	if lastFrame > 0 {
		s.points = append(s.points, Keyframe[T]{Frame: lastFrame, Value: def, Origin: OriginPermanent})
	}
	return s
}

// FromKeyframes builds a store from an existing keyframe list, sorting by
// frame and dropping negative frames and non-finite components. If no
// permanent keyframe survives, the first one is promoted so the invariant
// holds.
func FromKeyframes[T Payload[T]](kfs []Keyframe[T]) *Store[T] {
	s := &Store[T]{}
	for _, kf := range kfs {
		if kf.Frame < 0 || !finite(kf.Value.Components()) {
			continue
		}
		s.Set(kf.Frame, kf.Value, kf.Origin)
	}
	if len(s.points) > 0 && !s.hasPermanent() {
		s.points[0].Origin = OriginPermanent
	}
	return s
}

func (s *Store[T]) hasPermanent() bool {
	for _, kf := range s.points {
		if kf.Origin == OriginPermanent {
			return true
		}
	}
	return false
}

func finite(c []float64) bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Len returns the number of keyframes.
func (s *Store[T]) Len() int {
	return len(s.points)
}

// Keyframes returns a copy of the keyframe list in frame order.
func (s *Store[T]) Keyframes() []Keyframe[T] {
	out := make([]Keyframe[T], len(s.points))
	copy(out, s.points)
	return out
}

// Get returns the explicit keyframe at frame, if one exists.
func (s *Store[T]) Get(frame int) (Keyframe[T], bool) {
	i := s.search(frame)
	if i < len(s.points) && s.points[i].Frame == frame {
		return s.points[i], true
	}
	return Keyframe[T]{}, false
}

// search returns the index of the first keyframe with Frame >= frame.
func (s *Store[T]) search(frame int) int {
	return sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Frame >= frame
	})
}

// Set inserts or overwrites the keyframe at frame, keeping the store sorted.
// Negative frames and non-finite payloads are rejected as no-ops; invalid
// operands must never reach the interpolation math.
func (s *Store[T]) Set(frame int, v T, origin Origin) {
	if frame < 0 || !finite(v.Components()) {
		return
	}
	i := s.search(frame)
	if i < len(s.points) && s.points[i].Frame == frame {
		// Overwriting a permanent keyframe keeps it permanent so the
		// track cannot lose its structural anchors.
		if s.points[i].Origin == OriginPermanent {
			origin = OriginPermanent
		}
		s.points[i].Value = v
		s.points[i].Origin = origin
		return
	}
	s.points = append(s.points, Keyframe[T]{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = Keyframe[T]{Frame: frame, Value: v, Origin: origin}
}

// Remove deletes the keyframe at frame. Permanent keyframes and absent
// frames are silent no-ops.
func (s *Store[T]) Remove(frame int) {
	i := s.search(frame)
	if i >= len(s.points) || s.points[i].Frame != frame {
		return
	}
	if s.points[i].Origin == OriginPermanent {
		return
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
}

// RemoveRange is segment-trim cleanup: it deletes every keyframe whose frame
// lies in [start, end], including permanent ones, except a permanent
// keyframe at frame 0.
func (s *Store[T]) RemoveRange(start, end int) {
	kept := s.points[:0]
	for _, kf := range s.points {
		inRange := kf.Frame >= start && kf.Frame <= end
		if inRange && !(kf.Frame == 0 && kf.Origin == OriginPermanent) {
			continue
		}
		kept = append(kept, kf)
	}
	s.points = kept
}
