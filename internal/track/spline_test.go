package track

import (
	"math"
	"testing"
)

func rectStore(t *testing.T, points map[int]Rect) *Store[Rect] {
	t.Helper()
	var kfs []Keyframe[Rect]
	for frame, r := range points {
		kfs = append(kfs, Keyframe[Rect]{Frame: frame, Value: r, Origin: OriginUser})
	}
	return FromKeyframes(kfs)
}

func TestAt_ExactAtControlPoints(t *testing.T) {
	points := map[int]Rect{
		0:   {X: 0, Y: 0, Width: 1920, Height: 1080},
		30:  {X: 100, Y: 50, Width: 1280, Height: 720},
		90:  {X: 400, Y: 200, Width: 640, Height: 360},
		120: {X: 10, Y: 10, Width: 800, Height: 450},
		200: {X: 0, Y: 0, Width: 1920, Height: 1080},
	}
	s := rectStore(t, points)

	for frame, want := range points {
		got := s.At(frame)
		if got != want {
			t.Errorf("At(%d) = %+v, want exactly %+v", frame, got, want)
		}
	}
}

func TestAt_ClampsOutsideRange(t *testing.T) {
	s := rectStore(t, map[int]Rect{
		10: {X: 1, Width: 10, Height: 10},
		20: {X: 2, Width: 10, Height: 10},
	})

	if got := s.At(0); got.X != 1 {
		t.Errorf("At(0).X = %v, want first keyframe value 1", got.X)
	}
	if got := s.At(500); got.X != 2 {
		t.Errorf("At(500).X = %v, want last keyframe value 2", got.X)
	}
}

func TestAt_LinearWithTwoPoints(t *testing.T) {
	s := rectStore(t, map[int]Rect{
		0:   {X: 0, Width: 100, Height: 100},
		100: {X: 100, Width: 200, Height: 100},
	})

	got := s.At(25)
	if got.X != 25 {
		t.Errorf("At(25).X = %v, want 25", got.X)
	}
	if got.Width != 125 {
		t.Errorf("At(25).Width = %v, want 125", got.Width)
	}
}

func TestAt_SplineStaysSmoothAndFinite(t *testing.T) {
	s := rectStore(t, map[int]Rect{
		0:   {X: 0, Width: 100, Height: 100},
		30:  {X: 30, Width: 100, Height: 100},
		60:  {X: 90, Width: 100, Height: 100},
		100: {X: 100, Width: 100, Height: 100},
	})

	prev := s.At(0).X
	for f := 1; f <= 100; f++ {
		got := s.At(f)
		for _, v := range got.Components() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("At(%d) produced non-finite component %v", f, v)
			}
		}
		// X is monotonically increasing at the control points; the spline
		// should not swing wildly between them.
		if got.X < prev-15 {
			t.Fatalf("At(%d).X = %v dipped far below previous %v", f, got.X, prev)
		}
		prev = got.X
	}
}

func TestAt_SplineInterior(t *testing.T) {
	// Four evenly spaced collinear points: the spline must reproduce the
	// line between the middle pair.
	s := rectStore(t, map[int]Rect{
		0:  {X: 0, Width: 10, Height: 10},
		10: {X: 10, Width: 10, Height: 10},
		20: {X: 20, Width: 10, Height: 10},
		30: {X: 30, Width: 10, Height: 10},
	})

	got := s.At(15)
	if math.Abs(got.X-15) > 1e-9 {
		t.Errorf("At(15).X = %v, want 15 (spline through collinear points)", got.X)
	}
}

func TestAt_SingleKeyframe(t *testing.T) {
	s := NewStore(Rect{X: 7, Width: 10, Height: 10}, 0)
	for _, f := range []int{0, 1, 100} {
		if got := s.At(f); got.X != 7 {
			t.Errorf("At(%d).X = %v, want 7", f, got.X)
		}
	}
}
