package region

import (
	"math"
	"testing"

	"github.com/reelcut/reelcut-agent/internal/track"
)

const fps = 30.0

var testShape = track.Ellipse{X: 100, Y: 100, RadiusX: 40, RadiusY: 25, Opacity: 0.9, Color: "#ffee00"}

func TestNew_DefaultDuration(t *testing.T) {
	r := New(2, 60, fps, testShape)

	if math.Abs(r.Duration()-DefaultDuration) > 1e-9 {
		t.Errorf("Duration() = %v, want %v", r.Duration(), DefaultDuration)
	}
	if r.ID == "" {
		t.Error("region has no id")
	}
	if !r.Enabled {
		t.Error("new region not enabled")
	}
	if r.IsEndKeyframeExplicit {
		t.Error("end keyframe explicit before any edit")
	}
	if r.Keyframes.Len() != 2 {
		t.Errorf("keyframe count = %d, want 2", r.Keyframes.Len())
	}
}

func TestNew_ClampedToAvailableSpace(t *testing.T) {
	r := New(59, 60, fps, testShape)

	// Only 1s of room: clamped below default but held at the 0.5s floor...
	if math.Abs(r.Duration()-1.0) > 1e-9 {
		t.Errorf("Duration() = %v, want 1.0", r.Duration())
	}

	// ...and with less room than the floor, the floor wins.
	r = New(59.9, 60, fps, testShape)
	if math.Abs(r.Duration()-MinDuration) > 1e-9 {
		t.Errorf("Duration() = %v, want %v", r.Duration(), MinDuration)
	}
}

func TestEndKeyframeMirrorsStart(t *testing.T) {
	r := New(0, 60, fps, testShape)
	startF, endF := r.frameBounds(fps)

	moved := testShape
	moved.X = 500
	r.SetShapeAt(startF, moved, fps)

	if got := r.ShapeAt(endF); got.X != 500 {
		t.Errorf("end shape X = %v, want mirrored 500", got.X)
	}
	if r.IsEndKeyframeExplicit {
		t.Error("mirroring must not mark the end keyframe explicit")
	}

	// Explicitly editing the end stops the mirroring.
	endShape := testShape
	endShape.X = 900
	r.SetShapeAt(endF, endShape, fps)
	if !r.IsEndKeyframeExplicit {
		t.Fatal("end keyframe not explicit after direct edit")
	}

	moved.X = 10
	r.SetShapeAt(startF, moved, fps)
	if got := r.ShapeAt(endF); got.X != 900 {
		t.Errorf("end shape X = %v after start edit, want 900 (no more mirroring)", got.X)
	}
}

func TestSetShapeAt_InteriorUserKeyframe(t *testing.T) {
	r := New(0, 60, fps, testShape)
	startF, endF := r.frameBounds(fps)
	mid := (startF + endF) / 2

	shape := testShape
	shape.Opacity = 0.1
	r.SetShapeAt(mid, shape, fps)

	kf, ok := r.Keyframes.Get(mid)
	if !ok {
		t.Fatal("interior keyframe missing")
	}
	if kf.Origin != track.OriginUser {
		t.Errorf("interior origin = %q, want user", kf.Origin)
	}

	// Outside the region's bounds: no-op.
	r.SetShapeAt(endF+1000, shape, fps)
	if _, ok := r.Keyframes.Get(endF + 1000); ok {
		t.Error("keyframe written outside region bounds")
	}
}

func TestContains(t *testing.T) {
	r := New(5, 60, fps, testShape)
	for _, tc := range []struct {
		t    float64
		want bool
	}{
		{5, true}, {6.5, true}, {8, true}, {4.99, false}, {8.01, false},
	} {
		if got := r.Contains(tc.t); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}
