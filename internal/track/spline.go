package track

// At returns the interpolated payload at frame. Queries at or before the
// first keyframe return the first payload; at or after the last, the last.
// Between keyframes each numeric component is interpolated with a
// non-uniform Catmull-Rom spline (cubic Hermite with tangents derived from
// the bracketing keyframes' neighbors); when a neighbor is missing near the
// track boundary the span falls back to linear interpolation. Frames that
// carry an explicit keyframe always reproduce that keyframe's payload
// exactly.
func (s *Store[T]) At(frame int) T {
	var zero T
	if len(s.points) == 0 {
		return zero
	}
	if frame <= s.points[0].Frame {
		return s.points[0].Value
	}
	last := len(s.points) - 1
	if frame >= s.points[last].Frame {
		return s.points[last].Value
	}

	// First keyframe with Frame >= frame; the query is strictly inside the
	// track so 0 < i <= last here.
	i := s.search(frame)
	if s.points[i].Frame == frame {
		return s.points[i].Value
	}

	p1 := s.points[i-1]
	p2 := s.points[i]
	f1 := float64(p1.Frame)
	f2 := float64(p2.Frame)
	t := (float64(frame) - f1) / (f2 - f1)

	c1 := p1.Value.Components()
	c2 := p2.Value.Components()

	if i-2 < 0 || i+1 >= len(s.points) {
		// Not enough neighbors for a 4-point spline window.
		return p1.Value.WithComponents(lerpComponents(c1, c2, t))
	}

	p0 := s.points[i-2]
	p3 := s.points[i+1]
	f0 := float64(p0.Frame)
	f3 := float64(p3.Frame)
	c0 := p0.Value.Components()
	c3 := p3.Value.Components()

	out := make([]float64, len(c1))
	for k := range out {
		// Finite-difference tangents scaled to the span so uneven
		// keyframe spacing does not overshoot.
		m1 := (c2[k] - c0[k]) / (f2 - f0) * (f2 - f1)
		m2 := (c3[k] - c1[k]) / (f3 - f1) * (f2 - f1)
		out[k] = hermite(c1[k], c2[k], m1, m2, t)
	}
	return p1.Value.WithComponents(out)
}

func lerpComponents(a, b []float64, t float64) []float64 {
	out := make([]float64, len(a))
	for k := range out {
		out[k] = a[k] + (b[k]-a[k])*t
	}
	return out
}

// hermite evaluates the cubic Hermite basis at t in [0,1]. At t=0 it yields
// exactly a, at t=1 exactly b, which is what keeps explicit keyframes exact.
func hermite(a, b, ma, mb, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*a + h10*ma + h01*b + h11*mb
}
