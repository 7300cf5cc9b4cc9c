package segment

import (
	"math"
	"testing"
)

func TestSpeedSignConvention(t *testing.T) {
	// Speed 0.5 over 10 seconds of working time consumes 5 seconds of
	// source. The half-speed segment [0,5] therefore occupies working
	// [0,10] and working t=10 lands at source 5s.
	e := NewEngine(20, fps)
	e.SetBoundaries([]float64{5})
	e.SetSpeed(0, 0.5)

	f, ok := e.WorkingTimeToSourceFrame(10)
	if !ok {
		t.Fatal("working t=10 unmapped")
	}
	if want := int(math.Round(5 * fps)); f != want {
		t.Fatalf("frame = %d, want %d (10s working at speed 0.5 = 5s source)", f, want)
	}

	// Halfway through the slow segment: 4s working = 2s source.
	f, ok = e.WorkingTimeToSourceFrame(4)
	if !ok || f != int(math.Round(2*fps)) {
		t.Fatalf("frame = %d ok=%v, want %d", f, ok, int(math.Round(2*fps)))
	}

	if wd := e.WorkingDuration(); math.Abs(wd-25) > 1e-9 {
		t.Errorf("WorkingDuration() = %v, want 25 (10 slow + 15 normal)", wd)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	e := NewEngine(60, fps)
	e.SetBoundaries([]float64{10, 25, 40})
	e.SetSpeed(0, 2.0)
	e.SetSpeed(2, 0.5)

	frameDur := 1.0 / fps
	for _, wt := range []float64{0, 0.5, 3.33, 5, 12.7, 20, 31.25, 44.9, 60} {
		f, ok := e.WorkingTimeToSourceFrame(wt)
		if !ok {
			t.Errorf("t=%v unexpectedly unmapped", wt)
			continue
		}
		back, ok := e.SourceFrameToWorkingTime(f)
		if !ok {
			t.Errorf("frame %d unexpectedly unmapped on the way back", f)
			continue
		}
		if math.Abs(back-wt) > frameDur {
			t.Errorf("round trip t=%v -> frame %d -> %v, off by more than one frame", wt, f, back)
		}
	}
}

func TestTrimmedSegmentUnmapped(t *testing.T) {
	e := NewEngine(30, fps)
	e.SetBoundaries([]float64{10, 20})
	if !e.ToggleTrim(2, nil) {
		t.Fatal("trim rejected")
	}

	// Working [20,30] belongs to the trimmed tail.
	if _, ok := e.WorkingTimeToSourceFrame(25); ok {
		t.Error("time inside a trimmed segment must be unmapped")
	}
	// Source frames inside the trimmed tail have no working time.
	if _, ok := e.SourceFrameToWorkingTime(int(25 * fps)); ok {
		t.Error("source frame inside a trimmed segment must be unmapped")
	}
	// Earlier segments map normally.
	if f, ok := e.WorkingTimeToSourceFrame(5); !ok || f != int(math.Round(5*fps)) {
		t.Errorf("t=5 -> (%d, %v), want (%d, true)", f, ok, int(math.Round(5*fps)))
	}
}

func TestTrimRangeOffset(t *testing.T) {
	e := NewEngine(30, fps)
	e.SetTrimRange(&Range{Start: 5, End: 25})

	// Working t=0 is the trim window's start, i.e. source 5s.
	f, ok := e.WorkingTimeToSourceFrame(0)
	if !ok || f != int(math.Round(5*fps)) {
		t.Fatalf("t=0 -> (%d, %v), want frame %d", f, ok, int(math.Round(5*fps)))
	}

	wt, ok := e.SourceFrameToWorkingTime(int(math.Round(10 * fps)))
	if !ok || math.Abs(wt-5) > 1e-9 {
		t.Fatalf("source 10s -> (%v, %v), want 5", wt, ok)
	}
}

func TestWorkingTimeOutOfRange(t *testing.T) {
	e := NewEngine(10, fps)
	for _, bad := range []float64{-1, 11, math.NaN(), math.Inf(1)} {
		if _, ok := e.WorkingTimeToSourceFrame(bad); ok {
			t.Errorf("t=%v mapped, want unmapped", bad)
		}
	}
	// The timeline end itself maps to the final frame.
	f, ok := e.WorkingTimeToSourceFrame(10)
	if !ok || f != int(math.Round(10*fps)) {
		t.Errorf("t=10 -> (%d, %v), want final frame", f, ok)
	}
}

func TestClampToVisibleSkipsTrimmed(t *testing.T) {
	e := NewEngine(30, fps)
	e.SetBoundaries([]float64{10, 20})
	e.ToggleTrim(0, nil)

	got := e.ClampToVisible(5)
	if math.Abs(got-10) > 1e-9 {
		t.Errorf("ClampToVisible(5) = %v, want 10 (start of first visible segment)", got)
	}

	if got := e.ClampToVisible(15); math.Abs(got-15) > 1e-9 {
		t.Errorf("ClampToVisible(15) = %v, want unchanged", got)
	}
	if got := e.ClampToVisible(-3); math.Abs(got-10) > 1e-9 {
		t.Errorf("ClampToVisible(-3) = %v, want 10", got)
	}
	if got := e.ClampToVisible(99); math.Abs(got-30) > 1e-9 {
		t.Errorf("ClampToVisible(99) = %v, want timeline end", got)
	}
}
