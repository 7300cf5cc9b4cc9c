package track

import (
	"encoding/json"
	"testing"
)

func TestDecodeCrop_DropsMalformedPoints(t *testing.T) {
	data := []byte(`[
		{"frame": 0, "x": 0, "y": 0, "width": 1920, "height": 1080, "origin": "permanent"},
		{"frame": null, "x": 1, "y": 1, "width": 10, "height": 10, "origin": "user"},
		{"frame": -5, "x": 1, "y": 1, "width": 10, "height": 10, "origin": "user"},
		{"frame": 30, "x": 1, "y": 1, "width": -10, "height": 10, "origin": "user"},
		{"frame": 60, "x": 5, "y": 5, "width": 640, "height": 360, "origin": "user"},
		{"frame": 90, "y": 5, "width": 640, "height": 360, "origin": "user"}
	]`)

	s, err := DecodeCrop(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 surviving points", s.Len())
	}
	if _, ok := s.Get(0); !ok {
		t.Error("frame 0 missing")
	}
	if _, ok := s.Get(60); !ok {
		t.Error("frame 60 missing")
	}
}

func TestDecodeCrop_UnknownOriginBecomesUser(t *testing.T) {
	data := []byte(`[{"frame": 5, "x": 0, "y": 0, "width": 10, "height": 10, "origin": "mystery"}]`)
	s, err := DecodeCrop(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kf, ok := s.Get(5)
	if !ok {
		t.Fatal("frame 5 missing")
	}
	// FromKeyframes promotes the sole keyframe to permanent; the parsed
	// origin before promotion must have been user, so verify via a
	// two-point document instead.
	_ = kf

	data = []byte(`[
		{"frame": 0, "x": 0, "y": 0, "width": 10, "height": 10, "origin": "permanent"},
		{"frame": 5, "x": 0, "y": 0, "width": 10, "height": 10, "origin": "mystery"}
	]`)
	s, err = DecodeCrop(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kf, _ = s.Get(5)
	if kf.Origin != OriginUser {
		t.Errorf("origin = %q, want user for unknown origin string", kf.Origin)
	}
}

func TestDecodeCrop_BadJSON(t *testing.T) {
	if _, err := DecodeCrop([]byte(`{"not": "an array"}`)); err == nil {
		t.Fatal("expected error for non-array document")
	}
}

func TestEncodeCrop_RoundTrip(t *testing.T) {
	s := NewStore(Rect{Width: 1920, Height: 1080}, 300)
	s.Set(150, Rect{X: 10, Y: 20, Width: 640, Height: 360}, OriginUser)

	data, err := EncodeCrop(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("encoded crop data is not valid JSON: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("encoded %d points, want 3", len(raw))
	}

	back, err := DecodeCrop(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Len() != 3 {
		t.Fatalf("round-trip Len() = %d, want 3", back.Len())
	}
	kf, _ := back.Get(150)
	if kf.Value != (Rect{X: 10, Y: 20, Width: 640, Height: 360}) {
		t.Errorf("round-trip value = %+v", kf.Value)
	}
	if kf.Origin != OriginUser {
		t.Errorf("round-trip origin = %q, want user", kf.Origin)
	}
}
