package segment

import (
	"encoding/json"
	"testing"
)

func TestDecodeSegments_FullDocument(t *testing.T) {
	data := []byte(`{
		"boundaries": [0, 10, 20, 30],
		"segmentSpeeds": {"1": 2.0, "9": 3.0, "x": 4.0},
		"trimmedSegments": [{"start": 600, "end": 900}],
		"trimRange": {"start": 0, "end": 22}
	}`)

	e, err := DecodeSegments(data, 30, fps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.SegmentCount() != 3 {
		t.Fatalf("SegmentCount() = %d, want 3", e.SegmentCount())
	}
	if seg, _ := e.Segment(1); seg.Speed != 2.0 {
		t.Errorf("segment 1 speed = %v, want 2.0", seg.Speed)
	}
	if !e.IsTrimmed(2) {
		t.Error("segment [20,30] not trimmed after load")
	}
	tr := e.TrimRange()
	if tr == nil || tr.End != 22 {
		t.Errorf("trimRange = %+v, want end 22", tr)
	}
}

func TestDecodeSegments_DropsDeadTrimKeys(t *testing.T) {
	data := []byte(`{
		"boundaries": [0, 10, 20],
		"trimmedSegments": [{"start": 123, "end": 456}],
		"trimRange": null
	}`)

	e, err := DecodeSegments(data, 20, fps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < e.SegmentCount(); i++ {
		if e.IsTrimmed(i) {
			t.Errorf("segment %d trimmed from a key matching no segment", i)
		}
	}
}

func TestDecodeSegments_BadJSON(t *testing.T) {
	if _, err := DecodeSegments([]byte(`[]`), 10, fps); err == nil {
		t.Fatal("expected error for wrong document shape")
	}
}

func TestEncodeSegments_RoundTrip(t *testing.T) {
	e := NewEngine(30, fps)
	e.SetBoundaries([]float64{10, 20})
	e.SetSpeed(0, 1.5)
	e.ToggleTrim(2, nil)
	e.SetTrimRange(&Range{Start: 1, End: 18})

	data, err := EncodeSegments(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("encoded segments data is not valid JSON: %v", err)
	}
	speeds, ok := doc["segmentSpeeds"].(map[string]any)
	if !ok || speeds["0"] != 1.5 {
		t.Errorf("segmentSpeeds = %v, want {\"0\": 1.5}", doc["segmentSpeeds"])
	}

	back, err := DecodeSegments(data, 30, fps)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if seg, _ := back.Segment(0); seg.Speed != 1.5 {
		t.Errorf("round-trip speed = %v, want 1.5", seg.Speed)
	}
	if !back.IsTrimmed(2) {
		t.Error("round-trip lost trim state")
	}
	tr := back.TrimRange()
	if tr == nil || tr.Start != 1 || tr.End != 18 {
		t.Errorf("round-trip trimRange = %+v", tr)
	}
}
