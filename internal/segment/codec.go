package segment

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// segmentsJSON is the segments-data wire shape. Speeds are keyed by segment
// index rendered as a string, which is only meaningful against the boundary
// list in the same document. Trim membership is persisted under its stable
// frame-range keys.
type segmentsJSON struct {
	Boundaries      []float64          `json:"boundaries"`
	SegmentSpeeds   map[string]float64 `json:"segmentSpeeds"`
	TrimmedSegments []FrameRange       `json:"trimmedSegments,omitempty"`
	TrimRange       *Range             `json:"trimRange"`
}

// DecodeSegments parses a segments-data document into a fresh engine for a
// clip of the given duration and framerate. Non-finite boundaries and
// speeds are dropped; speed indexes that do not resolve to a segment are
// ignored.
func DecodeSegments(data []byte, duration, fps float64) (*Engine, error) {
	var raw segmentsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse segments data: %w", err)
	}

	e := NewEngine(duration, fps)
	e.SetBoundaries(raw.Boundaries)

	speeds := make(map[FrameRange]float64)
	for idx, mult := range raw.SegmentSpeeds {
		i, err := strconv.Atoi(idx)
		if err != nil || math.IsNaN(mult) || math.IsInf(mult, 0) {
			continue
		}
		seg, ok := e.Segment(i)
		if !ok {
			continue
		}
		speeds[seg.Key] = clamp(mult, MinSpeed, MaxSpeed)
	}

	trimmed := make(map[FrameRange]bool)
	keys := make(map[FrameRange]bool, e.SegmentCount())
	for _, s := range e.Segments() {
		keys[s.Key] = true
	}
	for _, fr := range raw.TrimmedSegments {
		// Membership for a frame range no segment owns is dead state;
		// loading discards it the same way boundary edits do.
		if keys[fr] {
			trimmed[fr] = true
		}
	}

	e.restoreState(trimmed, speeds)
	e.SetTrimRange(raw.TrimRange)
	return e, nil
}

// EncodeSegments serializes the engine state into the segments-data wire
// shape.
func EncodeSegments(e *Engine) ([]byte, error) {
	doc := segmentsJSON{
		Boundaries:    e.Boundaries(),
		SegmentSpeeds: make(map[string]float64),
		TrimRange:     e.TrimRange(),
	}
	for _, s := range e.Segments() {
		if s.Speed != DefaultSpeed {
			doc.SegmentSpeeds[strconv.Itoa(s.Index)] = s.Speed
		}
		if s.Trimmed {
			doc.TrimmedSegments = append(doc.TrimmedSegments, s.Key)
		}
	}
	return json.Marshal(doc)
}
