package api

import (
	"time"

	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/region"
	"github.com/reelcut/reelcut-agent/internal/segment"
	"github.com/reelcut/reelcut-agent/internal/session"
	"github.com/reelcut/reelcut-agent/internal/track"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string  `json:"state"`
	SessionsCount int     `json:"sessions_count"`
	LiveSessions  int     `json:"live_sessions"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
}

type CreateSessionRequest struct {
	SourcePath string  `json:"source_path"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FPS        float64 `json:"fps,omitempty"`
	Duration   float64 `json:"duration"`
}

type SessionResponse struct {
	ID              string  `json:"id"`
	SourcePath      string  `json:"source_path"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	FPS             float64 `json:"fps"`
	Duration        float64 `json:"duration"`
	WorkingDuration float64 `json:"working_duration,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type SegmentResponse struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speed   float64 `json:"speed"`
	Trimmed bool    `json:"trimmed"`
}

type SegmentsResponse struct {
	Segments        []SegmentResponse `json:"segments"`
	WorkingDuration float64           `json:"working_duration"`
	TrimRange       *segment.Range    `json:"trim_range,omitempty"`
}

type BoundariesRequest struct {
	Times []float64 `json:"times"`
}

type TrimRequest struct {
	Segment int `json:"segment"`
}

type SpeedRequest struct {
	Segment int     `json:"segment"`
	Speed   float64 `json:"speed"`
}

type TrimRangeRequest struct {
	Range *segment.Range `json:"range"`
}

type CropKeyframeRequest struct {
	Frame int        `json:"frame"`
	Rect  track.Rect `json:"rect"`
}

type InterpolateResponse struct {
	Frame int        `json:"frame"`
	Rect  track.Rect `json:"rect"`
}

type CreateRegionRequest struct {
	Start float64       `json:"start"`
	Shape track.Ellipse `json:"shape"`
}

type RegionKeyframeRequest struct {
	Frame int           `json:"frame"`
	Shape track.Ellipse `json:"shape"`
}

type RegionKeyframeResponse struct {
	Frame  int           `json:"frame"`
	Shape  track.Ellipse `json:"shape"`
	Origin string        `json:"origin"`
}

type RegionResponse struct {
	ID        string                   `json:"id"`
	StartTime float64                  `json:"start_time"`
	EndTime   float64                  `json:"end_time"`
	Enabled   bool                     `json:"enabled"`
	Keyframes []RegionKeyframeResponse `json:"keyframes"`
}

type RegionsResponse struct {
	Regions []RegionResponse `json:"regions"`
}

type TransformRegionRequest struct {
	TargetSessionID string `json:"target_session_id"`
}

type ExportKeyframe struct {
	Frame int        `json:"frame"`
	Rect  track.Rect `json:"rect"`
}

type ExportResponse struct {
	Keyframes []ExportKeyframe `json:"keyframes"`
	Cuts      []export.Cut     `json:"cuts"`
	EDL       string           `json:"edl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SessionToResponse(s *session.Session) SessionResponse {
	working := 0.0
	for _, seg := range s.Segments() {
		if !seg.Trimmed {
			working += (seg.End - seg.Start) / seg.Speed
		}
	}
	return SessionResponse{
		ID:              s.ID,
		SourcePath:      s.SourcePath,
		Width:           s.Width,
		Height:          s.Height,
		FPS:             s.FPS,
		Duration:        s.Duration,
		WorkingDuration: working,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func RecordToResponse(r *session.Record) SessionResponse {
	return SessionResponse{
		ID:         r.ID,
		SourcePath: r.SourcePath,
		Width:      r.Width,
		Height:     r.Height,
		FPS:        r.FPS,
		Duration:   r.Duration,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
}

func SegmentToResponse(s segment.Segment) SegmentResponse {
	return SegmentResponse{
		Index:   s.Index,
		Start:   s.Start,
		End:     s.End,
		Speed:   s.Speed,
		Trimmed: s.Trimmed,
	}
}

func RegionToResponse(r *region.Region) RegionResponse {
	kfs := r.Keyframes.Keyframes()
	resp := RegionResponse{
		ID:        r.ID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Enabled:   r.Enabled,
		Keyframes: make([]RegionKeyframeResponse, len(kfs)),
	}
	for i, kf := range kfs {
		resp.Keyframes[i] = RegionKeyframeResponse{
			Frame:  kf.Frame,
			Shape:  kf.Value,
			Origin: string(kf.Origin),
		}
	}
	return resp
}
