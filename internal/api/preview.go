package api

import (
	"math"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/reelcut/reelcut-agent/internal/session"
)

var previewUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The agent binds to loopback only; the browser UI connects from a
	// file:// or localhost origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PreviewRequest is one scrub position on the working timeline.
type PreviewRequest struct {
	Time float64 `json:"time"`
}

// PreviewFrame is the resolved state at that position.
type PreviewFrame struct {
	Time        float64             `json:"time"`
	SourceFrame int                 `json:"source_frame"`
	Visible     bool                `json:"visible"`
	Crop        InterpolateResponse `json:"crop"`
	Regions     []RegionResponse    `json:"regions,omitempty"`
}

// previewHandler upgrades to a websocket and answers scrub positions with
// the interpolated crop and the active highlight regions. One message in,
// one message out; the connection closes on the first malformed message.
func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}

		conn, err := previewUpgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Logger.Error("preview upgrade failed", "error", err, "session_id", sess.ID)
			return
		}
		defer conn.Close()

		cfg.Logger.Debug("preview connected", "session_id", sess.ID)
		for {
			var req PreviewRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					cfg.Logger.Warn("preview read error", "error", err, "session_id", sess.ID)
				}
				return
			}

			if err := conn.WriteJSON(resolvePreview(sess, req.Time)); err != nil {
				cfg.Logger.Warn("preview write error", "error", err, "session_id", sess.ID)
				return
			}
		}
	}
}

func resolvePreview(sess *session.Session, t float64) PreviewFrame {
	frame, visible := sess.MapWorkingTime(t)
	out := PreviewFrame{Time: t, SourceFrame: frame, Visible: visible}
	if !visible {
		return out
	}

	out.Crop = InterpolateResponse{Frame: frame, Rect: sess.InterpolateCrop(frame)}

	workingFrame := int(math.Round(t * sess.FPS))
	for _, reg := range sess.Regions() {
		if !reg.Enabled || !reg.Contains(t) {
			continue
		}
		resp := RegionToResponse(reg)
		resp.Keyframes = []RegionKeyframeResponse{{
			Frame: workingFrame,
			Shape: reg.ShapeAt(workingFrame),
		}}
		out.Regions = append(out.Regions, resp)
	}
	return out
}
