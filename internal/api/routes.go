package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/reelcut/reelcut-agent/internal/session"
	"github.com/reelcut/reelcut-agent/internal/track"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", createSessionHandler(cfg))
			r.Get("/", listSessionsHandler(cfg))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getSessionHandler(cfg))
				r.Delete("/", deleteSessionHandler(cfg))
				r.Post("/save", saveSessionHandler(cfg))
				r.Get("/media", mediaHandler(cfg))
				r.Get("/preview", previewHandler(cfg))

				r.Get("/crop", getCropHandler(cfg))
				r.Put("/crop", putCropHandler(cfg))
				r.Post("/crop/keyframes", setCropKeyframeHandler(cfg))
				r.Delete("/crop/keyframes/{frame}", removeCropKeyframeHandler(cfg))
				r.Get("/interpolate", interpolateHandler(cfg))

				r.Get("/segments", getSegmentsHandler(cfg))
				r.Put("/segments", putSegmentsHandler(cfg))
				r.Post("/boundaries", setBoundariesHandler(cfg))
				r.Post("/trim", trimHandler(cfg))
				r.Post("/speed", speedHandler(cfg))
				r.Post("/trim-range", trimRangeHandler(cfg))

				r.Get("/highlights", getHighlightsHandler(cfg))
				r.Put("/highlights", putHighlightsHandler(cfg))
				r.Get("/regions", listRegionsHandler(cfg))
				r.Post("/regions", createRegionHandler(cfg))
				r.Put("/regions/{regionID}/keyframes", setRegionKeyframeHandler(cfg))
				r.Post("/regions/{regionID}/transform", transformRegionHandler(cfg))

				r.Post("/export", exportHandler(cfg))
			})
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "0.1.0",
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := cfg.Sessions.Count(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count sessions", "INTERNAL_ERROR")
			return
		}

		resp := StatusResponse{
			State:         "idle",
			SessionsCount: count,
			LiveSessions:  cfg.Sessions.LiveCount(),
		}
		if resp.LiveSessions > 0 {
			resp.State = "editing"
		}

		if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
			resp.CPUPercent = pct[0]
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			resp.MemoryUsedMB = vm.Used / 1024 / 1024
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// fetchSession resolves the {id} URL param to a live session, writing the
// error response itself when the lookup fails.
func fetchSession(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "session id required", "BAD_REQUEST")
		return nil, false
	}
	sess, err := cfg.Sessions.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if sess == nil {
		WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
		return nil, false
	}
	return sess, true
}

// persist writes the session back to storage after a mutation. Failures are
// logged, not surfaced: the in-memory state is already updated and the next
// save retries.
func persist(cfg ServerConfig, r *http.Request, sess *session.Session) {
	if err := cfg.Sessions.Save(r.Context(), sess); err != nil {
		cfg.Logger.Error("failed to persist session", "session_id", sess.ID, "error", err)
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		fps := req.FPS
		if fps <= 0 {
			fps = cfg.FrameRate
		}

		sess, err := cfg.Sessions.Create(r.Context(), session.Params{
			SourcePath: req.SourcePath,
			Width:      req.Width,
			Height:     req.Height,
			FPS:        fps,
			Duration:   req.Duration,
		})
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, SessionToResponse(sess))
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := cfg.Sessions.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sessions", "INTERNAL_ERROR")
			return
		}

		resp := SessionsResponse{Sessions: make([]SessionResponse, len(recs))}
		for i, rec := range recs {
			resp.Sessions[i] = RecordToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}

func deleteSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "session id required", "BAD_REQUEST")
			return
		}
		if err := cfg.Sessions.Delete(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func saveSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		if err := cfg.Sessions.Save(r.Context(), sess); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		if err := cfg.Media.ServeFile(w, r, sess.SourcePath); err != nil {
			cfg.Logger.Error("media error", "error", err, "session_id", sess.ID)
		}
	}
}

func getCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		doc, err := sess.CropDocument()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

func putCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read body", "BAD_REQUEST")
			return
		}
		if err := sess.LoadCrop(body); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		persist(cfg, r, sess)
		w.WriteHeader(http.StatusNoContent)
	}
}

func setCropKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req CropKeyframeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.SetCropAt(req.Frame, req.Rect, track.OriginUser)
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, InterpolateResponse{Frame: req.Frame, Rect: sess.InterpolateCrop(req.Frame)})
	}
}

func removeCropKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		frame, err := strconv.Atoi(chi.URLParam(r, "frame"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid frame number", "BAD_REQUEST")
			return
		}
		sess.RemoveCropAt(frame)
		persist(cfg, r, sess)
		w.WriteHeader(http.StatusNoContent)
	}
}

func interpolateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		frame, err := strconv.Atoi(r.URL.Query().Get("frame"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "frame query parameter required", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, InterpolateResponse{Frame: frame, Rect: sess.InterpolateCrop(frame)})
	}
}

func segmentsResponse(sess *session.Session) SegmentsResponse {
	segs := sess.Segments()
	resp := SegmentsResponse{
		Segments:        make([]SegmentResponse, len(segs)),
		WorkingDuration: sess.WorkingDuration(),
		TrimRange:       sess.TrimRange(),
	}
	for i, s := range segs {
		resp.Segments[i] = SegmentToResponse(s)
	}
	return resp
}

func getSegmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func putSegmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read body", "BAD_REQUEST")
			return
		}
		if err := sess.LoadSegments(body); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func setBoundariesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req BoundariesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.SetBoundaries(req.Times)
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req TrimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if !sess.TrimSegment(req.Segment) {
			WriteError(w, http.StatusUnprocessableEntity, "segment cannot be trimmed", "TRIM_REJECTED")
			return
		}
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func speedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req SpeedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if !sess.SetSpeed(req.Segment, req.Speed) {
			WriteError(w, http.StatusBadRequest, "invalid segment index or speed", "BAD_REQUEST")
			return
		}
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func trimRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req TrimRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.SetTrimRange(req.Range)
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, segmentsResponse(sess))
	}
}

func getHighlightsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		doc, err := sess.HighlightsDocument()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

func putHighlightsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read body", "BAD_REQUEST")
			return
		}
		if err := sess.LoadHighlights(body); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		persist(cfg, r, sess)
		w.WriteHeader(http.StatusNoContent)
	}
}

func listRegionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		regions := sess.Regions()
		resp := RegionsResponse{Regions: make([]RegionResponse, len(regions))}
		for i, reg := range regions {
			resp.Regions[i] = RegionToResponse(reg)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createRegionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req CreateRegionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		reg := sess.AddRegion(req.Start, req.Shape)
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusCreated, RegionToResponse(reg))
	}
}

func setRegionKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		regionID := chi.URLParam(r, "regionID")
		var req RegionKeyframeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if !sess.SetRegionShapeAt(regionID, req.Frame, req.Shape) {
			WriteError(w, http.StatusNotFound, "region not found", "NOT_FOUND")
			return
		}
		persist(cfg, r, sess)
		WriteJSON(w, http.StatusOK, RegionToResponse(sess.Region(regionID)))
	}
}

func transformRegionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		regionID := chi.URLParam(r, "regionID")
		var req TransformRegionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.TargetSessionID == "" {
			WriteError(w, http.StatusBadRequest, "target_session_id is required", "BAD_REQUEST")
			return
		}

		target, err := cfg.Sessions.Get(r.Context(), req.TargetSessionID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if target == nil {
			WriteError(w, http.StatusNotFound, "target session not found", "NOT_FOUND")
			return
		}
		if target.SourcePath != sess.SourcePath {
			WriteError(w, http.StatusUnprocessableEntity, "sessions edit different source footage", "SOURCE_MISMATCH")
			return
		}

		projected := sess.ProjectRegionTo(regionID, target)
		if projected == nil {
			WriteError(w, http.StatusUnprocessableEntity, "region has no visible equivalent in target", "UNMAPPABLE")
			return
		}
		persist(cfg, r, target)
		WriteJSON(w, http.StatusOK, RegionToResponse(projected))
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := fetchSession(cfg, w, r)
		if !ok {
			return
		}
		var req struct {
			Title string `json:"title"`
		}
		// Body is optional; an empty title falls back to the session id.
		json.NewDecoder(r.Body).Decode(&req)
		if req.Title == "" {
			req.Title = sess.ID
		}

		kfs, cuts, edl := sess.Export(req.Title)
		resp := ExportResponse{
			Keyframes: make([]ExportKeyframe, len(kfs)),
			Cuts:      cuts,
			EDL:       edl,
		}
		for i, kf := range kfs {
			resp.Keyframes[i] = ExportKeyframe{Frame: kf.Frame, Rect: kf.Value}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
