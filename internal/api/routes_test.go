package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/session"
)

const testToken = "test-token-12345678"

func testConfig(t *testing.T) ServerConfig {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := session.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("failed to set auth token: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ServerConfig{
		Port:       0,
		Sessions:   session.NewService(repo, logger),
		Repository: repo,
		Media:      playback.NewServer(logger),
		Logger:     logger,
		StartTime:  time.Now(),
		FrameRate:  30,
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rr.Body.String())
	}
}

func createTestSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()
	rr := doRequest(t, router, http.MethodPost, "/sessions", CreateSessionRequest{
		SourcePath: "/media/raw.mp4",
		Width:      1920,
		Height:     1080,
		FPS:        30,
		Duration:   20,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp SessionResponse
	decodeBody(t, rr, &resp)
	return resp
}

func TestHealthHandler_NoAuth(t *testing.T) {
	router := NewRouter(testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp HealthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestStatusHandler(t *testing.T) {
	router := NewRouter(testConfig(t))
	createTestSession(t, router)

	rr := doRequest(t, router, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp StatusResponse
	decodeBody(t, rr, &resp)
	if resp.SessionsCount != 1 {
		t.Errorf("sessions_count = %d, want 1", resp.SessionsCount)
	}
	if resp.State != "editing" {
		t.Errorf("state = %q, want editing", resp.State)
	}
}

func TestCreateSession_Validation(t *testing.T) {
	router := NewRouter(testConfig(t))

	rr := doRequest(t, router, http.MethodPost, "/sessions", CreateSessionRequest{
		SourcePath: "",
		Width:      1920,
		Height:     1080,
		Duration:   20,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	router := NewRouter(testConfig(t))

	rr := doRequest(t, router, http.MethodGet, "/sessions/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions", nil)
	var list SessionsResponse
	decodeBody(t, rr, &list)
	if len(list.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(list.Sessions))
	}

	rr = doRequest(t, router, http.MethodDelete, "/sessions/"+sess.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestInterpolateHandler(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/interpolate?frame=100", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp InterpolateResponse
	decodeBody(t, rr, &resp)
	if resp.Rect.Width != 1920 || resp.Rect.Height != 1080 {
		t.Errorf("rect = %+v, want full frame", resp.Rect)
	}
}

func TestCropKeyframeRoundTrip(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/crop/keyframes", CropKeyframeRequest{
		Frame: 150,
		Rect:  trackRect(200, 100, 640, 360),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set keyframe status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/interpolate?frame=150", nil)
	var resp InterpolateResponse
	decodeBody(t, rr, &resp)
	if resp.Rect.X != 200 || resp.Rect.Width != 640 {
		t.Errorf("rect = %+v, want the keyframed crop", resp.Rect)
	}

	rr = doRequest(t, router, http.MethodDelete, "/sessions/"+sess.ID+"/crop/keyframes/150", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove keyframe status = %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/interpolate?frame=150", nil)
	decodeBody(t, rr, &resp)
	if resp.Rect.Width != 1920 {
		t.Errorf("rect after remove = %+v, want full frame", resp.Rect)
	}
}

func TestSegmentWorkflow(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/boundaries", BoundariesRequest{
		Times: []float64{5, 10},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("boundaries status = %d, body %s", rr.Code, rr.Body.String())
	}
	var segs SegmentsResponse
	decodeBody(t, rr, &segs)
	if len(segs.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs.Segments))
	}

	rr = doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/speed", SpeedRequest{Segment: 1, Speed: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("speed status = %d", rr.Code)
	}
	decodeBody(t, rr, &segs)
	if segs.Segments[1].Speed != 2 {
		t.Errorf("segment 1 speed = %v, want 2", segs.Segments[1].Speed)
	}

	rr = doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/trim", TrimRequest{Segment: 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("trim status = %d, body %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &segs)
	if !segs.Segments[0].Trimmed {
		t.Error("segment 0 should be trimmed")
	}

	rr = doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/trim", TrimRequest{Segment: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("trim last status = %d", rr.Code)
	}
	// Segment 1 is the sole visible segment left; trimming it would leave
	// nothing on the timeline.
	rr = doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/trim", TrimRequest{Segment: 1})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("trim sole visible segment status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestTrimRejected_InteriorSegment(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/boundaries", BoundariesRequest{Times: []float64{5, 10}})

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/trim", TrimRequest{Segment: 1})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("interior trim status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestRegionWorkflow(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/regions", CreateRegionRequest{
		Start: 2,
		Shape: trackEllipse(960, 540, 120, 80),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create region status = %d, body %s", rr.Code, rr.Body.String())
	}
	var reg RegionResponse
	decodeBody(t, rr, &reg)
	if reg.ID == "" {
		t.Fatal("region id missing")
	}
	if reg.StartTime != 2 {
		t.Errorf("start_time = %v, want 2", reg.StartTime)
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/regions", nil)
	var regions RegionsResponse
	decodeBody(t, rr, &regions)
	if len(regions.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions.Regions))
	}

	rr = doRequest(t, router, http.MethodPut,
		fmt.Sprintf("/sessions/%s/regions/%s/keyframes", sess.ID, reg.ID),
		RegionKeyframeRequest{Frame: 75, Shape: trackEllipse(800, 400, 100, 60)})
	if rr.Code != http.StatusOK {
		t.Fatalf("region keyframe status = %d, body %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &reg)
	if len(reg.Keyframes) != 3 {
		t.Errorf("keyframes = %d, want 3", len(reg.Keyframes))
	}
}

func TestTransformRegion(t *testing.T) {
	router := NewRouter(testConfig(t))
	src := createTestSession(t, router)
	dst := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+src.ID+"/regions", CreateRegionRequest{
		Start: 2,
		Shape: trackEllipse(960, 540, 120, 80),
	})
	var reg RegionResponse
	decodeBody(t, rr, &reg)

	rr = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/sessions/%s/regions/%s/transform", src.ID, reg.ID),
		TransformRegionRequest{TargetSessionID: dst.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("transform status = %d, body %s", rr.Code, rr.Body.String())
	}

	var projected RegionResponse
	decodeBody(t, rr, &projected)
	if projected.ID != reg.ID {
		t.Error("projected region should keep its identity across contexts")
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+dst.ID+"/regions", nil)
	var regions RegionsResponse
	decodeBody(t, rr, &regions)
	if len(regions.Regions) != 1 {
		t.Fatalf("target regions = %d, want 1", len(regions.Regions))
	}
}

func TestTransformRegion_UnknownRegion(t *testing.T) {
	router := NewRouter(testConfig(t))
	src := createTestSession(t, router)
	dst := createTestSession(t, router)

	rr := doRequest(t, router, http.MethodPost,
		"/sessions/"+src.ID+"/regions/nope/transform",
		TransformRegionRequest{TargetSessionID: dst.ID})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestExportHandler(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/boundaries", BoundariesRequest{Times: []float64{5}})
	doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/trim", TrimRequest{Segment: 0})

	rr := doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/export", map[string]string{"title": "my cut"})
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp ExportResponse
	decodeBody(t, rr, &resp)
	if len(resp.Cuts) != 1 {
		t.Fatalf("cuts = %d, want 1", len(resp.Cuts))
	}
	if resp.Cuts[0].SourceStart != 5 {
		t.Errorf("cut source_start = %v, want 5", resp.Cuts[0].SourceStart)
	}
	if resp.EDL == "" {
		t.Error("edl document missing")
	}
}

func TestCropDocumentRoundTrip(t *testing.T) {
	router := NewRouter(testConfig(t))
	sess := createTestSession(t, router)

	doRequest(t, router, http.MethodPost, "/sessions/"+sess.ID+"/crop/keyframes", CropKeyframeRequest{
		Frame: 90,
		Rect:  trackRect(10, 20, 800, 450),
	})

	rr := doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/crop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get crop status = %d", rr.Code)
	}
	doc := rr.Body.Bytes()

	req := httptest.NewRequest(http.MethodPut, "/sessions/"+sess.ID+"/crop", bytes.NewReader(doc))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put crop status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, router, http.MethodGet, "/sessions/"+sess.ID+"/interpolate?frame=90", nil)
	var resp InterpolateResponse
	decodeBody(t, rr, &resp)
	if resp.Rect.X != 10 || resp.Rect.Width != 800 {
		t.Errorf("rect = %+v after document round trip", resp.Rect)
	}
}
