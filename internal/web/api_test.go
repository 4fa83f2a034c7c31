package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haloview/camstream/internal/camera"
	"github.com/haloview/camstream/internal/params"
	"github.com/haloview/camstream/internal/stream"
)

func newTestServer() (*Server, *stream.Registry) {
	reg := stream.NewRegistry(4, 4)
	reg.RegisterCamera(camera.Info{ID: "cam-1", Name: "Front Door", RTSPURL: "rtsp://127.0.0.1:1/unused"})
	return NewServer("127.0.0.1:0", reg), reg
}

func doRequest(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func TestHandleListCameras(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/cameras", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success=true")
	}
}

func TestHandleCameraStatusUnknown(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/cameras/ghost/status", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var errEnv errEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &errEnv); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if errEnv.Success {
		t.Fatalf("expected success=false for unknown camera")
	}
	if errEnv.Type != "camera_not_found" {
		t.Errorf("Type = %q, want camera_not_found", errEnv.Type)
	}
}

func TestHandleCameraStatusKnown(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/cameras/cam-1/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleEnhanceParamsRoundTrip(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodGet, "/api/video/enhance_params/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET enhance_params status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/video/update_params/cam-1",
		`{"lut_strength":0.25,"lut_enabled":false,"clahe_clip_limit":3.5,"clahe_tile_grid_size":{"cols":4,"rows":4},"defogging_enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST update_params status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/video/enhance_params/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET enhance_params status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal envelope data: %v", err)
	}
	var got params.Params
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if got.LUTStrength != 0.25 {
		t.Errorf("LUTStrength = %v, want 0.25 (snake_case JSON field was dropped)", got.LUTStrength)
	}
	if got.LUTEnabled != false {
		t.Errorf("LUTEnabled = %v, want false", got.LUTEnabled)
	}
	if got.CLAHEClipLimit != 3.5 {
		t.Errorf("CLAHEClipLimit = %v, want 3.5", got.CLAHEClipLimit)
	}
	if got.CLAHETileGridSize != (params.CLAHEGrid{Cols: 4, Rows: 4}) {
		t.Errorf("CLAHETileGridSize = %+v, want {4 4}", got.CLAHETileGridSize)
	}
	if got.DefoggingEnabled != true {
		t.Errorf("DefoggingEnabled = %v, want true", got.DefoggingEnabled)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/video/reset_params/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST reset_params status = %d", rec.Code)
	}
}

func TestHandleUpdateParamsAllAppliesToEveryCamera(t *testing.T) {
	s, reg := newTestServer()
	reg.RegisterCamera(camera.Info{ID: "cam-2", Name: "Back Yard", RTSPURL: "rtsp://127.0.0.1:1/unused2"})

	rec := doRequest(t, s, http.MethodPost, "/api/video/update_params", `{"gamma":1.75}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST update_params (all) status = %d, body = %s", rec.Code, rec.Body.String())
	}

	for _, id := range []string{"cam-1", "cam-2"} {
		store, ok := reg.ParamStore(id)
		if !ok {
			t.Fatalf("expected param store for %s", id)
		}
		if got := store.Get().Gamma; got != 1.75 {
			t.Errorf("%s: Gamma = %v, want 1.75", id, got)
		}
	}
}

func TestHandleUpdateParamsUnknownCamera(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/api/video/update_params/ghost", `{"gamma":1.5}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleVideoTest(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/video/test", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleVideoStartStop(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/video/start/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/video/stop/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/video/start/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("start on unknown camera status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
