package web

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/haloview/camstream/internal/params"
)

// cameraSummary is the JSON shape returned by the camera listing and status
// endpoints.
type cameraSummary struct {
	ID       string `json:"camera_id"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Running  bool   `json:"running"`
	FPS      float64 `json:"fps"`
}

func (s *Server) summarize(id string) cameraSummary {
	info, _ := s.registry.CameraInfo(id)
	fps, _ := s.registry.FPS(id)
	return cameraSummary{
		ID:       info.ID,
		Name:     info.Name,
		Location: info.Location,
		Running:  s.registry.IsRunning(id),
		FPS:      fps,
	}
}

// handleListCameras implements GET /api/cameras.
func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	infos := s.registry.ListCameras()
	out := make([]cameraSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.summarize(info.ID))
	}
	writeJSON(w, http.StatusOK, out, "")
}

// handleCameraStatus implements GET /api/cameras/{camera_id}/status.
func (s *Server) handleCameraStatus(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	if _, ok := s.registry.CameraInfo(cameraID); !ok {
		cameraNotFound(w, cameraID)
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(cameraID), "")
}

// handleVideoStatus implements GET /api/video/status/{camera_id}.
func (s *Server) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	s.handleCameraStatus(w, r)
}

// handleVideoFPS implements GET /api/video/fps/{camera_id}.
func (s *Server) handleVideoFPS(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	fps, ok := s.registry.FPS(cameraID)
	if !ok {
		cameraNotFound(w, cameraID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"fps": fps}, "")
}

// handleVideoStart implements POST /api/video/start/{camera_id}. spec.md §6
// is explicit that start/stop are compatibility endpoints only: enhancement
// always runs, so these never touch the decoder — they accept an optional
// partial parameter update and report status, same as update_params.
func (s *Server) handleVideoStart(w http.ResponseWriter, r *http.Request) {
	s.handleCompatToggle(w, r, "started")
}

// handleVideoStop implements POST /api/video/stop/{camera_id}. See
// handleVideoStart: decoding is never actually stopped by this endpoint.
func (s *Server) handleVideoStop(w http.ResponseWriter, r *http.Request) {
	s.handleCompatToggle(w, r, "stopped")
}

func (s *Server) handleCompatToggle(w http.ResponseWriter, r *http.Request, message string) {
	cameraID := r.PathValue("camera_id")
	if _, ok := s.registry.CameraInfo(cameraID); !ok {
		cameraNotFound(w, cameraID)
		return
	}

	var u params.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	} else if err == nil {
		s.registry.UpdateEnhanceParams(cameraID, u)
	}

	writeJSON(w, http.StatusOK, s.summarize(cameraID), message)
}

// handleEnhanceParams implements GET /api/video/enhance_params/{camera_id}.
func (s *Server) handleEnhanceParams(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	store, ok := s.registry.ParamStore(cameraID)
	if !ok {
		cameraNotFound(w, cameraID)
		return
	}
	writeJSON(w, http.StatusOK, store.Get(), "")
}

// handleUpdateParams implements POST /api/video/update_params/{camera_id}.
func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")

	var u params.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	got, ok := s.registry.UpdateEnhanceParams(cameraID, u)
	if !ok {
		cameraNotFound(w, cameraID)
		return
	}
	writeJSON(w, http.StatusOK, got, "updated")
}

// handleUpdateParamsAll implements POST /api/video/update_params with no
// camera_id: spec.md §6 makes the scope optional, meaning "apply to every
// registered camera".
func (s *Server) handleUpdateParamsAll(w http.ResponseWriter, r *http.Request) {
	var u params.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	got := s.registry.UpdateEnhanceParamsAll(u)
	writeJSON(w, http.StatusOK, got, "updated")
}

// handleResetParams implements POST /api/video/reset_params/{camera_id}.
func (s *Server) handleResetParams(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	got, ok := s.registry.ResetEnhanceParams(cameraID)
	if !ok {
		cameraNotFound(w, cameraID)
		return
	}
	writeJSON(w, http.StatusOK, got, "reset")
}

// handleVideoTest implements GET /api/video/test: a liveness probe that
// reports the server is up, with the server's Unix timestamp, without
// touching any camera.
func (s *Server) handleVideoTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"timestamp": time.Now().Unix()}, "")
}
