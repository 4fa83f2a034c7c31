package camera

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"rtsp://localhost:8554/camera-7", true},
		{"rtsp://localhost:8554/camera-7/", true},
		{"rtsp://10.0.0.5:554/live/cam1", false},
		{"rtsp://10.0.0.5:554/camera-12-extra", true},
	}

	for _, tt := range tests {
		if got := IsPlaceholder(tt.url); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestLoadRegistryMissingIsConfigMissingNotFatal(t *testing.T) {
	cameras := LoadRegistry(t.TempDir())
	if len(cameras) != 0 {
		t.Fatalf("expected empty camera list, got %d", len(cameras))
	}
}

func TestLoadRegistryFallsBackToPlaceholderURL(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "camera_info.json"), []infoFile{
		{CameraID: "camera-1", Name: "Lobby"},
	})
	// No rtsp.json at all.

	cameras := LoadRegistry(dir)
	if len(cameras) != 1 {
		t.Fatalf("expected 1 camera, got %d", len(cameras))
	}
	if cameras[0].RTSPURL != "rtsp://localhost:8554/camera-1" {
		t.Fatalf("RTSPURL = %q, want placeholder fallback", cameras[0].RTSPURL)
	}
}

func TestLoadRegistryUsesRTSPMapping(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "camera_info.json"), []infoFile{
		{CameraID: "front-door"},
	})
	writeJSON(t, filepath.Join(dir, "rtsp.json"), map[string]string{
		"front-door": "rtsp://10.0.0.9:554/stream1",
	})

	cameras := LoadRegistry(dir)
	if cameras[0].RTSPURL != "rtsp://10.0.0.9:554/stream1" {
		t.Fatalf("RTSPURL = %q, want mapped URL", cameras[0].RTSPURL)
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
