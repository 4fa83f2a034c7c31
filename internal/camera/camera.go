// Package camera loads the read-only camera registry files written by the
// outer deployment (camera_info.json, rtsp.json, LUT files) and exposes the
// per-camera registration records the core operates on. Config file
// discovery and hot-reloading belong to the outer shell; this package only
// reads once at startup.
package camera

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// PlaceholderPrefix marks an RTSP URL as "not wired up yet" (spec.md
// Placeholder RTSP URL convention).
const PlaceholderPrefix = "camera-"

// Info is one camera's registration record. Immutable after registration.
type Info struct {
	ID       string `json:"camera_id"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	RTSPURL  string `json:"-"`
	LUTPath  string `json:"lut_path,omitempty"`
}

type infoFile struct {
	CameraID string `json:"camera_id"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	LUTPath  string `json:"lut_path,omitempty"`
}

// LoadRegistry reads camera_info.json and rtsp.json from dir and returns the
// merged camera list in camera_info.json's order. A missing or malformed
// file is a ConfigMissing condition: it is logged and treated as "no
// cameras" rather than failing the caller.
func LoadRegistry(dir string) []Info {
	infos := loadInfoFile(filepath.Join(dir, "camera_info.json"))
	rtsp := loadRTSPFile(filepath.Join(dir, "rtsp.json"))

	cameras := make([]Info, 0, len(infos))
	for _, f := range infos {
		url, ok := rtsp[f.CameraID]
		if !ok {
			url = fmt.Sprintf("rtsp://localhost:8554/%s", f.CameraID)
		}
		cameras = append(cameras, Info{
			ID:       f.CameraID,
			Name:     f.Name,
			Location: f.Location,
			RTSPURL:  url,
			LUTPath:  f.LUTPath,
		})
	}
	return cameras
}

// IsPlaceholder reports whether the final path segment of url begins with
// the placeholder prefix (spec.md §4.1 rule 1).
func IsPlaceholder(url string) bool {
	seg := lastPathSegment(url)
	return len(seg) >= len(PlaceholderPrefix) && seg[:len(PlaceholderPrefix)] == PlaceholderPrefix
}

func lastPathSegment(url string) string {
	i := len(url) - 1
	for i >= 0 && url[i] == '/' {
		i--
	}
	url = url[:i+1]
	j := i
	for j >= 0 && url[j] != '/' {
		j--
	}
	return url[j+1:]
}

func loadInfoFile(path string) []infoFile {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("camstream: camera: %s not found or unreadable: %v (starting with no cameras)", path, err)
		return nil
	}

	var entries []infoFile
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("camstream: camera: %s is malformed: %v (starting with no cameras)", path, err)
		return nil
	}
	return entries
}

func loadRTSPFile(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("camstream: camera: %s not found or unreadable: %v (all cameras use placeholder URLs)", path, err)
		return map[string]string{}
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("camstream: camera: %s is malformed: %v (all cameras use placeholder URLs)", path, err)
		return map[string]string{}
	}
	return m
}
