package web

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"gocv.io/x/gocv"

	"github.com/haloview/camstream/internal/stream"
)

// DefaultClientFrameInterval bounds how often any single MJPEG client
// receives a new frame, independent of how fast the camera itself
// produces them (spec.md §4.7 per-client rate limiting, fps_limit=25).
const DefaultClientFrameInterval = time.Second / 25

// pollInterval is how often the stream loop re-checks the wall clock
// against DefaultClientFrameInterval (spec.md §4.7 step 1: "sleep 5ms and
// continue").
const pollInterval = 5 * time.Millisecond

// jpegQuality and its companion flags match the encode settings from
// spec.md §4.7: quality 85, optimized Huffman tables, progressive scan.
const jpegQuality = 85

func encodeJPEG(data []byte, width, height int) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{
		int(gocv.IMWriteJpegQuality), jpegQuality,
		int(gocv.IMWriteJpegOptimize), 1,
		int(gocv.IMWriteJpegProgressive), 1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// placeholderFrame returns a solid black width*height*3 raster, used when a
// camera has not yet produced a frame (spec.md §4.7).
func placeholderFrame(width, height int) []byte {
	return make([]byte, width*height*3)
}

// streamKind parses the "type=raw|enhanced" query parameter from spec.md
// §4.7/§6, defaulting to "enhanced" for an absent or unrecognized value.
func streamKind(r *http.Request) string {
	if r.URL.Query().Get("type") == "raw" {
		return "raw"
	}
	return "enhanced"
}

// latestJPEG returns the encoded JPEG bytes for cameraID's current frame of
// the given kind ("raw" or "enhanced"), falling back to a placeholder black
// frame if none has been produced yet.
func (s *Server) latestJPEG(cameraID, kind string) ([]byte, error) {
	width, height := s.registry.FrameSize()

	var frame *stream.Snapshot
	var ok bool
	if kind == "raw" {
		frame, ok = s.registry.OriginalFrame(cameraID)
	} else {
		frame, ok = s.registry.EnhancedFrame(cameraID)
	}

	if ok {
		return encodeJPEG(frame.Data, frame.Width, frame.Height)
	}
	return encodeJPEG(placeholderFrame(width, height), width, height)
}

// handleFrame serves a single current JPEG frame for one camera, honoring
// an optional ?type=raw|enhanced query parameter (spec.md §6).
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	if _, ok := s.registry.CameraInfo(cameraID); !ok {
		cameraNotFound(w, cameraID)
		return
	}

	jpg, err := s.latestJPEG(cameraID, streamKind(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := w.Write(jpg); err != nil {
		log.Printf("camstream: web: %s: frame write failed: %v", cameraID, err)
	}
}

// handleMJPEGStream serves a continuous multipart/x-mixed-replace MJPEG
// stream for one camera, rate-limited independently per client (spec.md
// §4.7). Multiple clients may watch the same camera concurrently; each
// reads from the shared frame cache on its own schedule.
func (s *Server) handleMJPEGStream(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera_id")
	if _, ok := s.registry.CameraInfo(cameraID); !ok {
		cameraNotFound(w, cameraID)
		return
	}
	kind := streamKind(r)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary("frame"); err != nil {
		log.Printf("camstream: web: %s: failed to set multipart boundary: %v", cameraID, err)
		return
	}

	flusher, canFlush := w.(http.Flusher)

	log.Printf("camstream: web: %s: mjpeg client connected: %s", cameraID, r.RemoteAddr)
	defer log.Printf("camstream: web: %s: mjpeg client disconnected: %s", cameraID, r.RemoteAddr)

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	var lastSent time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case <-poll.C:
			now := time.Now()
			if now.Sub(lastSent) < DefaultClientFrameInterval {
				continue
			}

			jpg, err := s.latestJPEG(cameraID, kind)
			if err != nil {
				log.Printf("camstream: web: %s: encode failed: %v", cameraID, err)
				continue
			}

			header := textproto.MIMEHeader{}
			header.Set("Content-Type", "image/jpeg")
			header.Set("Content-Length", fmt.Sprintf("%d", len(jpg)))

			part, err := mw.CreatePart(header)
			if err != nil {
				return
			}
			if _, err := part.Write(jpg); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}

			lastSent = now
		}
	}
}
