// Package web provides the HTTP server that exposes the stream registry:
// MJPEG/JPEG frame delivery, JSON control endpoints, and a status
// websocket.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/haloview/camstream/internal/stream"
)

// Server is the HTTP front end for one stream.Registry.
type Server struct {
	addr     string
	registry *stream.Registry
}

// NewServer creates a Server bound to addr, serving registry's cameras.
func NewServer(addr string, registry *stream.Registry) *Server {
	return &Server{addr: addr, registry: registry}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cameras", s.handleListCameras)
	mux.HandleFunc("GET /api/cameras/{camera_id}/status", s.handleCameraStatus)

	mux.HandleFunc("GET /api/video/stream/{camera_id}", s.handleMJPEGStream)
	mux.HandleFunc("GET /api/video/frame/{camera_id}", s.handleFrame)
	mux.HandleFunc("GET /api/video/status/{camera_id}", s.handleVideoStatus)
	mux.HandleFunc("GET /api/video/fps/{camera_id}", s.handleVideoFPS)
	mux.HandleFunc("POST /api/video/start/{camera_id}", s.handleVideoStart)
	mux.HandleFunc("POST /api/video/stop/{camera_id}", s.handleVideoStop)
	mux.HandleFunc("POST /api/video/update_params", s.handleUpdateParamsAll)
	mux.HandleFunc("POST /api/video/update_params/{camera_id}", s.handleUpdateParams)
	mux.HandleFunc("GET /api/video/enhance_params/{camera_id}", s.handleEnhanceParams)
	mux.HandleFunc("POST /api/video/reset_params/{camera_id}", s.handleResetParams)
	mux.HandleFunc("GET /api/video/test", s.handleVideoTest)
	mux.HandleFunc("GET /api/video/status_ws", s.handleStatusWS)

	return mux
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// server fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.addr,
		Handler:     s.routes(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("camstream: web: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("camstream: web: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("web server: %w", err)
	}
}
