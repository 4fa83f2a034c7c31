package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// statusPush is one camera's live status, sent periodically over the
// status websocket.
type statusPush struct {
	CameraID string  `json:"camera_id"`
	Running  bool    `json:"running"`
	FPS      float64 `json:"fps"`
}

// statusPushInterval is how often the status websocket pushes a fresh
// snapshot of every registered camera.
const statusPushInterval = 1 * time.Second

// handleStatusWS implements GET /api/video/status_ws: a push channel that
// periodically broadcasts every camera's running state and FPS, so a
// dashboard doesn't need to poll the REST status endpoints.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("camstream: web: status_ws: accept failed: %v", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	log.Printf("camstream: web: status_ws: client connected: %s", r.RemoteAddr)
	defer log.Printf("camstream: web: status_ws: client disconnected: %s", r.RemoteAddr)

	ctx := r.Context()
	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pushStatus(ctx, conn); err != nil {
				log.Printf("camstream: web: status_ws: write failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) pushStatus(ctx context.Context, conn *websocket.Conn) error {
	ids := s.registry.CameraIDs()
	snapshot := make([]statusPush, 0, len(ids))
	for _, id := range ids {
		fps, _ := s.registry.FPS(id)
		snapshot = append(snapshot, statusPush{
			CameraID: id,
			Running:  s.registry.IsRunning(id),
			FPS:      fps,
		})
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
