package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleFramePlaceholderWhenNoFrameYet(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodGet, "/api/video/frame/cam-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected a non-empty placeholder JPEG body")
	}
}

func TestHandleFrameRawType(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodGet, "/api/video/frame/cam-1?type=raw", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected a non-empty placeholder JPEG body for the raw stream kind")
	}
}

func TestHandleFrameUnknownCamera(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/video/frame/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleMJPEGStreamSetsMultipartHeaders(t *testing.T) {
	s, _ := newTestServer()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/video/stream/cam-1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	want := "multipart/x-mixed-replace; boundary=frame"
	if got := rec.Header().Get("Content-Type"); got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func TestHandleMJPEGStreamUnknownCamera(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/video/stream/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStreamKindDefaultsToEnhanced(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/video/frame/cam-1", nil)
	if got := streamKind(req); got != "enhanced" {
		t.Errorf("streamKind() = %q, want enhanced", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/video/frame/cam-1?type=raw", nil)
	if got := streamKind(req); got != "raw" {
		t.Errorf("streamKind() = %q, want raw", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/video/frame/cam-1?type=bogus", nil)
	if got := streamKind(req); got != "enhanced" {
		t.Errorf("streamKind() with unrecognized type = %q, want enhanced", got)
	}
}
