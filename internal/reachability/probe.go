// Package reachability classifies an RTSP URL as reachable before a decoder
// is spawned for it, per spec.md §4.1.
package reachability

import (
	"net"
	"net/url"
	"time"

	"github.com/haloview/camstream/internal/camera"
)

// ProbeTimeout is the hard timeout on the TCP connect attempt.
const ProbeTimeout = 1 * time.Second

// DefaultRTSPPort is used when the URL carries no explicit port.
const DefaultRTSPPort = "554"

// Probe classifies rtspURL as reachable or not. Placeholder URLs are
// rejected without touching the network; everything else gets a single TCP
// connect attempt with a hard timeout. No retries happen at this layer.
func Probe(rtspURL string) bool {
	if camera.IsPlaceholder(rtspURL) {
		return false
	}

	hostPort, ok := hostPort(rtspURL)
	if !ok {
		return false
	}

	conn, err := net.DialTimeout("tcp", hostPort, ProbeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func hostPort(rtspURL string) (string, bool) {
	u, err := url.Parse(rtspURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}

	port := u.Port()
	if port == "" {
		port = DefaultRTSPPort
	}
	return net.JoinHostPort(u.Hostname(), port), true
}
