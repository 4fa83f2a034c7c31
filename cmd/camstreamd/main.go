// camstreamd is the multi-camera RTSP streaming daemon: it supervises one
// decoder subprocess per camera, runs the shared enhancement pipeline on
// their frames, and serves the results over HTTP as MJPEG.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/haloview/camstream/internal/camera"
	"github.com/haloview/camstream/internal/config"
	"github.com/haloview/camstream/internal/stream"
	"github.com/haloview/camstream/internal/web"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("camstream: no .env file loaded: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("camstream: invalid environment configuration: %v", err)
	}

	addr := flag.String("addr", cfg.Server.Addr, "HTTP server address")
	cameraDir := flag.String("camera-dir", cfg.Server.CameraDir, "directory containing camera_info.json and rtsp.json")
	width := flag.Int("frame-width", cfg.Server.FrameWidth, "decode frame width")
	height := flag.Int("frame-height", cfg.Server.FrameHeight, "decode frame height")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("camstreamd version %s\n", Version)
		os.Exit(0)
	}

	cameras := camera.LoadRegistry(*cameraDir)
	log.Printf("camstream: loaded %d camera(s) from %s", len(cameras), *cameraDir)

	registry := stream.NewRegistry(*width, *height)
	registry.SetThresholds(stream.Thresholds{
		MaxEmptyReads:      cfg.Decoder.MaxEmptyReads,
		MaxRestartFailures: cfg.Decoder.MaxRestartFailures,
	})
	for _, info := range cameras {
		registry.RegisterCamera(info)
	}

	server := web.NewServer(*addr, registry)

	if err := run(*addr, registry, server); err != nil {
		log.Fatalf("camstream: %v", err)
	}
}

func run(addr string, registry *stream.Registry, server *web.Server) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Println("camstream: daemon started")
	log.Printf("camstream: web interface: http://%s", addr)
	log.Println("camstream: press Ctrl+C to stop")

	select {
	case <-sigChan:
		log.Println("camstream: shutdown signal received")
		cancel()
	case err := <-errChan:
		registry.StopAll()
		return err
	}

	registry.StopAll()
	log.Println("camstream: daemon stopped")
	return nil
}
