// Package stream implements the per-camera frame reader loop, its frame
// cache, and the registry that owns every camera's processor, per spec.md
// §4.3, §4.5, and §4.6.
package stream

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/haloview/camstream/internal/camera"
	"github.com/haloview/camstream/internal/decoder"
	"github.com/haloview/camstream/internal/enhance"
	"github.com/haloview/camstream/internal/params"
	"github.com/haloview/camstream/internal/reachability"
)

// Skip-interval bounds and enhancement wall-time thresholds from spec.md
// §4.3: the processor widens the gap between enhanced frames when
// enhancement is running slow, and narrows it again once it's cheap.
const (
	MinSkipInterval = 2
	MaxSkipInterval = 6
	initialSkip     = 3

	slowEnhanceThreshold = 60 * time.Millisecond
	fastEnhanceThreshold = 30 * time.Millisecond
)

// Thresholds controls when the reader loop gives up on a stuck decoder.
type Thresholds struct {
	// MaxEmptyReads is the number of consecutive failed frame reads at which
	// the reader loop stops the processor.
	MaxEmptyReads int
	// MaxRestartFailures is the number of consecutive failed frame reads,
	// each followed by a decoder restart, that are tolerated; one more stops
	// the processor entirely.
	MaxRestartFailures int
}

// DefaultThresholds returns spec.md §4.3's defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxEmptyReads: 150, MaxRestartFailures: 3}
}

// Processor owns one camera's decoder subprocess, its enhancement pipeline,
// and its frame cache. It must not be shared across cameras or copied.
type Processor struct {
	id         string
	cfg        decoder.Config
	thresholds Thresholds
	paramStore *params.Store

	probe func(string) bool

	supervisor *decoder.Supervisor
	pipeline   *enhance.Pipeline
	cache      *Cache

	mu          sync.Mutex
	running     bool
	fps         float64
	frameCount  int
	windowStart time.Time
	skip        int
	stdout      io.ReadCloser

	stop chan struct{}
	done chan struct{}
}

// NewProcessor constructs and starts a Processor for one camera. If the
// RTSP target is not reachable (spec.md §4.1 Reachability Probe) the
// processor is constructed in a non-running state and no decoder is
// spawned; the caller may still query it and later retry via Start.
func NewProcessor(info camera.Info, cfg decoder.Config, store *params.Store, th Thresholds) *Processor {
	lut, _ := camera.LoadLUT(info.LUTPath)

	p := &Processor{
		id:         info.ID,
		cfg:        cfg,
		thresholds: th,
		paramStore: store,
		probe:      reachability.Probe,
		supervisor: decoder.NewSupervisor(cfg),
		pipeline:   enhance.New(lut),
		cache:      &Cache{},
		skip:       initialSkip,
	}

	p.Start()
	return p
}

// Start spawns the decoder and reader loop if not already running. It is
// idempotent and safe to call after Stop to resume a camera.
func (p *Processor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}

	if !p.probe(p.cfg.RTSPURL) {
		log.Printf("camstream: stream: %s: unreachable, not starting", p.id)
		p.mu.Unlock()
		return
	}

	stdout, err := p.supervisor.Start()
	if err != nil {
		log.Printf("camstream: stream: %s: decoder start failed: %v", p.id, err)
		p.mu.Unlock()
		return
	}

	p.running = true
	p.frameCount = 0
	p.windowStart = time.Time{}
	p.stdout = stdout
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go p.readLoop(stop, done, stdout)
}

// IsRunning reports whether the reader loop is currently active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// FPS returns the most recently measured frames-per-second for this camera.
func (p *Processor) FPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps
}

// OriginalFrame returns the latest raw frame, if any has been produced.
func (p *Processor) OriginalFrame() (*Snapshot, bool) {
	return p.cache.Original()
}

// EnhancedFrame returns the latest enhanced frame, if any has been produced.
func (p *Processor) EnhancedFrame() (*Snapshot, bool) {
	return p.cache.Enhanced()
}

// Stop terminates the decoder and reader loop. Idempotent.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	// Signal first, then terminate the decoder: Terminate closes the stdout
	// pipe, which is what actually unblocks a read loop parked inside
	// io.ReadFull waiting on the next frame.
	close(stop)
	p.supervisor.Terminate()
	<-done
}

// Close releases the processor's enhancement pipeline resources. Call only
// after Stop.
func (p *Processor) Close() {
	p.pipeline.Close()
}

// readLoop implements spec.md §4.3 (mirroring the original's
// _process_frames): read one raw frame at a time from the decoder; on a
// short/failed read, bump both failure counters, restart the decoder, sleep
// 1s, and give up (stop the processor) once empty reads reach
// MaxEmptyReads or restart failures exceed MaxRestartFailures. On a
// successful read, reset both counters and skip-count frames — only every
// skip-th frame is run through the enhancement pipeline and published, so
// the cache never holds a raw/enhanced pair from two different frames.
func (p *Processor) readLoop(stop <-chan struct{}, done chan<- struct{}, stdout io.ReadCloser) {
	defer close(done)

	frameSize := p.cfg.FrameSizeBytes()
	buf := make([]byte, frameSize)

	skipCounter := 0
	restartFailures := 0
	emptyReads := 0

	for {
		select {
		case <-stop:
			p.supervisor.Terminate()
			return
		default:
		}

		if stdout == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if _, err := io.ReadFull(stdout, buf); err != nil {
			restartFailures++
			emptyReads++

			if emptyReads >= p.thresholds.MaxEmptyReads {
				log.Printf("camstream: stream: %s: %d consecutive empty reads, stopping processor", p.id, emptyReads)
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				p.supervisor.Terminate()
				return
			}
			if restartFailures > p.thresholds.MaxRestartFailures {
				log.Printf("camstream: stream: %s: exceeded restart failures, stopping processor", p.id)
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				p.supervisor.Terminate()
				return
			}

			select {
			case <-stop:
				return
			default:
			}

			log.Printf("camstream: stream: %s: restarting decoder (attempt %d/%d)", p.id, restartFailures, p.thresholds.MaxRestartFailures)
			newStdout, restartErr := p.supervisor.Restart()
			if restartErr != nil {
				log.Printf("camstream: stream: %s: restart failed: %v", p.id, restartErr)
				stdout = nil
			} else {
				stdout = newStdout
			}
			time.Sleep(1 * time.Second)
			continue
		}

		restartFailures = 0
		emptyReads = 0

		skip := p.currentSkip()
		skipCounter = (skipCounter + 1) % skip
		if skipCounter != 0 {
			continue
		}

		raw := make([]byte, frameSize)
		copy(raw, buf)

		start := time.Now()
		par := p.paramStore.Get()
		enhanced, err := p.pipeline.Apply(buf, p.cfg.Width, p.cfg.Height, par)
		elapsed := time.Since(start)
		p.adjustSkip(elapsed)

		if err != nil {
			log.Printf("camstream: stream: %s: enhancement failed: %v", p.id, err)
			continue
		}

		rawSnap := &Snapshot{Data: raw, Width: p.cfg.Width, Height: p.cfg.Height}
		enhancedSnap := &Snapshot{Data: enhanced, Width: p.cfg.Width, Height: p.cfg.Height}
		p.cache.Publish(rawSnap, enhancedSnap)
		p.recordFrame()
	}
}

func (p *Processor) currentSkip() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skip
}

func (p *Processor) adjustSkip(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case elapsed > slowEnhanceThreshold && p.skip < MaxSkipInterval:
		p.skip++
	case elapsed < fastEnhanceThreshold && p.skip > MinSkipInterval:
		p.skip--
	}
}

func (p *Processor) recordFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.windowStart.IsZero() {
		p.windowStart = now
	}
	p.frameCount++

	elapsed := now.Sub(p.windowStart)
	if elapsed >= time.Second {
		p.fps = float64(p.frameCount) / elapsed.Seconds()
		p.frameCount = 0
		p.windowStart = now
	}
}
