package stream

import (
	"sync"

	"github.com/haloview/camstream/internal/camera"
	"github.com/haloview/camstream/internal/decoder"
	"github.com/haloview/camstream/internal/params"
)

// Registry owns every camera's Processor and ParameterStore, keyed by
// camera ID, per spec.md §4.6. It is safe for concurrent use.
type Registry struct {
	width, height int
	thresholds    Thresholds

	mu         sync.Mutex
	processors map[string]*Processor
	stores     map[string]*params.Store
	infos      map[string]camera.Info
}

// NewRegistry creates an empty Registry. width and height are the fixed
// decode resolution shared by every camera.
func NewRegistry(width, height int) *Registry {
	return &Registry{
		width:      width,
		height:     height,
		thresholds: DefaultThresholds(),
		processors: make(map[string]*Processor),
		stores:     make(map[string]*params.Store),
		infos:      make(map[string]camera.Info),
	}
}

// RegisterCamera starts a Processor for info if one isn't already
// registered. Re-registering an already-known camera ID is a no-op
// (spec.md §4.6 idempotent registration).
func (r *Registry) RegisterCamera(info camera.Info) *Processor {
	r.mu.Lock()
	if existing, ok := r.processors[info.ID]; ok {
		r.mu.Unlock()
		return existing
	}

	store := params.NewStore()
	r.stores[info.ID] = store
	r.infos[info.ID] = info
	th := r.thresholds
	r.mu.Unlock()

	cfg := decoder.Config{
		CameraID: info.ID,
		RTSPURL:  info.RTSPURL,
		Width:    r.width,
		Height:   r.height,
	}
	proc := NewProcessor(info, cfg, store, th)

	r.mu.Lock()
	r.processors[info.ID] = proc
	r.mu.Unlock()

	return proc
}

// GetProcessor returns the processor for cameraID, if registered.
func (r *Registry) GetProcessor(cameraID string) (*Processor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.processors[cameraID]
	return p, ok
}

// ParamStore returns the parameter store for cameraID, if registered.
func (r *Registry) ParamStore(cameraID string) (*params.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[cameraID]
	return s, ok
}

// OriginalFrame returns the latest raw frame for cameraID.
func (r *Registry) OriginalFrame(cameraID string) (*Snapshot, bool) {
	p, ok := r.GetProcessor(cameraID)
	if !ok {
		return nil, false
	}
	return p.OriginalFrame()
}

// EnhancedFrame returns the latest enhanced frame for cameraID.
func (r *Registry) EnhancedFrame(cameraID string) (*Snapshot, bool) {
	p, ok := r.GetProcessor(cameraID)
	if !ok {
		return nil, false
	}
	return p.EnhancedFrame()
}

// IsRunning reports whether cameraID's processor is currently running.
func (r *Registry) IsRunning(cameraID string) bool {
	p, ok := r.GetProcessor(cameraID)
	return ok && p.IsRunning()
}

// FPS returns cameraID's last measured frame rate.
func (r *Registry) FPS(cameraID string) (float64, bool) {
	p, ok := r.GetProcessor(cameraID)
	if !ok {
		return 0, false
	}
	return p.FPS(), true
}

// UpdateEnhanceParams applies a partial parameter update for cameraID and
// returns the resulting snapshot.
func (r *Registry) UpdateEnhanceParams(cameraID string, u params.Update) (params.Params, bool) {
	store, ok := r.ParamStore(cameraID)
	if !ok {
		return params.Params{}, false
	}
	return store.Update(u), true
}

// UpdateEnhanceParamsAll applies a partial parameter update to every
// registered camera (spec.md §6: update_params' camera_id scope is
// optional; omitted means "apply to all") and returns the resulting
// snapshot per camera ID.
func (r *Registry) UpdateEnhanceParamsAll(u params.Update) map[string]params.Params {
	r.mu.Lock()
	stores := make(map[string]*params.Store, len(r.stores))
	for id, store := range r.stores {
		stores[id] = store
	}
	r.mu.Unlock()

	out := make(map[string]params.Params, len(stores))
	for id, store := range stores {
		out[id] = store.Update(u)
	}
	return out
}

// ResetEnhanceParams restores cameraID's parameters to their defaults.
func (r *Registry) ResetEnhanceParams(cameraID string) (params.Params, bool) {
	store, ok := r.ParamStore(cameraID)
	if !ok {
		return params.Params{}, false
	}
	return store.Reset(), true
}

// StopProcessor stops and removes cameraID's processor. Idempotent; returns
// false if the camera was never registered.
func (r *Registry) StopProcessor(cameraID string) bool {
	r.mu.Lock()
	p, ok := r.processors[cameraID]
	if ok {
		delete(r.processors, cameraID)
		delete(r.stores, cameraID)
		delete(r.infos, cameraID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.Stop()
	p.Close()
	return true
}

// StopAll stops and removes every registered camera's processor.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.processors))
	for id := range r.processors {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.StopProcessor(id)
	}
}

// SetThresholds overrides the stall-detection thresholds applied to
// cameras registered after this call.
func (r *Registry) SetThresholds(th Thresholds) {
	r.mu.Lock()
	r.thresholds = th
	r.mu.Unlock()
}

// FrameSize returns the fixed decode resolution shared by every camera.
func (r *Registry) FrameSize() (width, height int) {
	return r.width, r.height
}

// CameraInfo returns the registration record for cameraID, if registered.
func (r *Registry) CameraInfo(cameraID string) (camera.Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[cameraID]
	return info, ok
}

// ListCameras returns the registration records of every registered camera.
func (r *Registry) ListCameras() []camera.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]camera.Info, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	return infos
}

// CameraIDs returns the IDs of every registered camera.
func (r *Registry) CameraIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.processors))
	for id := range r.processors {
		ids = append(ids, id)
	}
	return ids
}
