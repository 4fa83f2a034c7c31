// Package params defines the enhancement parameter record and Store, a
// mutex-guarded copy-on-read holder for it. Each Store is independent: the
// stream registry keeps one Store per camera, and no single store is shared
// by all cameras.
package params

import "sync"

// CLAHEGrid is the CLAHE tile grid size (columns, rows).
type CLAHEGrid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Params is the full enhancement parameter record. Every field has a
// defined default; see Default().
type Params struct {
	LUTEnabled         bool      `json:"lut_enabled"`
	LUTStrength        float64   `json:"lut_strength"`
	Gamma              float64   `json:"gamma"`
	CLAHEEnabled       bool      `json:"clahe_enabled"`
	CLAHEClipLimit     float64   `json:"clahe_clip_limit"`
	CLAHETileGridSize  CLAHEGrid `json:"clahe_tile_grid_size"`
	DefoggingEnabled   bool      `json:"defogging_enabled"`
	DefoggingStrength  float64   `json:"defogging_strength"`
}

// Default returns the default parameter set.
func Default() Params {
	return Params{
		LUTEnabled:        true,
		LUTStrength:       1.0,
		Gamma:             1.0,
		CLAHEEnabled:      true,
		CLAHEClipLimit:    2.0,
		CLAHETileGridSize: CLAHEGrid{Cols: 8, Rows: 8},
		DefoggingEnabled:  false,
		DefoggingStrength: 0.0,
	}
}

// Update carries a partial parameter update; nil fields are left untouched.
// JSON tags match Params' snake_case wire names so decoding an HTTP request
// body straight into an Update works field-for-field.
type Update struct {
	LUTEnabled        *bool      `json:"lut_enabled"`
	LUTStrength       *float64   `json:"lut_strength"`
	Gamma             *float64   `json:"gamma"`
	CLAHEEnabled      *bool      `json:"clahe_enabled"`
	CLAHEClipLimit    *float64   `json:"clahe_clip_limit"`
	CLAHETileGridSize *CLAHEGrid `json:"clahe_tile_grid_size"`
	DefoggingEnabled  *bool      `json:"defogging_enabled"`
	DefoggingStrength *float64   `json:"defogging_strength"`
}

// Store is a mutex-guarded, copy-on-read Params record.
type Store struct {
	mu     sync.Mutex
	params Params
}

// NewStore creates a Store initialized with the default parameters.
func NewStore() *Store {
	return &Store{params: Default()}
}

// Get returns an independent copy of the current parameters.
func (s *Store) Get() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Update overwrites only the fields set in u, atomically.
func (s *Store) Update(u Update) Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.LUTEnabled != nil {
		s.params.LUTEnabled = *u.LUTEnabled
	}
	if u.LUTStrength != nil {
		s.params.LUTStrength = *u.LUTStrength
	}
	if u.Gamma != nil {
		s.params.Gamma = *u.Gamma
	}
	if u.CLAHEEnabled != nil {
		s.params.CLAHEEnabled = *u.CLAHEEnabled
	}
	if u.CLAHEClipLimit != nil {
		s.params.CLAHEClipLimit = *u.CLAHEClipLimit
	}
	if u.CLAHETileGridSize != nil {
		s.params.CLAHETileGridSize = *u.CLAHETileGridSize
	}
	if u.DefoggingEnabled != nil {
		s.params.DefoggingEnabled = *u.DefoggingEnabled
	}
	if u.DefoggingStrength != nil {
		s.params.DefoggingStrength = *u.DefoggingStrength
	}
	return s.params
}

// Reset restores the default parameter set atomically and returns it.
func (s *Store) Reset() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = Default()
	return s.params
}
