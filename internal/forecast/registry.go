package forecast

import "sync/atomic"

// Registry holds the model handle currently used for serving.
type Registry struct {
	current atomic.Pointer[Model]
}

func NewRegistry(m *Model) *Registry {
	r := &Registry{}
	if m != nil {
		r.current.Store(m)
	}
	return r
}

// Current returns the active handle, or nil before the first Swap.
func (r *Registry) Current() *Model { return r.current.Load() }

// Swap installs m and returns the previous handle.
func (r *Registry) Swap(m *Model) *Model { return r.current.Swap(m) }
