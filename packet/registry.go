package packet

import (
	"errors"
	"fmt"
	"sync"
)

var ErrShapeConflict = errors.New("shape already registered with a different layout")

// Registry maps shape names to descriptors for lookup at the boundary,
// e.g. when a topic's shape is chosen by configuration.
type Registry struct {
	mu     sync.RWMutex
	shapes map[string]Shape
}

func NewRegistry() *Registry {
	return &Registry{shapes: make(map[string]Shape)}
}

// Builtin returns a registry preloaded with the shape catalog.
func Builtin() *Registry {
	r := NewRegistry()
	for _, s := range []Shape{
		Image640x480, Image960x540, Image224x224,
		Inference20x8, Inference50x8,
		ControlShape, ArmPoseShape, StatusShape,
	} {
		// Catalog names are unique; Register cannot fail here.
		_ = r.Register(s)
	}
	return r
}

// Register adds a shape. Re-registering an identical layout is a no-op;
// a conflicting layout under the same name fails with ErrShapeConflict.
func (r *Registry) Register(s Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if have, ok := r.shapes[s.Name]; ok {
		if have == s {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrShapeConflict, s.Name)
	}
	r.shapes[s.Name] = s
	return nil
}

// Lookup returns the shape registered under name.
func (r *Registry) Lookup(name string) (Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shapes[name]
	return s, ok
}

// Names returns the registered shape names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.shapes))
	for name := range r.shapes {
		out = append(out, name)
	}
	return out
}
