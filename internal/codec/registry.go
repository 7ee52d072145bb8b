package codec

import "fmt"

// Registry looks up a Codec by name, mirroring the teacher's
// NodeClassifier rule-table pattern: a small, explicit map populated at
// startup rather than reflection-based discovery.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register adds a codec, keyed by its own Name(). Registering a second
// codec under the same name replaces the first.
func (r *Registry) Register(c Codec) {
	r.codecs[c.Name()] = c
}

// Get looks up a codec by name.
func (r *Registry) Get(name string) (Codec, error) {
	c, ok := r.codecs[name]
	if !ok {
		return nil, fmt.Errorf("codec: no codec registered for %q", name)
	}
	return c, nil
}

// Names returns the registered codec names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	return names
}
