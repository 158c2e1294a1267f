package persona

// Store exposes persona retrieval for the session layer and HTTP handlers.
type Store interface {
	List() []Persona
	FindByName(name string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice; the persona set is
// fixed for the lifetime of the process.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByName looks up a persona by name.
func (s *MemoryStore) FindByName(name string) (Persona, bool) {
	for _, item := range s.items {
		if item.Name == name {
			return item, true
		}
	}
	return Persona{}, false
}
