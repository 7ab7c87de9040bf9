package persona

// Store exposes persona retrieval for the chat service and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id ID) (Persona, bool)
	Resolve(raw string) Persona
}

// MemoryStore implements Store with an in-memory slice built once at startup.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id ID) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Resolve maps a raw request value onto a persona, falling back to Default.
func (s *MemoryStore) Resolve(raw string) Persona {
	if id, ok := ParseID(raw); ok {
		if p, found := s.FindByID(id); found {
			return p
		}
	}
	if p, found := s.FindByID(Default); found {
		return p
	}
	if len(s.items) > 0 {
		return s.items[0]
	}
	return Persona{ID: Default, Name: string(Default)}
}
