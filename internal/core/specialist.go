package core

// SpecialistDefinition describes one domain specialist: its identity,
// the prompt template used to build its directive, and display metadata.
// Definitions are immutable and loaded once at process start.
type SpecialistDefinition struct {
	Name        string // Unique identity, e.g. "Cardiologist"
	DisplayName string
	Icon        string
	Template    string // Prompt template name, e.g. "specialist-cardiologist"
}

// Registry is a static, insertion-ordered catalog of specialist
// definitions. It has no mutation path after construction and is safe
// for concurrent use without locking.
type Registry struct {
	order  []string
	byName map[string]SpecialistDefinition
}

// NewRegistry builds a registry from an ordered list of definitions.
// Duplicate names keep the first definition and its position.
func NewRegistry(defs []SpecialistDefinition) *Registry {
	r := &Registry{
		order:  make([]string, 0, len(defs)),
		byName: make(map[string]SpecialistDefinition, len(defs)),
	}
	for _, def := range defs {
		if _, ok := r.byName[def.Name]; ok {
			continue
		}
		r.order = append(r.order, def.Name)
		r.byName[def.Name] = def
	}
	return r
}

// Get retrieves a specialist definition by name.
func (r *Registry) Get(name string) (SpecialistDefinition, error) {
	def, ok := r.byName[name]
	if !ok {
		return SpecialistDefinition{}, ErrUnknownSpecialist(name)
	}
	return def, nil
}

// Has checks whether a specialist is in the catalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// List returns all definitions in insertion order.
func (r *Registry) List() []SpecialistDefinition {
	defs := make([]SpecialistDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name])
	}
	return defs
}

// Names returns all specialist names in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	return len(r.order)
}
