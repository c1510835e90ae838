package veil

// Relationship defines a parent-child relation between entities. Executors
// use it to resolve eager inclusion, and cascade handlers use it to
// propagate tombstones to children.
type Relationship struct {
	// Name is the relation name used as the Include key (e.g. "items").
	Name string

	// ParentEntity is the parent entity name (e.g. "order").
	ParentEntity string

	// ChildEntity is the child entity name (e.g. "item").
	ChildEntity string

	// ForeignKeyField is the child field referencing the parent key
	// (e.g. "order_id").
	ForeignKeyField string
}

// Registry holds all known entity relationships. It is populated at startup
// and read-only afterwards.
type Registry struct {
	relationships []Relationship
	byParent      map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relationships: []Relationship{},
		byParent:      make(map[string][]Relationship),
	}
}

// Register adds a relationship to the registry.
// This should be called during init() for each parent-child relation.
func (r *Registry) Register(rel Relationship) {
	if rel.Name == "" {
		rel.Name = rel.ChildEntity
	}
	r.relationships = append(r.relationships, rel)
	r.byParent[rel.ParentEntity] = append(r.byParent[rel.ParentEntity], rel)
}

// ChildrenOf returns all child relationships for a given parent entity.
func (r *Registry) ChildrenOf(parentEntity string) []Relationship {
	return r.byParent[parentEntity]
}

// Relation looks up a relationship by parent entity and relation name.
func (r *Registry) Relation(parentEntity, name string) (Relationship, bool) {
	for _, rel := range r.byParent[parentEntity] {
		if rel.Name == name {
			return rel, true
		}
	}
	return Relationship{}, false
}

// HasChildren returns true if the parent entity has any registered child
// relationships.
func (r *Registry) HasChildren(parentEntity string) bool {
	return len(r.byParent[parentEntity]) > 0
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}
