package apptype

// Entity represents a node in the knowledge graph.
type Entity struct {
	Name         string    `json:"name"`
	EntityType   string    `json:"entityType"`
	Observations []string  `json:"observations"`
	CreatedAt    string    `json:"createdAt,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Relation represents a directed, typed edge between two entities.
// The (From, To, RelationType) triple is unique in the store.
type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// SearchResult pairs an entity with its cosine distance from a query vector.
type SearchResult struct {
	Entity   Entity  `json:"entity"`
	Distance float64 `json:"distance"`
}
