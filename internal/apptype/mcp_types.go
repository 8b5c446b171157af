package apptype

// CreateEntitiesArgs represents the arguments for the create_entities tool
type CreateEntitiesArgs struct {
	Entities []Entity `json:"entities" jsonschema:"A list of entities to create or update. Observations are replaced wholesale on update."`
}

// CreateRelationsArgs represents the arguments for the create_relations tool
type CreateRelationsArgs struct {
	Relations []Relation `json:"relations" jsonschema:"A list of relations to create between entities. Duplicate triples are absorbed silently."`
}

// SearchNodesArgs represents the arguments for the search_nodes tool
type SearchNodesArgs struct {
	Query interface{} `json:"query" jsonschema:"The search query. A string performs ranked text search; a numeric array performs vector similarity search."`
	Limit int         `json:"limit,omitempty" jsonschema:"Maximum number of results (text default 10, capped at 50; vector default 5)."`
}

// ReadGraphArgs represents the arguments for the read_graph tool
type ReadGraphArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of recent entities to return (default 10)."`
}

// DeleteEntityArgs represents the arguments for the delete_entity tool
type DeleteEntityArgs struct {
	Name string `json:"name" jsonschema:"The name of the entity to delete, along with its observations, embedding and relations."`
}

// DeleteRelationArgs represents the arguments for the delete_relation tool
type DeleteRelationArgs struct {
	Source string `json:"source" jsonschema:"The name of the source entity in the relation."`
	Target string `json:"target" jsonschema:"The name of the target entity in the relation."`
	Type   string `json:"type" jsonschema:"The type of the relation."`
}

// GetEntityWithRelationsArgs represents the arguments for the get_entity_with_relations tool
type GetEntityWithRelationsArgs struct {
	Name string `json:"name" jsonschema:"The name of the entity to fetch together with its 1-hop neighborhood."`
}

// GraphResult represents the result for graph-shaped tools (search_nodes, read_graph)
type GraphResult struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// EntityNeighborhood is the result of get_entity_with_relations: one entity,
// every relation touching it, and the neighbor entities that still exist.
type EntityNeighborhood struct {
	Entity          Entity     `json:"entity"`
	Relations       []Relation `json:"relations"`
	RelatedEntities []Entity   `json:"relatedEntities"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	BuildDate     string `json:"buildDate"`
	EmbeddingDims int    `json:"embeddingDims"`
	VectorSearch  bool   `json:"vectorSearch"`
}
