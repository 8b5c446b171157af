package database

import "fmt"

// schemaStatements returns the idempotent schema DDL for the configured
// embedding dimension. The embedding column is nullable: NULL means the
// entity carries no vector and is excluded from similarity search.
func schemaStatements(embeddingDims int) []string {
	if embeddingDims <= 0 {
		embeddingDims = DefaultEmbeddingDims
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
        name TEXT PRIMARY KEY,
        entity_type TEXT NOT NULL,
        embedding F32_BLOB(%d),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    )`, embeddingDims),

		`CREATE TABLE IF NOT EXISTS observations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        entity_name TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (entity_name) REFERENCES entities(name)
    )`,

		`CREATE TABLE IF NOT EXISTS relations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        target TEXT NOT NULL,
        relation_type TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (source) REFERENCES entities(name),
        FOREIGN KEY (target) REFERENCES entities(name)
    )`,

		`CREATE INDEX IF NOT EXISTS idx_entities_created_at ON entities(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_name)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target)`,

		// The uniqueness invariant for relation triples. INSERT OR IGNORE
		// against this index is what makes duplicate creation a no-op.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_triple ON relations(source, target, relation_type)`,

		// Vector index for ANN search via vector_top_k.
		`CREATE INDEX IF NOT EXISTS idx_entities_embedding ON entities(libsql_vector_idx(embedding))`,
	}
}
