package models

// Similarity selects the metric used by vector search
type Similarity string

const (
	SimilarityCosine    Similarity = "cosine"
	SimilarityEuclidean Similarity = "euclidean"
)

// IndexEntry is a chunk vector owned by the vector index
type IndexEntry struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id" badgerhold:"index"`
	Vector     []float32 `json:"vector"`
}

// IndexMeta records the fixed properties of a persisted index
type IndexMeta struct {
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
}

// SearchOptions controls a vector search
type SearchOptions struct {
	K           int
	Similarity  Similarity
	DocumentIDs []string // Restrict results to these documents when non-empty
}

// SearchResult is one nearest-neighbour hit.
// Score is cosine similarity, or 1/(1+distance) for euclidean.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Distance   float64 `json:"distance,omitempty"`
}

// AuditReport is the outcome of an index consistency audit
type AuditReport struct {
	Vectors     int      `json:"vectors"`
	GhostChunks []string `json:"ghost_chunks"`
	Repaired    bool     `json:"repaired"`
}
