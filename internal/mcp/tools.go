package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"the natural-language or keyword query"`
	TopK           int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to return, default from configuration"`
	LexicalWeight  *float64 `json:"lexical_weight,omitempty" jsonschema:"weight of the keyword (BM25) score, non-negative"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty" jsonschema:"weight of the embedding similarity score, non-negative"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []ResultOutput `json:"results" jsonschema:"passages ordered by fused score"`
}

// ResultOutput is one ranked passage.
type ResultOutput struct {
	ChunkID        string  `json:"chunk_id" jsonschema:"stable chunk identifier, doc_id::chunk::index"`
	DocID          string  `json:"doc_id" jsonschema:"source document file name"`
	Text           string  `json:"text" jsonschema:"passage text"`
	Score          float64 `json:"score" jsonschema:"fused score between 0 and the sum of the weights"`
	Relevance      string  `json:"relevance" jsonschema:"high, medium or low"`
	LexicalScore   float64 `json:"lexical_score" jsonschema:"normalized keyword score"`
	SemanticScore  float64 `json:"semantic_score" jsonschema:"normalized embedding score"`
	Index          int     `json:"index" jsonschema:"position of the chunk within its document"`
	TotalChunks    int     `json:"total_chunks" jsonschema:"number of chunks in the document"`
	ChunkingMethod string  `json:"chunking_strategy" jsonschema:"hierarchical or simple"`
}

// ChunksOfInput defines the input schema for the chunks_of tool.
type ChunksOfInput struct {
	DocID   string `json:"doc_id,omitempty" jsonschema:"document file name whose chunks are returned in order"`
	ChunkID string `json:"chunk_id,omitempty" jsonschema:"return this chunk and its neighbours instead of a whole document"`
	Radius  int    `json:"radius,omitempty" jsonschema:"number of neighbours on each side of chunk_id, default 1"`
}

// ChunksOfOutput defines the output schema for the chunks_of tool.
type ChunksOfOutput struct {
	Chunks []ChunkOutput `json:"chunks" jsonschema:"chunks in document order"`
}

// ChunkOutput is one chunk of a document.
type ChunkOutput struct {
	ChunkID string `json:"chunk_id"`
	DocID   string `json:"doc_id"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Chunks         int            `json:"chunks"`
	Documents      int            `json:"documents"`
	ByStrategy     map[string]int `json:"by_strategy"`
	EmbeddingModel string         `json:"embedding_model"`
	Dimensions     int            `json:"dimensions"`
	LexicalBackend string         `json:"lexical_backend,omitempty"`
	BuildID        string         `json:"build_id,omitempty"`
	BuiltAt        string         `json:"built_at,omitempty"`
	Stale          *bool          `json:"stale,omitempty"`
}
