package vectorstore

// Metadata keys used for evidence chunks. Declared up front so the shape is
// validated at the indexing boundary instead of trusted at every consumer.
const (
	MetaDocumentID = "document_id"
	MetaTitle      = "title"
	MetaCitation   = "citation"
	MetaTags       = "tags"
	MetaStrength   = "strength"
	MetaResults    = "results"
	MetaChunkIndex = "chunk_index"
)

// Document represents a chunk to be stored in the vector store.
type Document struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Content is the chunk text that gets embedded.
	Content string

	// Metadata contains additional key-value pairs for retrieval-time
	// display and filtering. See the Meta* keys above.
	Metadata map[string]interface{}
}

// SearchResult represents a search result from the vector store.
type SearchResult struct {
	// ID is the chunk identifier.
	ID string

	// Content is the chunk text content.
	Content string

	// Score is the similarity score (higher = more similar).
	Score float32

	// Metadata contains the chunk metadata.
	Metadata map[string]interface{}
}
