package model

// DocumentChunk is the unit of retrieval. Chunks of one document, ordered by
// ChunkIndex, form an overlapping cover of the source text.
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	StartPos   int       `json:"start_pos"`
	EndPos     int       `json:"end_pos"`
	TokenCount int       `json:"token_count"`
	Ctime      int64     `json:"ctime"`
}
