package model

// EsDocument 定义了存储在 Elasticsearch 中的文档分块结构。
type EsDocument struct {
	ChunkKey       string `json:"chunk_key"` // 唯一标识，documentID + chunkID
	DocumentID     uint   `json:"document_id"`
	ChunkID        int    `json:"chunk_id"`
	TextContent    string `json:"text_content"`
	Filename       string `json:"filename"`
	DocumentType   string `json:"document_type"`
	OrganizationID uint   `json:"organization_id"`
}

// SearchResult 定义了返回给前端的搜索结果结构。
type SearchResult struct {
	DocumentID  uint    `json:"document_id"`
	ChunkID     int     `json:"chunk_id"`
	Filename    string  `json:"filename"`
	TextContent string  `json:"text_content"`
	Score       float64 `json:"score"`
}
