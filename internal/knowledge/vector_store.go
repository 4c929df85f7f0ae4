package knowledge

import "context"

// RecordMetadata 随向量一起存储的块元数据，检索时无需二次查找
type RecordMetadata struct {
	DocID     string
	Title     string
	ChunkText string
}

// Record 向量索引中的一条记录，ID为块ID
type Record struct {
	ID       string
	Vector   []float32
	Metadata RecordMetadata
}

// Match 相似度查询结果
type Match struct {
	ID       string
	Score    float64
	Metadata RecordMetadata
}

// VectorStore 向量存储抽象
type VectorStore interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	// DeleteByDocID 删除指定文档的全部记录，调用方按尽力而为处理
	DeleteByDocID(ctx context.Context, docID string) error
	Ready() bool
}
