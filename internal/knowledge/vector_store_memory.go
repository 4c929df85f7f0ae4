package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// memoryVectorStore 进程内向量存储，用于本地开发和测试
type memoryVectorStore struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() VectorStore {
	return &memoryVectorStore{
		index: make(map[string]int),
	}
}

func (s *memoryVectorStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		vector := make([]float32, len(record.Vector))
		copy(vector, record.Vector)
		record.Vector = vector

		if pos, ok := s.index[record.ID]; ok {
			s.records[pos] = record
			continue
		}
		s.index[record.ID] = len(s.records)
		s.records = append(s.records, record)
	}
	return nil
}

func (s *memoryVectorStore) DeleteByDocID(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, record := range s.records {
		if record.Metadata.DocID != docID {
			kept = append(kept, record)
		}
	}
	s.records = kept

	s.index = make(map[string]int, len(s.records))
	for i, record := range s.records {
		s.index[record.ID] = i
	}
	return nil
}

func (s *memoryVectorStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.records))
	for _, record := range s.records {
		matches = append(matches, Match{
			ID:       record.ID,
			Score:    cosineSimilarity(vector, record.Vector),
			Metadata: record.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *memoryVectorStore) Ready() bool {
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
