package testutils

import (
	"context"
	"sort"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/vector"
)

// MockVectorDriver is a test vector driver. Query brute-forces cosine
// similarity over the added documents, so specs get real ranking behavior
// without a vector database. Set Results to bypass that and return canned
// hits instead.
type MockVectorDriver struct {
	// Documents holds added documents by ID.
	Documents map[string]vector.Document

	// Results, when non-nil, is returned by Query as-is (capped at topK).
	Results []vector.QueryResult

	// FailQuery causes Query to return an error.
	FailQuery bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make(map[string]vector.Document),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	for _, doc := range docs {
		m.Documents[doc.ID] = doc
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, vector.ErrConnection
	}
	if m.Results != nil {
		if topK > 0 && len(m.Results) > topK {
			return m.Results[:topK], nil
		}
		return m.Results, nil
	}

	results := make([]vector.QueryResult, 0, len(m.Documents))
	for _, doc := range m.Documents {
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    float32(embeddings.CosineSimilarity(embedding, doc.Embedding)),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.Documents[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.Documents, id)
	}
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
