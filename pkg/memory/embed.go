package memory

import (
	"context"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

// CreateWithEmbedding embeds the draft content and stores the result on the
// record. Embedding is best-effort: when the embedder is nil or fails, the
// record is created without a vector and the error is not surfaced. The
// caller can distinguish the outcomes by checking the returned record's
// Embedding field.
func CreateWithEmbedding(ctx context.Context, d Driver, draft Draft, embedder embeddings.Embedder) (Record, error) {
	if embedder != nil && draft.Content != "" {
		if vec, err := embedder.Embed(ctx, draft.Content); err == nil {
			draft.Embedding = vec
		}
	}
	return d.Create(ctx, draft)
}
