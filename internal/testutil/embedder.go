package testutil

import (
	"context"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// KeywordEmbedding returns an embedding function that maps each keyword to
// its own vector axis. Texts containing the same keyword embed identically,
// which makes nearest-neighbour results deterministic without a model.
// Texts containing none of the keywords share a final catch-all axis.
func KeywordEmbedding(keywords ...string) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, len(keywords)+1)
		lower := strings.ToLower(text)
		hit := false
		for i, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				vec[i] = 1
				hit = true
			}
		}
		if !hit {
			vec[len(keywords)] = 1
		}
		return vec, nil
	}
}
