package retrieval

import (
	"context"
	"fmt"
)

// Warm embeds every corpus document through the embedding source so the
// first visitor query does not pay for it. progress, if non-nil, is called
// after each document.
func (o *Orchestrator) Warm(ctx context.Context, progress func(done int, id string)) error {
	for i, d := range o.corpus.Documents() {
		if _, err := o.embedder.GetEmbedding(ctx, d.Content); err != nil {
			return fmt.Errorf("warming %s: %w", d.ID, err)
		}
		if progress != nil {
			progress(i+1, d.ID)
		}
	}
	return nil
}
