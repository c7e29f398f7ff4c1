package search

import (
	"context"

	"wanderplan/internal/models"
)

// Scanner walks publications in batches.
type Scanner interface {
	ScanBatches(ctx context.Context, fn func(batch []models.Publication) error) error
}

// Reindex pushes every publication into the index and returns the count.
func (m *Meili) Reindex(ctx context.Context, pubs Scanner) (int, error) {
	total := 0
	err := pubs.ScanBatches(ctx, func(batch []models.Publication) error {
		docs := make([]Document, 0, len(batch))
		for i := range batch {
			docs = append(docs, ToDocument(&batch[i]))
		}
		if err := m.IndexMany(ctx, docs); err != nil {
			return err
		}
		total += len(docs)
		return nil
	})
	return total, err
}
