package item

import (
	"context"

	"github.com/octospacc/Pignio/pkg/store/collection"
)

// CollectionSummary is a collection plus a small preview of its
// pinned items, used for folder-style listings.
type CollectionSummary struct {
	*collection.Collection

	// Preview holds up to the first two and last two loadable items,
	// newest-pinned-first.
	Preview []*Record
}

// CollectionSummaries loads every non-empty collection of a user with
// preview records. Pins whose items no longer load are skipped;
// collections left with no loadable item are omitted entirely.
func (s *Store) CollectionSummaries(ctx context.Context, idx *collection.Index, username string) ([]CollectionSummary, error) {
	all, err := idx.WalkAll(ctx, username)
	if err != nil {
		return nil, err
	}

	var summaries []CollectionSummary
	for _, coll := range all {
		var records []*Record
		for _, id := range coll.Items {
			rec, err := s.Load(ctx, id)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				records = append(records, rec)
			}
		}
		if len(records) == 0 {
			continue
		}

		preview := records
		if len(records) > 4 {
			preview = append(records[:2:2], records[len(records)-2:]...)
		}
		summaries = append(summaries, CollectionSummary{Collection: coll, Preview: preview})
	}

	return summaries, nil
}
