package lending

import (
	"context"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
)

// ActiveItems returns the ids of items held by an approved or returning
// borrow record.
func ActiveItems(borrows []models.Borrow) map[string]bool {
	held := make(map[string]bool)
	for _, b := range borrows {
		if b.Status.Active() {
			held[b.ItemID] = true
		}
	}
	return held
}

// Availability derives the available flag of every item from borrows.
func Availability(items []models.Item, borrows []models.Borrow) map[string]bool {
	held := ActiveItems(borrows)
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it.ID] = !held[it.ID]
	}
	return out
}

// syncAvailability brings one item's flag in line with the borrows in tx.
// Missing items are ignored.
func syncAvailability(tx *db.Tx, itemID string) {
	it, ok := tx.Item(itemID)
	if !ok {
		return
	}
	want := !ActiveItems(tx.Borrows())[itemID]
	if it.Available != want {
		it.Available = want
		tx.PutItem(it)
	}
}

func openBorrowFor(borrows []models.Borrow, itemID string) (models.Borrow, bool) {
	for _, b := range borrows {
		if b.ItemID == itemID && b.Status.Open() {
			return b, true
		}
	}
	return models.Borrow{}, false
}

// Reconcile recomputes availability for every item and returns the ids of
// items whose stored flag was wrong.
func (s *Service) Reconcile(ctx context.Context) ([]string, error) {
	var fixed []string
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		fixed = nil
		items := tx.Items()
		want := Availability(items, tx.Borrows())
		for i, it := range items {
			if it.Available != want[it.ID] {
				items[i].Available = want[it.ID]
				fixed = append(fixed, it.ID)
			}
		}
		if len(fixed) > 0 {
			tx.ReplaceItems(items)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(fixed) > 0 {
		s.log.Warn("availability reconciled", "items", fixed)
	}
	return fixed, nil
}
