package lending

import (
	"context"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
)

// Views never fail on dangling references: a record whose item, owner or
// borrower has been deleted is skipped or shown without the missing name.

type OwnedItem struct {
	models.Item
	BorrowID     string              `json:"borrow_id,omitempty"`
	BorrowStatus models.BorrowStatus `json:"borrow_status,omitempty"`
	Borrower     string              `json:"borrower,omitempty"`
}

type BorrowView struct {
	models.Borrow
	ItemName string `json:"item_name"`
	Owner    string `json:"owner,omitempty"`
	Borrower string `json:"borrower,omitempty"`
}

type BorrowableItem struct {
	models.Item
	Owner            string `json:"owner"`
	AlreadyRequested bool   `json:"already_requested"`
}

// directory indexes a snapshot for reference lookups.
type directory struct {
	users map[string]models.User
	items map[string]models.Item
}

func newDirectory(tx *db.Tx) directory {
	d := directory{users: map[string]models.User{}, items: map[string]models.Item{}}
	for _, u := range tx.Users() {
		d.users[u.ID] = u
	}
	for _, it := range tx.Items() {
		d.items[it.ID] = it
	}
	return d
}

func (s *Service) view(ctx context.Context, fn func(tx *db.Tx)) error {
	return classify(s.store.View(ctx, func(tx *db.Tx) error {
		fn(tx)
		return nil
	}))
}

// MyItems lists the actor's items with whoever currently holds them.
func (s *Service) MyItems(ctx context.Context, actor Actor) ([]OwnedItem, error) {
	out := []OwnedItem{}
	err := s.view(ctx, func(tx *db.Tx) {
		d := newDirectory(tx)
		holders := map[string]models.Borrow{}
		for _, b := range tx.Borrows() {
			if b.Status.Active() {
				holders[b.ItemID] = b
			}
		}
		for _, it := range tx.Items() {
			if it.OwnerID != actor.UserID {
				continue
			}
			row := OwnedItem{Item: it}
			if b, ok := holders[it.ID]; ok {
				row.BorrowID, row.BorrowStatus = b.ID, b.Status
				if u, ok := d.users[b.BorrowerID]; ok {
					row.Borrower = u.Username
				}
			}
			out = append(out, row)
		}
	})
	return out, err
}

// MyBorrows lists the actor's borrows that have not been returned.
func (s *Service) MyBorrows(ctx context.Context, actor Actor) ([]BorrowView, error) {
	out := []BorrowView{}
	err := s.view(ctx, func(tx *db.Tx) {
		d := newDirectory(tx)
		for _, b := range tx.Borrows() {
			if b.BorrowerID != actor.UserID || b.Status == models.StatusReturned {
				continue
			}
			it, ok := d.items[b.ItemID]
			if !ok {
				continue
			}
			owner, ok := d.users[b.OwnerID]
			if !ok {
				continue
			}
			out = append(out, BorrowView{Borrow: b, ItemName: it.Name, Owner: owner.Username})
		}
	})
	return out, err
}

// Borrowable lists available items the actor does not own.
func (s *Service) Borrowable(ctx context.Context, actor Actor) ([]BorrowableItem, error) {
	out := []BorrowableItem{}
	err := s.view(ctx, func(tx *db.Tx) {
		d := newDirectory(tx)
		requested := map[string]bool{}
		for _, b := range tx.Borrows() {
			if b.BorrowerID == actor.UserID && (b.Status == models.StatusPending || b.Status == models.StatusApproved) {
				requested[b.ItemID] = true
			}
		}
		for _, it := range tx.Items() {
			if it.OwnerID == actor.UserID || !it.Available {
				continue
			}
			owner, ok := d.users[it.OwnerID]
			if !ok {
				continue
			}
			out = append(out, BorrowableItem{Item: it, Owner: owner.Username, AlreadyRequested: requested[it.ID]})
		}
	})
	return out, err
}

// Incoming lists open borrows of the actor's items.
func (s *Service) Incoming(ctx context.Context, actor Actor) ([]BorrowView, error) {
	out := []BorrowView{}
	err := s.view(ctx, func(tx *db.Tx) {
		d := newDirectory(tx)
		for _, b := range tx.Borrows() {
			if b.OwnerID != actor.UserID || b.Status == models.StatusReturned {
				continue
			}
			it, ok := d.items[b.ItemID]
			if !ok {
				continue
			}
			borrower, ok := d.users[b.BorrowerID]
			if !ok {
				continue
			}
			out = append(out, BorrowView{Borrow: b, ItemName: it.Name, Borrower: borrower.Username})
		}
	})
	return out, err
}

// PendingCount counts borrows waiting for the owner: new requests and
// returns to confirm.
func (s *Service) PendingCount(ctx context.Context, actor Actor) (int, error) {
	var n int
	err := s.view(ctx, func(tx *db.Tx) {
		for _, b := range tx.Borrows() {
			if b.OwnerID == actor.UserID && (b.Status == models.StatusPending || b.Status == models.StatusReturning) {
				n++
			}
		}
	})
	return n, err
}
