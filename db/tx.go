package db

import (
	"slices"

	"github.com/lescriminels/guild/models"
)

// Tx is a working copy of every collection. Reads return copies; writes
// mark the collection for commit. A Tx is only valid inside the callback
// it was handed to.
type Tx struct {
	snap  Snapshot
	dirty map[Collection]bool
}

func newTx(snap Snapshot) *Tx {
	return &Tx{snap: snap, dirty: map[Collection]bool{}}
}

func (tx *Tx) Users() []models.User     { return slices.Clone(tx.snap.Users) }
func (tx *Tx) Items() []models.Item     { return slices.Clone(tx.snap.Items) }
func (tx *Tx) Borrows() []models.Borrow { return slices.Clone(tx.snap.Borrows) }

// User looks a user up by id. A missing user is reported with ok == false.
func (tx *Tx) User(id string) (models.User, bool) {
	return find(tx.snap.Users, id, userID)
}

func (tx *Tx) Item(id string) (models.Item, bool) {
	return find(tx.snap.Items, id, itemID)
}

func (tx *Tx) Borrow(id string) (models.Borrow, bool) {
	return find(tx.snap.Borrows, id, borrowID)
}

// PutUser replaces the user with the same id, or appends it.
func (tx *Tx) PutUser(u models.User) {
	tx.snap.Users = put(tx.snap.Users, u, userID)
	tx.dirty[Users] = true
}

func (tx *Tx) PutItem(it models.Item) {
	tx.snap.Items = put(tx.snap.Items, it, itemID)
	tx.dirty[Items] = true
}

func (tx *Tx) PutBorrow(b models.Borrow) {
	tx.snap.Borrows = put(tx.snap.Borrows, b, borrowID)
	tx.dirty[Borrows] = true
}

func (tx *Tx) DeleteUser(id string) bool {
	var ok bool
	if tx.snap.Users, ok = remove(tx.snap.Users, id, userID); ok {
		tx.dirty[Users] = true
	}
	return ok
}

func (tx *Tx) DeleteItem(id string) bool {
	var ok bool
	if tx.snap.Items, ok = remove(tx.snap.Items, id, itemID); ok {
		tx.dirty[Items] = true
	}
	return ok
}

func (tx *Tx) DeleteBorrow(id string) bool {
	var ok bool
	if tx.snap.Borrows, ok = remove(tx.snap.Borrows, id, borrowID); ok {
		tx.dirty[Borrows] = true
	}
	return ok
}

// ReplaceItems writes the whole items collection.
func (tx *Tx) ReplaceItems(items []models.Item) {
	tx.snap.Items = slices.Clone(items)
	tx.dirty[Items] = true
}

func (tx *Tx) ReplaceBorrows(borrows []models.Borrow) {
	tx.snap.Borrows = slices.Clone(borrows)
	tx.dirty[Borrows] = true
}

func (tx *Tx) changed() []Collection {
	var out []Collection
	for _, c := range Collections {
		if tx.dirty[c] {
			out = append(out, c)
		}
	}
	return out
}

func userID(u models.User) string     { return u.ID }
func itemID(it models.Item) string    { return it.ID }
func borrowID(b models.Borrow) string { return b.ID }

func find[T any](rows []T, id string, key func(T) string) (T, bool) {
	for _, r := range rows {
		if key(r) == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func put[T any](rows []T, row T, key func(T) string) []T {
	id := key(row)
	for i := range rows {
		if key(rows[i]) == id {
			rows[i] = row
			return rows
		}
	}
	return append(rows, row)
}

func remove[T any](rows []T, id string, key func(T) string) ([]T, bool) {
	i := slices.IndexFunc(rows, func(r T) bool { return key(r) == id })
	if i < 0 {
		return rows, false
	}
	return slices.Delete(rows, i, i+1), true
}
