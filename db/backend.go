package db

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/lescriminels/guild/models"
)

// Collection names a persisted collection of records.
type Collection string

const (
	Users   Collection = "users"
	Items   Collection = "items"
	Borrows Collection = "borrows"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{Users, Items, Borrows}

var ErrUnknownCollection = errors.New("unknown collection")

// Snapshot is the full contents of the store at one point in time.
type Snapshot struct {
	Users   []models.User
	Items   []models.Item
	Borrows []models.Borrow
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Users:   slices.Clone(s.Users),
		Items:   slices.Clone(s.Items),
		Borrows: slices.Clone(s.Borrows),
	}
}

// Backend persists snapshots. Commit must write every collection in
// changed or none of them.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Commit(ctx context.Context, next Snapshot, changed []Collection) error
	Close() error
}

// payload returns the rows of c, ready for encoding.
func (s Snapshot) payload(c Collection) (any, error) {
	switch c {
	case Users:
		return nonNil(s.Users), nil
	case Items:
		return nonNil(s.Items), nil
	case Borrows:
		return nonNil(s.Borrows), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

// target returns a pointer to decode the rows of c into.
func (s *Snapshot) target(c Collection) (any, error) {
	switch c {
	case Users:
		return &s.Users, nil
	case Items:
		return &s.Items, nil
	case Borrows:
		return &s.Borrows, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
