package db

import (
	"context"
	"fmt"

	"github.com/lescriminels/guild/models"

	"gorm.io/gorm"
)

// GormBackend maps each collection to a table. Commit replaces the changed
// tables inside one database transaction.
type GormBackend struct {
	DB *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend { return &GormBackend{DB: db} }

func (g *GormBackend) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	q := g.DB.WithContext(ctx)
	if err := q.Order("position").Find(&snap.Users).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load users: %w", err)
	}
	if err := q.Order("position").Find(&snap.Items).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load items: %w", err)
	}
	if err := q.Order("position").Find(&snap.Borrows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load borrows: %w", err)
	}
	return snap, nil
}

func (g *GormBackend) Commit(ctx context.Context, next Snapshot, changed []Collection) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range changed {
			var err error
			switch c {
			case Users:
				err = replaceTable(tx, &models.User{}, positioned(next.Users, func(u *models.User, i int) { u.Position = i }))
			case Items:
				err = replaceTable(tx, &models.Item{}, positioned(next.Items, func(it *models.Item, i int) { it.Position = i }))
			case Borrows:
				err = replaceTable(tx, &models.Borrow{}, positioned(next.Borrows, func(b *models.Borrow, i int) { b.Position = i }))
			default:
				err = fmt.Errorf("%w: %q", ErrUnknownCollection, c)
			}
			if err != nil {
				return fmt.Errorf("replace %s: %w", c, err)
			}
		}
		return nil
	})
}

func (g *GormBackend) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func replaceTable[T any](tx *gorm.DB, model *T, rows []T) error {
	if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, 200).Error
}

func positioned[T any](rows []T, set func(*T, int)) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	for i := range out {
		set(&out[i], i)
	}
	return out
}
