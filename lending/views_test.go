package lending

import (
	"context"
	"testing"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewSeed() db.Snapshot {
	seed := baseSeed()
	seed.Items = append(seed.Items,
		models.Item{ID: "i3", OwnerID: "u1", Name: "saw", Available: false},
		models.Item{ID: "i4", OwnerID: "u3", Name: "tent", Available: true},
		models.Item{ID: "i5", OwnerID: "ghost", Name: "orphan", Available: true},
	)
	seed.Borrows = []models.Borrow{
		{ID: "b1", ItemID: "i3", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusApproved},
		{ID: "b2", ItemID: "i1", BorrowerID: "u3", OwnerID: "u1", Status: models.StatusPending},
		{ID: "b3", ItemID: "i4", BorrowerID: "u2", OwnerID: "u3", Status: models.StatusPending},
		{ID: "b4", ItemID: "gone", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusApproved},
		{ID: "b5", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusReturned},
		{ID: "b6", ItemID: "i1", BorrowerID: "ghost", OwnerID: "u1", Status: models.StatusReturning},
	}
	return seed
}

func TestMyItemsShowsCurrentBorrower(t *testing.T) {
	f := newFixture(t, viewSeed())

	rows, err := f.svc.MyItems(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]OwnedItem{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.Equal(t, "bob", byID["i3"].Borrower)
	assert.Equal(t, models.StatusApproved, byID["i3"].BorrowStatus)
	assert.Equal(t, "b6", byID["i1"].BorrowID)
	assert.Empty(t, byID["i1"].Borrower, "deleted borrower shows no name")
}

func TestMyBorrowsSkipsDanglingAndReturned(t *testing.T) {
	f := newFixture(t, viewSeed())

	rows, err := f.svc.MyBorrows(context.Background(), borrower)
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b1", "b3"}, ids)
	assert.Equal(t, "saw", rows[0].ItemName)
	assert.Equal(t, "ann", rows[0].Owner)
}

func TestBorrowable(t *testing.T) {
	f := newFixture(t, viewSeed())

	rows, err := f.svc.Borrowable(context.Background(), borrower)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, r := range rows {
		got[r.ID] = r.AlreadyRequested
	}
	// i2 is bob's own, i3 is lent out, i5's owner no longer exists
	assert.Equal(t, map[string]bool{"i1": false, "i4": true}, got)
}

func TestIncomingAndPendingCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, viewSeed())

	rows, err := f.svc.Incoming(ctx, owner)
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b1", "b2"}, ids)
	assert.Equal(t, "cy", rows[1].Borrower)

	n, err := f.svc.PendingCount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "b2 pending plus b6 returning")
}

func TestViewsAreEmptyNotNil(t *testing.T) {
	f := newFixture(t, db.Snapshot{})
	rows, err := f.svc.MyBorrows(context.Background(), borrower)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestReconcileRepairsFlags(t *testing.T) {
	ctx := context.Background()
	seed := viewSeed()
	seed.Items[0].Available = false // held by b6, already correct
	seed.Items[2].Available = true  // lent out by b1
	f := newFixture(t, seed)

	fixed, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"i3"}, fixed)
	assertInventory(t, f)

	fixed, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, fixed)
}
