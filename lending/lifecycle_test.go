package lending

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
	"github.com/lescriminels/guild/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, baseSeed())

	b1, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b1.Status)
	assert.Equal(t, "u1", b1.OwnerID)
	assert.Equal(t, "u2", b1.BorrowerID)
	require.NotNil(t, b1.ProofImage)
	assert.True(t, f.fileExists(b1.ProofImage))
	assert.True(t, f.item(t, "i1").Available, "pending does not take the item")
	assertInventory(t, f)

	b, err := f.svc.Approve(ctx, owner, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, b.Status)
	assert.False(t, f.item(t, "i1").Available)
	assertInventory(t, f)

	b, err = f.svc.MarkReturning(ctx, borrower, b1.ID, jpegProof)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturning, b.Status)
	require.NotNil(t, b.ReturnProofImage)
	returnProof := b.ReturnProofImage
	assert.True(t, f.fileExists(returnProof))
	assert.False(t, f.item(t, "i1").Available)
	assertInventory(t, f)

	b, err = f.svc.Approve(ctx, owner, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, b.Status)
	assert.Nil(t, b.ProofImage)
	assert.Nil(t, b.ReturnProofImage)
	assert.True(t, f.item(t, "i1").Available)
	assert.False(t, f.fileExists(b1.ProofImage))
	assert.False(t, f.fileExists(returnProof))
	assert.Zero(t, f.files.Len())
	assertInventory(t, f)

	stored, ok := f.borrow(t, b1.ID)
	require.True(t, ok, "returned records are kept")
	assert.Equal(t, models.StatusReturned, stored.Status)

	assert.Equal(t, []notify.EventType{
		notify.BorrowRequested, notify.BorrowApproved, notify.BorrowReturning, notify.BorrowReturned,
	}, f.pub.types())
	assert.Equal(t, 2, f.rec.seen["approve/ok"])
}

func TestRequestBorrowRefusals(t *testing.T) {
	ctx := context.Background()
	seed := baseSeed()
	seed.Items = append(seed.Items,
		models.Item{ID: "i3", OwnerID: "u1", Name: "saw", Available: false},
		models.Item{ID: "i4", OwnerID: "u1", Name: "vice", Available: true},
	)
	seed.Borrows = []models.Borrow{
		{ID: "b-lent", ItemID: "i3", BorrowerID: "u3", OwnerID: "u1", Status: models.StatusApproved},
		{ID: "b-wait", ItemID: "i4", BorrowerID: "u3", OwnerID: "u1", Status: models.StatusPending},
	}

	tests := []struct {
		name   string
		actor  Actor
		itemID string
		proof  *Upload
		code   Code
	}{
		{"own item", owner, "i1", pngProof, CodeConflict},
		{"item lent out", borrower, "i3", pngProof, CodeConflict},
		{"item already requested", borrower, "i4", pngProof, CodeConflict},
		{"missing item", borrower, "nope", pngProof, CodeNotFound},
		{"no proof", borrower, "i1", nil, CodeValidation},
		{"not an image", borrower, "i1", &Upload{Data: []byte("%PDF-1.7"), ContentType: "application/pdf"}, CodeValidation},
		{"no actor", Actor{}, "i1", pngProof, CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, seed)
			_, err := f.svc.RequestBorrow(ctx, tt.actor, tt.itemID, tt.proof)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err), err.Error())
			assert.Len(t, f.snapshot(t).Borrows, 2, "no record may be created")
			assert.Zero(t, f.files.Len(), "refused uploads are removed")
			assert.Empty(t, f.pub.types())
		})
	}
}

func TestApproveOnlyFromPendingOrReturning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, baseSeed())

	b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, owner, b.ID)
	require.NoError(t, err)

	before := f.snapshot(t)
	_, err = f.svc.Approve(ctx, owner, b.ID)
	assert.True(t, IsCode(err, CodeConflict))
	assert.Equal(t, before, f.snapshot(t), "second approve changes nothing")

	_, err = f.svc.Approve(ctx, owner, "b-missing")
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestApproveRequiresOwnerOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, baseSeed())
	b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, borrower, b.ID)
	assert.True(t, IsCode(err, CodeForbidden))
	_, err = f.svc.Approve(ctx, other, b.ID)
	assert.True(t, IsCode(err, CodeForbidden))

	got, err := f.svc.Approve(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestApproveSiblingPendingAfterLendingIsConflict(t *testing.T) {
	ctx := context.Background()
	seed := baseSeed()
	seed.Borrows = []models.Borrow{
		{ID: "b-a", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusPending},
		{ID: "b-b", ItemID: "i1", BorrowerID: "u3", OwnerID: "u1", Status: models.StatusPending},
	}
	f := newFixture(t, seed)

	_, err := f.svc.Approve(ctx, owner, "b-a")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, owner, "b-b")
	assert.True(t, IsCode(err, CodeConflict))

	sibling, ok := f.borrow(t, "b-b")
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, sibling.Status)
	assertInventory(t, f)
}

func TestApproveReturnOfDeletedItem(t *testing.T) {
	ctx := context.Background()
	seed := baseSeed()
	seed.Items = seed.Items[1:]
	seed.Borrows = []models.Borrow{
		{ID: "b1", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusReturning},
	}
	f := newFixture(t, seed)

	b, err := f.svc.Approve(ctx, owner, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, b.Status)
}

func TestMarkReturning(t *testing.T) {
	ctx := context.Background()

	t.Run("only from approved", func(t *testing.T) {
		f := newFixture(t, baseSeed())
		b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
		require.NoError(t, err)

		_, err = f.svc.MarkReturning(ctx, borrower, b.ID, gifProof)
		assert.True(t, IsCode(err, CodeConflict))
		assert.Equal(t, 1, f.files.Len(), "rejected return proof is removed")
	})

	t.Run("borrower or admin only", func(t *testing.T) {
		seed := baseSeed()
		seed.Borrows = []models.Borrow{{ID: "b1", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusApproved}}
		seed.Items[0].Available = false
		f := newFixture(t, seed)

		_, err := f.svc.MarkReturning(ctx, owner, "b1", nil)
		assert.True(t, IsCode(err, CodeForbidden))
		b, err := f.svc.MarkReturning(ctx, admin, "b1", nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReturning, b.Status)
		assert.Nil(t, b.ReturnProofImage)
	})

	t.Run("new proof supersedes old one", func(t *testing.T) {
		seed := baseSeed()
		old := "uploads/proof_old.png"
		seed.Borrows = []models.Borrow{{
			ID: "b1", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1",
			Status: models.StatusApproved, ReturnProofImage: strPtr(old),
		}}
		seed.Items[0].Available = false
		f := newFixture(t, seed)
		require.NoError(t, f.files.Put(ctx, "proof_old.png", strings.NewReader("old"), 3, "image/png"))

		b, err := f.svc.MarkReturning(ctx, borrower, "b1", gifProof)
		require.NoError(t, err)
		require.NotNil(t, b.ReturnProofImage)
		assert.NotEqual(t, old, *b.ReturnProofImage)
		assert.False(t, f.files.Has("proof_old.png"))
		assert.True(t, f.fileExists(b.ReturnProofImage))
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending removes record and proof", func(t *testing.T) {
		f := newFixture(t, baseSeed())
		b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
		require.NoError(t, err)

		removed, err := f.svc.Cancel(ctx, borrower, b.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		_, ok := f.borrow(t, b.ID)
		assert.False(t, ok)
		assert.False(t, f.fileExists(b.ProofImage))
		assert.True(t, f.item(t, "i1").Available)
		assertInventory(t, f)
	})

	t.Run("returning reverts to approved", func(t *testing.T) {
		f := newFixture(t, baseSeed())
		b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, owner, b.ID)
		require.NoError(t, err)
		ret, err := f.svc.MarkReturning(ctx, borrower, b.ID, gifProof)
		require.NoError(t, err)

		removed, err := f.svc.Cancel(ctx, owner, b.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		got, ok := f.borrow(t, b.ID)
		require.True(t, ok)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.Nil(t, got.ReturnProofImage)
		assert.NotNil(t, got.ProofImage)
		assert.False(t, f.fileExists(ret.ReturnProofImage))
		assert.True(t, f.fileExists(got.ProofImage))
		assert.False(t, f.item(t, "i1").Available)
		assertInventory(t, f)
	})

	t.Run("approved and returned cannot be cancelled", func(t *testing.T) {
		seed := baseSeed()
		seed.Items[0].Available = false
		seed.Borrows = []models.Borrow{
			{ID: "b1", ItemID: "i1", BorrowerID: "u2", OwnerID: "u1", Status: models.StatusApproved},
			{ID: "b2", ItemID: "i2", BorrowerID: "u1", OwnerID: "u2", Status: models.StatusReturned},
		}
		f := newFixture(t, seed)

		_, err := f.svc.Cancel(ctx, borrower, "b1")
		assert.True(t, IsCode(err, CodeConflict))
		_, err = f.svc.Cancel(ctx, owner, "b2")
		assert.True(t, IsCode(err, CodeConflict))
		assert.Equal(t, seed.Borrows, f.snapshot(t).Borrows)
	})

	t.Run("strangers cannot cancel", func(t *testing.T) {
		f := newFixture(t, baseSeed())
		b, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, other, b.ID)
		assert.True(t, IsCode(err, CodeForbidden))
		_, ok := f.borrow(t, b.ID)
		assert.True(t, ok)
	})
}

func TestConcurrentRequestsCreateOnePendingRecord(t *testing.T) {
	ctx := context.Background()
	seed := baseSeed()
	for i := 0; i < 12; i++ {
		seed.Users = append(seed.Users, models.User{ID: "racer" + string(rune('a'+i))})
	}
	f := newFixture(t, seed)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.RequestBorrow(ctx, Actor{UserID: id}, "i1", pngProof)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case IsCode(err, CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}("racer" + string(rune('a'+i)))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 11, conflicts)
	var pending int
	for _, b := range f.snapshot(t).Borrows {
		if b.ItemID == "i1" && b.Status == models.StatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, f.files.Len(), "losers' proofs are removed")
}

func TestStorageFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWithBackend(t, baseSeed(), func(m *db.MemoryBackend) db.Backend {
		return failingCommit{MemoryBackend: m}
	})

	_, err := f.svc.RequestBorrow(ctx, borrower, "i1", pngProof)
	require.Error(t, err)
	assert.Equal(t, CodeStorage, CodeOf(err))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Empty(t, f.snapshot(t).Borrows)
	assert.Zero(t, f.files.Len())
	assert.Equal(t, 1, f.rec.seen["request/storage"])
}
