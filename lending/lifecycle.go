package lending

import (
	"context"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
	"github.com/lescriminels/guild/notify"
)

// RequestBorrow creates a pending borrow of itemID for the actor. The
// proof image is stored before the transaction and removed again if the
// request is refused.
func (s *Service) RequestBorrow(ctx context.Context, actor Actor, itemID string, proof *Upload) (b models.Borrow, err error) {
	defer func() { s.observe("request", err) }()

	if actor.UserID == "" {
		return models.Borrow{}, forbiddenf("no actor")
	}
	if itemID == "" {
		return models.Borrow{}, validationf("item id is required")
	}
	if proof.empty() {
		return models.Borrow{}, validationf("a proof image is required")
	}
	ref, err := s.storeUpload(ctx, proof)
	if err != nil {
		return models.Borrow{}, err
	}

	err = s.store.Update(ctx, func(tx *db.Tx) error {
		it, ok := tx.Item(itemID)
		if !ok {
			return notFoundf("item %s not found", itemID)
		}
		if it.OwnerID == actor.UserID {
			return conflictf("you cannot borrow your own item")
		}
		if !it.Available {
			return conflictf("item %s is not available", itemID)
		}
		if _, open := openBorrowFor(tx.Borrows(), itemID); open {
			return conflictf("item %s already has an open borrow request", itemID)
		}
		b = models.Borrow{
			ID:          s.ids.NewID("b_"),
			ItemID:      it.ID,
			BorrowerID:  actor.UserID,
			OwnerID:     it.OwnerID,
			Status:      models.StatusPending,
			RequestDate: s.clock.Now().UTC(),
			ProofImage:  ref,
		}
		tx.PutBorrow(b)
		return nil
	})
	if err != nil {
		s.release(ctx, ref)
		return models.Borrow{}, classify(err)
	}
	s.publish(ctx, notify.BorrowRequested, b)
	return b, nil
}

// Approve moves a pending record to approved, or confirms a returning
// record as returned. Any other state is a conflict.
func (s *Service) Approve(ctx context.Context, actor Actor, borrowID string) (b models.Borrow, err error) {
	defer func() { s.observe("approve", err) }()

	var orphans []*string
	var event notify.EventType
	err = s.store.Update(ctx, func(tx *db.Tx) error {
		cur, ok := tx.Borrow(borrowID)
		if !ok {
			return notFoundf("borrow %s not found", borrowID)
		}
		if !actor.IsAdmin && actor.UserID != cur.OwnerID {
			return forbiddenf("only the owner can approve this borrow")
		}
		switch cur.Status {
		case models.StatusPending:
			it, ok := tx.Item(cur.ItemID)
			if !ok {
				return notFoundf("item %s not found", cur.ItemID)
			}
			if !it.Available || ActiveItems(tx.Borrows())[cur.ItemID] {
				return conflictf("item %s is already lent out", cur.ItemID)
			}
			cur.Status = models.StatusApproved
			event = notify.BorrowApproved
		case models.StatusReturning:
			orphans = []*string{cur.ProofImage, cur.ReturnProofImage}
			cur.ProofImage, cur.ReturnProofImage = nil, nil
			cur.Status = models.StatusReturned
			event = notify.BorrowReturned
		default:
			return conflictf("borrow %s is %s; only pending or returning borrows can be approved", borrowID, cur.Status)
		}
		tx.PutBorrow(cur)
		syncAvailability(tx, cur.ItemID)
		b = cur
		return nil
	})
	if err != nil {
		return models.Borrow{}, classify(err)
	}
	s.release(ctx, orphans...)
	s.publish(ctx, event, b)
	return b, nil
}

// MarkReturning moves an approved record to returning. A new return proof
// replaces the previous one, which is deleted once the change is committed.
func (s *Service) MarkReturning(ctx context.Context, actor Actor, borrowID string, proof *Upload) (b models.Borrow, err error) {
	defer func() { s.observe("returning", err) }()

	ref, err := s.storeUpload(ctx, proof)
	if err != nil {
		return models.Borrow{}, err
	}
	var orphans []*string
	err = s.store.Update(ctx, func(tx *db.Tx) error {
		cur, ok := tx.Borrow(borrowID)
		if !ok {
			return notFoundf("borrow %s not found", borrowID)
		}
		if !actor.IsAdmin && actor.UserID != cur.BorrowerID {
			return forbiddenf("only the borrower can return this item")
		}
		if cur.Status != models.StatusApproved {
			return conflictf("borrow %s is %s; only approved borrows can be returned", borrowID, cur.Status)
		}
		if ref != nil {
			orphans = []*string{cur.ReturnProofImage}
			cur.ReturnProofImage = ref
		}
		cur.Status = models.StatusReturning
		tx.PutBorrow(cur)
		syncAvailability(tx, cur.ItemID)
		b = cur
		return nil
	})
	if err != nil {
		s.release(ctx, ref)
		return models.Borrow{}, classify(err)
	}
	s.release(ctx, orphans...)
	s.publish(ctx, notify.BorrowReturning, b)
	return b, nil
}

// Cancel withdraws a pending request, deleting the record, or rejects a
// return, putting the record back to approved. removed reports which of
// the two happened.
func (s *Service) Cancel(ctx context.Context, actor Actor, borrowID string) (removed bool, err error) {
	defer func() { s.observe("cancel", err) }()

	var orphans []*string
	var b models.Borrow
	err = s.store.Update(ctx, func(tx *db.Tx) error {
		cur, ok := tx.Borrow(borrowID)
		if !ok {
			return notFoundf("borrow %s not found", borrowID)
		}
		if !actor.IsAdmin && actor.UserID != cur.BorrowerID && actor.UserID != cur.OwnerID {
			return forbiddenf("only the borrower or the owner can cancel this borrow")
		}
		switch cur.Status {
		case models.StatusPending:
			orphans = []*string{cur.ProofImage, cur.ReturnProofImage}
			tx.DeleteBorrow(cur.ID)
			removed = true
		case models.StatusReturning:
			orphans = []*string{cur.ReturnProofImage}
			cur.ReturnProofImage = nil
			cur.Status = models.StatusApproved
			tx.PutBorrow(cur)
		default:
			return conflictf("borrow %s is %s; only pending or returning borrows can be cancelled", borrowID, cur.Status)
		}
		syncAvailability(tx, cur.ItemID)
		b = cur
		return nil
	})
	if err != nil {
		return false, classify(err)
	}
	s.release(ctx, orphans...)
	if removed {
		s.publish(ctx, notify.BorrowCancelled, b)
	} else {
		s.publish(ctx, notify.BorrowReverted, b)
	}
	return removed, nil
}
