package models

import "time"

type BorrowStatus string

const (
	StatusPending   BorrowStatus = "pending"
	StatusApproved  BorrowStatus = "approved"
	StatusReturning BorrowStatus = "returning"
	StatusReturned  BorrowStatus = "returned"
)

func (s BorrowStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReturning, StatusReturned:
		return true
	}
	return false
}

// Open reports whether the record still takes part in the lifecycle.
func (s BorrowStatus) Open() bool {
	return s == StatusPending || s == StatusApproved || s == StatusReturning
}

// Active reports whether the record holds the item (makes it unavailable).
func (s BorrowStatus) Active() bool {
	return s == StatusApproved || s == StatusReturning
}

// Borrow is one borrow request and its progress. OwnerID is a copy of the
// item's owner taken when the request was made.
type Borrow struct {
	ID               string       `gorm:"primaryKey;size:40" json:"id"`
	ItemID           string       `gorm:"index;size:40;not null" json:"item_id"`
	BorrowerID       string       `gorm:"index;size:40;not null" json:"borrower_id"`
	OwnerID          string       `gorm:"index;size:40;not null" json:"owner_id"`
	Status           BorrowStatus `gorm:"size:20;not null" json:"status"`
	RequestDate      time.Time    `gorm:"not null" json:"request_date"`
	ProofImage       *string      `gorm:"size:255" json:"proof_image"`
	ReturnProofImage *string      `gorm:"size:255" json:"return_proof_image"`

	Position int `gorm:"not null;default:0" json:"-"`
}

func (Borrow) TableName() string { return BorrowTable }
