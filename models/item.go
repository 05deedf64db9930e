package models

// Item is owned by one user. Available is derived from the borrow records
// and only changes as a side effect of a lifecycle transition.
type Item struct {
	ID          string `gorm:"primaryKey;size:40" json:"id"`
	OwnerID     string `gorm:"index;size:40;not null" json:"owner_id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Available   bool   `gorm:"not null" json:"available"`

	Position int `gorm:"not null;default:0" json:"-"`
}

func (Item) TableName() string { return ItemTable }
