package models

const (
	UserTable   = "guild_users"
	ItemTable   = "guild_items"
	BorrowTable = "guild_borrows"
)

// User is a registered member. Username is unique across users.
type User struct {
	ID           string `gorm:"primaryKey;size:40" json:"id"`
	Username     string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"password_hash"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"is_admin"`

	// Position keeps collection order in relational backends.
	Position int `gorm:"not null;default:0" json:"-"`
}

func (User) TableName() string { return UserTable }
