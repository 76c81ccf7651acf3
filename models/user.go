package models

import "time"

// User is a registered shopper. Credential handling lives outside this
// service; the storefront only resolves users by id or email.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;not null"`
	FullName  string
	Phone     string `gorm:"size:20"`
	Address   string `gorm:"size:500"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (u *User) TableName() string {
	return "users"
}
