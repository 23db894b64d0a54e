package models

import "time"

// User mirrors the users collection maintained by the enrollment flow. This
// service only ever reads it; rows are created out-of-band.
type User struct {
	UID       string    `json:"uid" gorm:"primaryKey;type:varchar(128)"`
	Email     string    `json:"email"`
	Role      string    `json:"role" gorm:"type:varchar(20);default:student;index"` // student, admin, cashier
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
