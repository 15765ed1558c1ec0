package models

import "time"

// User is a registered account. Email is the contact address that receives
// one-time download codes.
type User struct {
	ID           string    `db:"id"`
	UserName     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
