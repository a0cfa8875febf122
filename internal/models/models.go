package models

import "time"

// User represents a registered account that owns a contact list.
type User struct {
	ID        string
	Name      string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is a single entry in a user's contact list. Email and Photo are
// optional; the empty string means the field is absent. Photo holds the
// storage path of the attached blob, never a public URL.
type Contact struct {
	ID        string
	OwnerID   string
	Name      string
	Phone     string
	Email     string
	Photo     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
