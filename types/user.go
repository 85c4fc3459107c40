package types

import "time"

// User represents an account in the system.
// It contains identity, display name, and audit metadata.
type User struct {
	// ID is the unique, opaque identifier of the user (a UUID string).
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address. It is the login key.
	Email string `json:"email" db:"email"`

	// FirstName is the optional given name shown in the UI.
	FirstName string `json:"firstName" db:"first_name"`

	// LastName is the optional family name shown in the UI.
	LastName string `json:"lastName" db:"last_name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
