package domain

import "time"

// User is an account that can sign in to either portal. Staff accounts have
// IsStaff set; everyone else is a customer.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user onto its public representation.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		IsStaff:   u.IsStaff,
	}
}

// IsCustomer reports whether the user may be the target of a diagnostic session.
func (u *User) IsCustomer() bool {
	return !u.IsStaff && u.IsActive
}
