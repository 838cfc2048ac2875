package domain

// Identity is the public view of a user as exchanged over the auth API.
// Whether it represents a customer or a staff member depends on where it is
// held, never on its shape.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
}

// DisplayName returns "First Last", falling back to the username.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.Username
	}
}
