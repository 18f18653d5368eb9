package users

import "time"

// User is a patient account. Credential handling lives elsewhere; the
// booking flow only needs identity, contact details and the blocked flag.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Blocked   bool      `json:"blocked"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns the display name used on calendar events.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}
