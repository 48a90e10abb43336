package models

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the caller identity provided by the authentication layer.
// User data is owned by the identity provider and never persisted here.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Summary is the populated shape embedded in exam and attempt responses.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.FullName, Email: u.Email}
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
