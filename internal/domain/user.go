package domain

import "time"

// User is a staff member managed from the admin surface.
type User struct {
	ID        int64     `json:"id"`
	LoginName string    `json:"login_name"`
	Password  string    `json:"-"`
	RealName  string    `json:"real_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a front-of-house guest registered through the public API.
type Account struct {
	ID           int64     `json:"id"`
	LoginName    string    `json:"login_name"`
	Password     string    `json:"-"`
	Nickname     string    `json:"nickname"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Status       Status    `json:"status"`
	Roles        []Role    `json:"roles"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Status is the enabled flag stored as 0/1.
type Status int

const (
	StatusDisabled Status = 0
	StatusEnabled  Status = 1
)

// Enabled reports whether the holder may authenticate.
func (s Status) Enabled() bool {
	return s == StatusEnabled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusDisabled || s == StatusEnabled
}
