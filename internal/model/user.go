package model

import "time"

// User is the stored account row. PasswordHash never leaves the service
// layer; every outward representation is AuthUser.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UserRecord is what a login lookup returns to the pipeline: the id, the
// stored password hash, and any extra attributes destined for the token
// payload. The hash lives in its own field so sanitization is structural.
type UserRecord struct {
	ID     string
	Hash   string
	Claims map[string]any
}

// Sanitize strips the hash field. The result is the only shape that may be
// attached to token claims or a response.
func (r UserRecord) Sanitize() SanitizedUser {
	return SanitizedUser{ID: r.ID, Claims: r.Claims}
}

// SanitizedUser is a UserRecord without the password hash.
type SanitizedUser struct {
	ID     string
	Claims map[string]any
}

// AuthUser is the public account representation.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
