package identity

import "time"

// Claims is the license metadata attached to a user identity. When present
// on a session token the client treats it as authoritative over its local
// settings cache.
type Claims struct {
	Practice      string   `json:"practice"`
	Modules       []string `json:"modules"`
	Plan          string   `json:"plan"`
	LicenseActive bool     `json:"license_active"`
}

// User is one licensed account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash []byte
	Claims       Claims
	CreatedAt    time.Time
}
