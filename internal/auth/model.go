package auth

import "time"

// Principal is an authenticated admin identity.
type Principal struct {
	Username string
}

// Session is the decoded state of a session token.
type Session struct {
	Username  string
	ExpiresAt time.Time
}
