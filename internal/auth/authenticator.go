package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(username, password string) (*Principal, error)
}

// StaticAdmin accepts exactly one configured identity. The password is kept
// only as a bcrypt hash.
type StaticAdmin struct {
	username string
	hash     []byte
}

func NewStaticAdmin(username, password string) (*StaticAdmin, error) {
	if username == "" || password == "" {
		return nil, errors.New("admin username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &StaticAdmin{username: username, hash: hash}, nil
}

func (a *StaticAdmin) Authenticate(username, password string) (*Principal, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))

	if !userOK || passErr != nil {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Username: a.username}, nil
}
