package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrEmailTaken = errors.New("email already registered")
var ErrNotVerified = errors.New("account not verified")
var ErrIncorrectPassword = errors.New("incorrect password")
var ErrNotAdmin = errors.New("account is not an admin")
var ErrTokenExpired = errors.New("token is invalid or expired")
var ErrNoAccounts = errors.New("no accounts found")

// Account is the core aggregate: one registered user and the lifecycle
// flags the service mutates (verification, login state, admin grant).
type Account struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	IsVerified        bool      `json:"is_verified"`
	IsLoggedIn        bool      `json:"is_logged_in"`
	IsAdmin           bool      `json:"is_admin"`
	VerificationToken string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DuplicateEmailMessage renders the user-facing duplicate-registration text.
// The email is echoed back exactly as the caller submitted it.
func DuplicateEmailMessage(email string) string {
	return fmt.Sprintf("User with this Email: %s already exist.", email)
}
