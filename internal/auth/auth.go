// Package auth is a sign-in stub: any non-blank email and password pair is
// accepted, and register behaves the same way.  There is no user table.
package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MsgMissing is shown when either credential is blank.
const MsgMissing = "Please enter your email and password."

// ErrMissingCredentials is returned for a blank email or password.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials is the login and register request body.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var validate = validator.New()

// Login returns the trimmed email when both fields are non-blank.
func Login(c Credentials) (string, error) {
	c.Email = strings.TrimSpace(c.Email)
	c.Password = strings.TrimSpace(c.Password)
	if err := validate.Struct(c); err != nil {
		return "", ErrMissingCredentials
	}
	return c.Email, nil
}

// Register is Login under another name.
func Register(c Credentials) (string, error) { return Login(c) }
