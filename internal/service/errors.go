package service

import "errors"

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadCredentials is returned when a password does not match the stored digest.
	ErrBadCredentials = errors.New("password does not match")
	// ErrPasswordNotSupported is returned when changing the password of a provider account.
	ErrPasswordNotSupported = errors.New("account signs in through an external provider")

	// ErrInvalidCredentials is returned when email or password is incorrect. It
	// deliberately does not say which.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrAssertionMalformed is returned when an external identity lacks required fields.
	ErrAssertionMalformed = errors.New("external identity assertion is incomplete")
)
