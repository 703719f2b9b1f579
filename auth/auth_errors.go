package auth

import "errors"

var (
	InvalidCredentialsErr = errors.New("invalid credentials")
	UserExistsErr         = errors.New("user already exists")
	UserNotFoundErr       = errors.New("user not found")
	UserBlockedErr        = errors.New("user blocked")
	WeakPasswordErr       = errors.New("password does not meet strength requirements")
	NotSessionOwnerErr    = errors.New("session does not belong to caller")
)
