// Package otp manages short-lived numeric verification codes for the phone
// login flow.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrCodeInvalid = errors.New("verification code invalid")
	ErrCodeExpired = errors.New("verification code expired")

	// ErrTooManyAttempts means the code was guessed wrong too many times and
	// has been invalidated. A fresh code must be requested.
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

const (
	codeDigits  = 6
	codeExpiry  = 10 * time.Minute
	maxAttempts = 3
)

// Code is a stored verification code awaiting confirmation.
type Code struct {
	Value    string
	IssuedAt time.Time
	Attempts int
}

// CodeStore holds pending codes keyed by identifier (phone number). Update
// must apply fn atomically with respect to other Update calls for the same
// identifier; fn receives nil when no code is pending, and returning nil
// removes the entry.
type CodeStore interface {
	Put(identifier string, code *Code)
	Update(identifier string, fn func(code *Code) *Code)
}

// Verifier issues and checks verification codes.
type Verifier struct {
	store   CodeStore
	nowFunc func() time.Time
	genFunc func() (string, error)
}

type VerifierOption func(*Verifier)

func WithNowFunc(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// WithGenerateFunc overrides code generation (used in tests).
func WithGenerateFunc(gen func() (string, error)) VerifierOption {
	return func(v *Verifier) {
		v.genFunc = gen
	}
}

func NewVerifier(store CodeStore, options ...VerifierOption) *Verifier {
	v := &Verifier{
		store:   store,
		nowFunc: time.Now,
		genFunc: generateCode,
	}
	for _, opt := range options {
		opt(v)
	}
	if v.store == nil {
		v.store = NewInMemoryCodeStore()
	}
	return v
}

// Issue creates a fresh 6-digit code for the identifier, replacing any
// pending one, and returns it for delivery.
func (v *Verifier) Issue(identifier string) (string, error) {
	code, err := v.genFunc()
	if err != nil {
		return "", errors.Wrap(err, "[Verifier.Issue] generate code")
	}
	v.store.Put(identifier, &Code{
		Value:    code,
		IssuedAt: v.nowFunc(),
	})
	return code, nil
}

// Check compares the presented code. Three wrong guesses invalidate the code;
// a correct guess consumes it. The attempts counter is advanced atomically so
// concurrent wrong guesses cannot exceed the limit.
func (v *Verifier) Check(identifier, presented string) error {
	now := v.nowFunc()

	var result error
	v.store.Update(identifier, func(code *Code) *Code {
		if code == nil {
			result = ErrCodeInvalid
			return nil
		}
		if now.Sub(code.IssuedAt) > codeExpiry {
			result = ErrCodeExpired
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(code.Value), []byte(presented)) == 1 {
			return nil
		}

		code.Attempts++
		if code.Attempts >= maxAttempts {
			result = ErrTooManyAttempts
			return nil
		}
		result = ErrCodeInvalid
		return code
	})
	return result
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
