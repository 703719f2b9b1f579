package otp_test

import (
	"sync"
	"testing"
	"time"

	"github.com/nexahq/nexa-auth/otp"
	"github.com/stretchr/testify/require"
)

const testPhone = "+15551234567"

type otpFixture struct {
	verifier *otp.Verifier
	now      time.Time
	nextCode string
}

func setupOtpFixture(t *testing.T) *otpFixture {
	t.Helper()

	f := &otpFixture{
		now:      time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		nextCode: "123456",
	}
	f.verifier = otp.NewVerifier(otp.NewInMemoryCodeStore(),
		otp.WithNowFunc(func() time.Time { return f.now }),
		otp.WithGenerateFunc(func() (string, error) { return f.nextCode, nil }))
	return f
}

func TestIssueAndCheck(t *testing.T) {
	f := setupOtpFixture(t)

	code, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)
	require.Equal(t, "123456", code)

	require.NoError(t, f.verifier.Check(testPhone, code))

	// A correct guess consumes the code.
	require.ErrorIs(t, f.verifier.Check(testPhone, code), otp.ErrCodeInvalid)
}

func TestCheckUnknownIdentifier(t *testing.T) {
	f := setupOtpFixture(t)
	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeInvalid)
}

func TestWrongGuessesInvalidateCode(t *testing.T) {
	f := setupOtpFixture(t)

	_, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)

	require.ErrorIs(t, f.verifier.Check(testPhone, "000000"), otp.ErrCodeInvalid)
	require.ErrorIs(t, f.verifier.Check(testPhone, "000000"), otp.ErrCodeInvalid)
	require.ErrorIs(t, f.verifier.Check(testPhone, "000000"), otp.ErrTooManyAttempts)

	// The code is gone even when the right value is finally presented.
	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeInvalid)
}

func TestCorrectCodeAfterTwoWrongGuesses(t *testing.T) {
	f := setupOtpFixture(t)

	_, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)

	require.ErrorIs(t, f.verifier.Check(testPhone, "000000"), otp.ErrCodeInvalid)
	require.ErrorIs(t, f.verifier.Check(testPhone, "000000"), otp.ErrCodeInvalid)
	require.NoError(t, f.verifier.Check(testPhone, "123456"))
}

func TestConcurrentWrongGuessesInvalidateCode(t *testing.T) {
	// Racing wrong guesses must not stretch the attempt limit.
	f := setupOtpFixture(t)

	_, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.verifier.Check(testPhone, "000000")
		}()
	}
	wg.Wait()

	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeInvalid)
}

func TestCodeExpiry(t *testing.T) {
	f := setupOtpFixture(t)

	_, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)

	f.now = f.now.Add(10*time.Minute + time.Second)
	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeExpired)

	// Expiry deletes the pending code entirely.
	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeInvalid)
}

func TestReissueReplacesPendingCode(t *testing.T) {
	f := setupOtpFixture(t)

	_, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)

	f.nextCode = "654321"
	code, err := f.verifier.Issue(testPhone)
	require.NoError(t, err)
	require.Equal(t, "654321", code)

	require.ErrorIs(t, f.verifier.Check(testPhone, "123456"), otp.ErrCodeInvalid)
	require.NoError(t, f.verifier.Check(testPhone, "654321"))
}
