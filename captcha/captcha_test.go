package captcha_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexahq/nexa-auth/captcha"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "provider-secret"
	testToken    = "client-token"
	testRemoteIP = "203.0.113.7"
)

// fakeProvider serves a hCaptcha-style siteverify endpoint.
func fakeProvider(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func verifyResponseBody(success bool, score float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": success,
			"score":   score,
		})
	}
}

func TestGateDisabledIsNoOpPass(t *testing.T) {
	gate, err := captcha.NewGate("", "", 0)
	require.NoError(t, err)
	require.False(t, gate.Enabled())

	require.NoError(t, gate.Verify(context.Background(), "", testRemoteIP))
}

func TestGateFailsClosedWithoutSecret(t *testing.T) {
	_, err := captcha.NewGate(captcha.ProviderHCaptcha, "", 0)
	require.ErrorIs(t, err, captcha.ErrMissingSecret)
}

func TestGateRejectsUnknownProvider(t *testing.T) {
	_, err := captcha.NewGate("imaginary", testSecret, 0)
	require.Error(t, err)
}

func TestVerifySuccess(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	provider := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSecret = r.FormValue("secret")
		gotResponse = r.FormValue("response")
		gotRemoteIP = r.FormValue("remoteip")
		verifyResponseBody(true, 0.9)(w, r)
	})

	gate, err := captcha.NewGate(captcha.ProviderHCaptcha, testSecret, 0,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.NoError(t, gate.Verify(context.Background(), testToken, testRemoteIP))
	require.Equal(t, testSecret, gotSecret)
	require.Equal(t, testToken, gotResponse)
	require.Equal(t, testRemoteIP, gotRemoteIP)
}

func TestVerifyRejection(t *testing.T) {
	provider := fakeProvider(t, verifyResponseBody(false, 0))

	gate, err := captcha.NewGate(captcha.ProviderHCaptcha, testSecret, 0,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.ErrorIs(t, gate.Verify(context.Background(), testToken, testRemoteIP), captcha.ErrCaptchaFailed)
}

func TestVerifyEmptyTokenFails(t *testing.T) {
	provider := fakeProvider(t, verifyResponseBody(true, 1))

	gate, err := captcha.NewGate(captcha.ProviderReCaptcha, testSecret, 0,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.ErrorIs(t, gate.Verify(context.Background(), "", testRemoteIP), captcha.ErrCaptchaFailed)
}

func TestVerifyScoreThreshold(t *testing.T) {
	provider := fakeProvider(t, verifyResponseBody(true, 0.3))

	gate, err := captcha.NewGate(captcha.ProviderReCaptcha, testSecret, 0.5,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.ErrorIs(t, gate.Verify(context.Background(), testToken, testRemoteIP), captcha.ErrCaptchaFailed)
}

func TestVerifyRetriesTransientFailures(t *testing.T) {
	calls := 0
	provider := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		verifyResponseBody(true, 1)(w, r)
	})

	gate, err := captcha.NewGate(captcha.ProviderHCaptcha, testSecret, 0,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.NoError(t, gate.Verify(context.Background(), testToken, testRemoteIP))
	require.Equal(t, 2, calls)
}

func TestVerifyDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	provider := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	})

	gate, err := captcha.NewGate(captcha.ProviderHCaptcha, testSecret, 0,
		captcha.WithVerifyURL(provider.URL))
	require.NoError(t, err)

	require.Error(t, gate.Verify(context.Background(), testToken, testRemoteIP))
	require.Equal(t, 1, calls)
}
