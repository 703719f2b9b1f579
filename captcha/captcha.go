// Package captcha forwards client-supplied captcha tokens to an external
// verification endpoint (hCaptcha- or reCAPTCHA-style JSON API).
package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrCaptchaFailed means the provider rejected the token (or its score
	// fell below the configured threshold).
	ErrCaptchaFailed = errors.New("captcha verification failed")

	// ErrMissingSecret means a provider is configured but its secret is not.
	// Fails closed: surfaced as a config error, never silently skipped.
	ErrMissingSecret = errors.New("captcha provider configured without a secret")
)

// Provider verification endpoints.
const (
	ProviderHCaptcha  = "hcaptcha"
	ProviderReCaptcha = "recaptcha"

	hCaptchaVerifyURL  = "https://api.hcaptcha.com/siteverify"
	reCaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
)

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Gate verifies captcha tokens against the configured provider. A Gate with
// no provider configured is a no-op pass - a deployment choice, not a
// per-request decision.
type Gate struct {
	provider  string
	secret    string
	minScore  float64
	verifyURL string
	client    *http.Client
	maxTries  uint
}

type GateOption func(*Gate)

// WithVerifyURL overrides the provider endpoint (used in tests).
func WithVerifyURL(verifyURL string) GateOption {
	return func(g *Gate) {
		g.verifyURL = verifyURL
	}
}

func WithHTTPClient(client *http.Client) GateOption {
	return func(g *Gate) {
		g.client = client
	}
}

// NewGate builds a gate for the given provider. An empty provider disables
// the gate entirely.
func NewGate(provider, secret string, minScore float64, options ...GateOption) (*Gate, error) {
	g := &Gate{
		provider: provider,
		secret:   secret,
		minScore: minScore,
		client:   &http.Client{Timeout: 10 * time.Second},
		maxTries: 3,
	}

	switch provider {
	case "":
		// Gate disabled.
	case ProviderHCaptcha:
		g.verifyURL = hCaptchaVerifyURL
	case ProviderReCaptcha:
		g.verifyURL = reCaptchaVerifyURL
	default:
		return nil, errors.Errorf("unknown captcha provider %q", provider)
	}

	if provider != "" && secret == "" {
		return nil, ErrMissingSecret
	}

	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Enabled reports whether a provider is configured.
func (g *Gate) Enabled() bool {
	return g.provider != ""
}

// Verify forwards the client token to the provider. Transient provider
// failures are retried with exponential backoff; a definitive rejection is
// ErrCaptchaFailed.
func (g *Gate) Verify(ctx context.Context, clientToken, remoteIP string) error {
	if !g.Enabled() {
		return nil
	}
	if clientToken == "" {
		return ErrCaptchaFailed
	}

	result, err := backoff.Retry(ctx, func() (*verifyResponse, error) {
		return g.callProvider(ctx, clientToken, remoteIP)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(g.maxTries))
	if err != nil {
		return err
	}

	if !result.Success {
		log.Debug().
			Str("provider", g.provider).
			Strs("error_codes", result.ErrorCodes).
			Msg("captcha provider rejected token")
		return ErrCaptchaFailed
	}
	if g.minScore > 0 && result.Score > 0 && result.Score < g.minScore {
		return ErrCaptchaFailed
	}
	return nil
}

func (g *Gate) callProvider(ctx context.Context, clientToken, remoteIP string) (*verifyResponse, error) {
	form := url.Values{}
	form.Set("secret", g.secret)
	form.Set("response", clientToken)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "[Gate.Verify] build request"))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Gate.Verify] provider request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errors.Errorf("[Gate.Verify] provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(errors.Errorf("[Gate.Verify] provider returned %d", resp.StatusCode))
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "[Gate.Verify] decode response"))
	}
	return &result, nil
}
