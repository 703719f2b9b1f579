package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexahq/nexa-auth/captcha"
	"github.com/nexahq/nexa-auth/identity"
	"github.com/nexahq/nexa-auth/lockout"
	"github.com/nexahq/nexa-auth/otp"
	"github.com/nexahq/nexa-auth/sessions"
	"github.com/nexahq/nexa-auth/token"
	"github.com/nexahq/nexa-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users users.UserRepo // Repository for user data
	Store sessions.Store // Durable session and refresh token rows
}

// ClientInfo is what we record about the device a credential came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult carries everything a handler needs to establish the cookie
// pair after a successful credential exchange.
type LoginResult struct {
	User             *users.User
	SessionID        string
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service wires the captcha gate, brute-force guard, credential verification
// and token issuance into the login/refresh/logout lifecycle.
type Service struct {
	repos    Repos
	tokens   *token.Service
	guard    *lockout.Guard
	gate     *captcha.Gate
	codes    *otp.Verifier
	external *identity.OIDCResolver // nil when no external issuer is configured
	nowTime  func() time.Time       // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithExternalResolver enables the third-party identity bridge.
func WithExternalResolver(resolver *identity.OIDCResolver) ServiceOption {
	return func(s *Service) {
		s.external = resolver
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(
	repos Repos,
	tokens *token.Service,
	guard *lockout.Guard,
	gate *captcha.Gate,
	codes *otp.Verifier,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Store == nil {
		return nil, errors.New("[NewService] session Store is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token service is required")
	}
	if guard == nil {
		return nil, errors.New("[NewService] lockout guard is required")
	}
	if gate == nil {
		return nil, errors.New("[NewService] captcha gate is required")
	}
	if codes == nil {
		return nil, errors.New("[NewService] otp verifier is required")
	}

	service := &Service{
		repos:   repos,
		tokens:  tokens,
		guard:   guard,
		gate:    gate,
		codes:   codes,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Register creates a credential-based account and logs it straight in.
func (s *Service) Register(ctx context.Context, email, password, username, captchaToken string, client ClientInfo) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, InvalidCredentialsErr
	}

	if err := s.gate.Verify(ctx, captchaToken, client.IP); err != nil {
		return nil, err
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(WeakPasswordErr, err.Error())
	}

	if existing, err := s.repos.Users.GetByEmail(email); err == nil && existing != nil {
		return nil, UserExistsErr
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] HashPassword")
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		DateJoined:   s.nowTime(),
		Verified:     false,
	}
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Register] Users.Upsert")
	}

	return s.issueSession(ctx, user, client)
}

// LoginWithPassword runs the full gate chain: captcha, lockout precheck,
// credential verification, then token issuance. The lockout precheck runs
// before the bcrypt compare so a locked key never burns hashing CPU.
func (s *Service) LoginWithPassword(ctx context.Context, email, password, captchaToken string, client ClientInfo) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if err := s.gate.Verify(ctx, captchaToken, client.IP); err != nil {
		return nil, err
	}
	if err := s.guard.Precheck(client.IP, email); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(email)
	if err != nil || user == nil {
		// Record the miss so unknown identifiers lock out like known ones.
		s.guard.RecordFailure(client.IP, email)
		return nil, InvalidCredentialsErr
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		s.guard.RecordFailure(client.IP, email)
		log.Info().
			Str("ip", client.IP).
			Str("identifier", email).
			Msg("password verification failed")
		return nil, InvalidCredentialsErr
	}

	if user.Blocked {
		return nil, UserBlockedErr
	}

	s.guard.RecordSuccess(client.IP, email)
	return s.issueSession(ctx, user, client)
}

// SendPhoneVerification issues a fresh OTP code for the phone number and
// returns it for delivery.
func (s *Service) SendPhoneVerification(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", InvalidCredentialsErr
	}
	code, err := s.codes.Issue(phone)
	if err != nil {
		return "", errors.Wrap(err, "[Service.SendPhoneVerification] codes.Issue")
	}
	return code, nil
}

// LoginWithPhoneCode checks the OTP code and issues a session, creating the
// user on first login with that phone number.
func (s *Service) LoginWithPhoneCode(ctx context.Context, phone, code string, client ClientInfo) (*LoginResult, error) {
	phone = strings.TrimSpace(phone)

	if err := s.guard.Precheck(client.IP, phone); err != nil {
		return nil, err
	}

	if err := s.codes.Check(phone, code); err != nil {
		s.guard.RecordFailure(client.IP, phone)
		return nil, err
	}
	s.guard.RecordSuccess(client.IP, phone)

	user, err := s.repos.Users.GetByPhone(phone)
	if err != nil || user == nil {
		user = &users.User{
			ID:         uuid.New().String(),
			Phone:      phone,
			DateJoined: s.nowTime(),
			Verified:   true,
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			return nil, errors.Wrap(err, "[Service.LoginWithPhoneCode] Users.Upsert")
		}
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}

	return s.issueSession(ctx, user, client)
}

// Bridge exchanges an ID token minted by an external identity system for
// this service's session pair, creating the user on first sight.
func (s *Service) Bridge(ctx context.Context, externalToken string, client ClientInfo) (*LoginResult, error) {
	if s.external == nil {
		return nil, token.ErrInvalidToken
	}

	external, err := s.external.VerifyExternal(ctx, externalToken)
	if err != nil {
		log.Info().Err(err).Str("ip", client.IP).Msg("external token verification failed")
		return nil, token.ErrInvalidToken
	}

	user, err := s.repos.Users.GetByEmail(external.Email)
	if err != nil || user == nil {
		user = &users.User{
			ID:         uuid.New().String(),
			Email:      external.Email,
			DateJoined: s.nowTime(),
			Verified:   external.EmailVerified,
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			return nil, errors.Wrap(err, "[Service.Bridge] Users.Upsert")
		}
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}

	return s.issueSession(ctx, user, client)
}

// Refresh rotates the presented refresh token and mints a new access token
// for the session's owner.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (*LoginResult, error) {
	rotation, err := s.tokens.RotateRefreshToken(ctx, rawRefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByID(rotation.Session.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] Users.GetByID")
	}

	accessToken, err := s.tokens.SignAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] SignAccessToken")
	}

	return &LoginResult{
		User:             user,
		SessionID:        rotation.Session.ID,
		AccessToken:      accessToken,
		RefreshToken:     rotation.Token,
		RefreshExpiresAt: rotation.ExpiresAt,
	}, nil
}

// Logout revokes the session behind the presented refresh token. A missing
// or unknown token is not an error - the cookies get cleared either way.
func (s *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return nil
	}
	stored, err := s.repos.Store.FindRefreshTokenByHash(ctx, token.HashToken(rawRefreshToken))
	if err != nil {
		return nil
	}
	return s.tokens.RevokeSession(ctx, stored.SessionID)
}

// ListSessions returns every session row for the user, revoked ones
// included (audit trail).
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*sessions.Session, error) {
	list, err := s.repos.Store.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.ListSessions] Store.ListSessionsForUser")
	}
	return list, nil
}

// RevokeSession revokes an arbitrary session by id. The session must belong
// to the caller unless the caller holds the admin role.
func (s *Service) RevokeSession(ctx context.Context, callerID string, callerIsAdmin bool, sessionID string) error {
	session, err := s.repos.Store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != callerID && !callerIsAdmin {
		return NotSessionOwnerErr
	}
	return s.tokens.RevokeSession(ctx, sessionID)
}

func (s *Service) issueSession(ctx context.Context, user *users.User, client ClientInfo) (*LoginResult, error) {
	session := &sessions.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IP,
		CreatedAt: s.nowTime(),
	}
	if err := s.repos.Store.CreateSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Service.issueSession] Store.CreateSession")
	}

	refresh, err := s.tokens.IssueRefreshToken(ctx, session.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueSession] IssueRefreshToken")
	}

	accessToken, err := s.tokens.SignAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueSession] SignAccessToken")
	}

	return &LoginResult{
		User:             user,
		SessionID:        session.ID,
		AccessToken:      accessToken,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
