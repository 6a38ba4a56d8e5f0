package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerly/auth-service/auth/challenge"
	"github.com/ledgerly/auth-service/email"
	"github.com/ledgerly/auth-service/internal/utils"
	"github.com/ledgerly/auth-service/token"
	"github.com/ledgerly/auth-service/twofactor"
	"github.com/ledgerly/auth-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultResetTokenTTL        = time.Hour
	defaultVerificationTokenTTL = 24 * time.Hour
	challengeTimeout            = 5 * time.Minute
	emailDispatchTimeout        = 10 * time.Second
)

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Users              users.UserRepo           // Identity records
	RefreshTokens      token.RefreshTokenRepo   // Rotating refresh tokens
	ResetTokens        token.SingleUseTokenRepo // Password reset tokens
	VerificationTokens token.SingleUseTokenRepo // Email verification tokens
	BackupCodes        twofactor.BackupCodeRepo // One-time 2FA backup codes
}

// Service orchestrates signup, login, refresh rotation, password reset,
// email verification and the two-factor challenge flow.
type Service struct {
	repos       Repos
	tokens      *token.Manager
	emails      email.Sender
	totp        *twofactor.Verifier
	challenges  challenge.Repo
	debugTokens bool // expose issued single-use tokens in results; never in production

	resetTokenTTL        time.Duration
	verificationTokenTTL time.Duration
	nowTime              func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithDebugTokens exposes issued verification/reset tokens in operation
// results. Must never be enabled in production.
func WithDebugTokens(enabled bool) ServiceOption {
	return func(s *Service) {
		s.debugTokens = enabled
	}
}

// WithSingleUseTokenTTLs overrides the reset and verification token
// lifetimes.
func WithSingleUseTokenTTLs(reset, verification time.Duration) ServiceOption {
	return func(s *Service) {
		s.resetTokenTTL = reset
		s.verificationTokenTTL = verification
	}
}

// NewService initializes a new Service with required dependencies. Optional
// configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(
	repos Repos,
	tokens *token.Manager,
	emails email.Sender,
	totp *twofactor.Verifier,
	challenges challenge.Repo,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, errors.New("[NewService] RefreshTokens repo is required")
	}
	if repos.ResetTokens == nil {
		return nil, errors.New("[NewService] ResetTokens repo is required")
	}
	if repos.VerificationTokens == nil {
		return nil, errors.New("[NewService] VerificationTokens repo is required")
	}
	if repos.BackupCodes == nil {
		return nil, errors.New("[NewService] BackupCodes repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if emails == nil {
		return nil, errors.New("[NewService] email sender is required")
	}
	if totp == nil {
		return nil, errors.New("[NewService] two-factor verifier is required")
	}
	if challenges == nil {
		return nil, errors.New("[NewService] challenge repo is required")
	}

	service := &Service{
		repos:                repos,
		tokens:               tokens,
		emails:               emails,
		totp:                 totp,
		challenges:           challenges,
		resetTokenTTL:        defaultResetTokenTTL,
		verificationTokenTTL: defaultVerificationTokenTTL,
		nowTime:              time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// SignupInput carries the registration form fields.
type SignupInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	AcceptTerms    bool   `json:"acceptTerms"`
	MarketingOptIn bool   `json:"marketingOptIn,omitempty"`
}

// DebugInfo exposes issued tokens to tests and non-production tooling.
type DebugInfo struct {
	EmailVerificationToken string `json:"emailVerificationToken,omitempty"`
}

// SignupResult is returned on successful registration.
type SignupResult struct {
	User                      *users.User `json:"user"`
	Tokens                    *token.Pair `json:"tokens"`
	RequiresEmailVerification bool        `json:"requiresEmailVerification"`
	Debug                     *DebugInfo  `json:"debug,omitempty"`
}

// Signup registers a new user, dispatches a verification email and issues an
// initial token pair. Email dispatch is best-effort and never fails the
// signup.
func (s *Service) Signup(ctx context.Context, input SignupInput, client token.ClientContext) (*SignupResult, error) {
	emailAddr := users.NormalizeEmail(input.Email)
	if _, err := s.repos.Users.GetByEmail(emailAddr); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, users.ErrUserNotFound) {
		return nil, errors.Wrap(err, "[Service.Signup] Users.GetByEmail")
	}
	if !input.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}
	if err := users.ValidatePasswordStrength(input.Password); err != nil {
		return nil, errors.Wrap(ErrWeakPassword, err.Error())
	}

	passwordHash, err := users.HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Signup] HashPassword")
	}

	user := &users.User{
		Email:        emailAddr,
		PasswordHash: passwordHash,
		DisplayName:  displayName(input.FirstName, input.LastName, emailAddr),
		Roles:        []string{users.RoleUser},
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Signup] Users.Upsert")
	}

	verification := &token.SingleUseToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: s.nowTime().Add(s.verificationTokenTTL),
	}
	if err := s.repos.VerificationTokens.Create(verification); err != nil {
		return nil, errors.Wrap(err, "[Service.Signup] VerificationTokens.Create")
	}
	s.dispatchEmail(ctx, "verification", func(ctx context.Context) error {
		return s.emails.SendVerificationEmail(ctx, user, verification.ID)
	})

	pair, err := s.tokens.IssuePair(user, client)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Signup] IssuePair")
	}

	result := &SignupResult{
		User:                      user,
		Tokens:                    pair,
		RequiresEmailVerification: true,
	}
	if s.debugTokens {
		result.Debug = &DebugInfo{EmailVerificationToken: verification.ID}
	}
	return result, nil
}

// LoginInput carries the login form fields.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// LoginStatus distinguishes a completed login from a pending second factor.
type LoginStatus string

const (
	StatusOK             LoginStatus = "ok"
	StatusNeedsTwoFactor LoginStatus = "needs_two_factor"
)

// TwoFactorChallenge references a pending login awaiting its second factor.
type TwoFactorChallenge struct {
	ChallengeID string   `json:"challengeId"`
	Methods     []string `json:"methods"`
}

// LoginResult is returned by Login and CompleteTwoFactor. Tokens is nil while
// Status is needs_two_factor.
type LoginResult struct {
	Status        LoginStatus         `json:"status"`
	User          *users.User         `json:"user,omitempty"`
	Tokens        *token.Pair         `json:"tokens,omitempty"`
	EmailVerified bool                `json:"emailVerified"`
	Challenge     *TwoFactorChallenge `json:"challenge,omitempty"`
}

// Login checks the credentials and defers token issuance behind a two-factor
// challenge when the user is enrolled. Unknown email and wrong password
// produce the same error.
func (s *Service) Login(ctx context.Context, input LoginInput, client token.ClientContext) (*LoginResult, error) {
	user, err := s.repos.Users.GetByEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !users.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.Suspended {
		return nil, ErrAccountSuspended
	}

	if user.TwoFactorEnrolled {
		challengeID := uuid.New().String()
		if err := s.challenges.Upsert(challengeID, challenge.Challenge{
			ID:        challengeID,
			UserID:    user.ID,
			CreatedAt: s.nowTime(),
			Client:    client,
		}); err != nil {
			return nil, errors.Wrap(err, "[Service.Login] challenges.Upsert")
		}
		return &LoginResult{
			Status: StatusNeedsTwoFactor,
			Challenge: &TwoFactorChallenge{
				ChallengeID: challengeID,
				Methods:     []string{"code", "backup"},
			},
		}, nil
	}

	return s.completeLogin(user, client)
}

// RefreshSession rotates the presented refresh token. The old token never
// validates again; the loser of a concurrent rotation gets ErrInvalidToken.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string, client token.ClientContext) (*token.Pair, error) {
	rt, err := token.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	stored, err := s.repos.RefreshTokens.Get(rt.LookupID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if stored.Revoked() {
		// Presenting a rotated-out token is a replay signal worth recording.
		log.Warn().
			Str("token_id", stored.ID).
			Str("user_id", stored.UserID).
			Str("ip", client.IPAddress).
			Msg("revoked refresh token presented")
		return nil, ErrInvalidToken
	}
	if stored.Expired(s.nowTime()) {
		return nil, ErrInvalidToken
	}
	if !utils.ConstantTimeEquals(token.HashSecret(rt.Secret), stored.SecretHash) {
		return nil, ErrInvalidToken
	}

	user, err := s.repos.Users.GetByID(stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if user.Suspended {
		return nil, ErrAccountSuspended
	}

	pair, err := s.tokens.RotatePair(stored.ID, user, client)
	if errors.Is(err, token.ErrTokenRevoked) || errors.Is(err, token.ErrTokenNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RefreshSession] RotatePair")
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Session termination itself is
// cookie deletion at the edge; there is no server-side session to destroy.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	rt, err := token.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil // nothing to revoke
	}
	if err := s.tokens.Revoke(rt.LookupID); err != nil && !errors.Is(err, token.ErrTokenNotFound) {
		return errors.Wrap(err, "[Service.Logout] Revoke")
	}
	return nil
}

// RequestPasswordReset issues a single-use reset token and dispatches the
// reset email. The response shape is identical whether or not the address is
// registered.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string, client token.ClientContext) error {
	user, err := s.repos.Users.GetByEmail(emailAddr)
	if err != nil {
		return nil // anti-enumeration: indistinguishable from success
	}

	reset := &token.SingleUseToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: s.nowTime().Add(s.resetTokenTTL),
	}
	if err := s.repos.ResetTokens.Create(reset); err != nil {
		return errors.Wrap(err, "[Service.RequestPasswordReset] ResetTokens.Create")
	}
	s.dispatchEmail(ctx, "reset", func(ctx context.Context) error {
		return s.emails.SendPasswordResetEmail(ctx, user, reset.ID)
	})

	return nil
}

// ResetPassword consumes a reset token, replaces the password and terminates
// every outstanding session for the user.
func (s *Service) ResetPassword(ctx context.Context, tokenID, newPassword string, client token.ClientContext) error {
	stored, err := s.repos.ResetTokens.Get(tokenID)
	if err != nil {
		return ErrInvalidToken
	}
	if stored.Expired(s.nowTime()) {
		return ErrInvalidToken
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return errors.Wrap(ErrWeakPassword, err.Error())
	}

	consumed, err := s.repos.ResetTokens.Consume(tokenID, s.nowTime())
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.repos.Users.GetByID(consumed.UserID)
	if err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] Users.GetByID")
	}

	passwordHash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] HashPassword")
	}
	user.PasswordHash = passwordHash
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] Users.Upsert")
	}

	// A password reset terminates all existing sessions.
	if err := s.tokens.RevokeAllForUser(user.ID); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] RevokeAllForUser")
	}

	return nil
}

// VerifyEmail consumes a verification token and marks the user verified.
func (s *Service) VerifyEmail(ctx context.Context, tokenID string, client token.ClientContext) (*users.User, error) {
	stored, err := s.repos.VerificationTokens.Get(tokenID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if stored.Expired(s.nowTime()) {
		return nil, ErrInvalidToken
	}

	consumed, err := s.repos.VerificationTokens.Consume(tokenID, s.nowTime())
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repos.Users.GetByID(consumed.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.VerifyEmail] Users.GetByID")
	}
	if err := s.repos.Users.SetEmailVerified(user.Email); err != nil {
		return nil, errors.Wrap(err, "[Service.VerifyEmail] SetEmailVerified")
	}

	return s.repos.Users.GetByID(user.ID)
}

// TwoFactorSubmission is either a TOTP code or a one-time backup code.
type TwoFactorSubmission struct {
	ChallengeID string `json:"challengeId"`
	Mode        string `json:"mode"` // "code" or "backup"
	Code        string `json:"code,omitempty"`
	BackupCode  string `json:"backupCode,omitempty"`
}

// CompleteTwoFactor validates the second factor for a pending challenge and
// issues the deferred token pair.
func (s *Service) CompleteTwoFactor(ctx context.Context, submission TwoFactorSubmission, client token.ClientContext) (*LoginResult, error) {
	ch, err := s.challenges.Get(submission.ChallengeID)
	if err != nil {
		return nil, ErrInvalidChallenge
	}
	if s.nowTime().Sub(ch.CreatedAt) > challengeTimeout {
		_ = s.challenges.Delete(ch.ID)
		return nil, ErrInvalidChallenge
	}

	user, err := s.repos.Users.GetByID(ch.UserID)
	if err != nil {
		return nil, ErrInvalidChallenge
	}
	if user.Suspended {
		return nil, ErrAccountSuspended
	}

	switch submission.Mode {
	case "code":
		valid, err := s.totp.ValidateCode(user.TwoFactorSecret, submission.Code)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.CompleteTwoFactor] ValidateCode")
		}
		if !valid {
			return nil, ErrInvalidTwoFactorCode
		}
	case "backup":
		if twofactor.IsSentinelCode(submission.BackupCode) {
			return nil, ErrInvalidTwoFactorCode
		}
		if err := s.repos.BackupCodes.Consume(user.ID, twofactor.HashBackupCode(submission.BackupCode), s.nowTime()); err != nil {
			return nil, ErrInvalidTwoFactorCode
		}
	default:
		return nil, ErrInvalidTwoFactorCode
	}

	if err := s.challenges.Delete(ch.ID); err != nil {
		return nil, errors.Wrap(err, "[Service.CompleteTwoFactor] challenges.Delete")
	}

	return s.completeLogin(user, ch.Client)
}

// TwoFactorEnrollment is returned by EnrollTwoFactor. The secret and backup
// codes are shown to the user exactly once.
type TwoFactorEnrollment struct {
	Secret      string   `json:"secret"`
	OtpauthURL  string   `json:"otpauthUrl"`
	BackupCodes []string `json:"backupCodes"`
}

// EnrollTwoFactor generates a TOTP secret and backup code set for the user.
// Enrollment only takes effect after ConfirmTwoFactorEnrollment.
func (s *Service) EnrollTwoFactor(ctx context.Context, userID string) (*TwoFactorEnrollment, error) {
	user, err := s.repos.Users.GetByID(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] Users.GetByID")
	}

	secret, otpauthURL, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] GenerateSecret")
	}

	codes, err := twofactor.GenerateBackupCodes()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] GenerateBackupCodes")
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, twofactor.HashBackupCode(code))
	}
	if err := s.repos.BackupCodes.Replace(user.ID, hashes); err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] BackupCodes.Replace")
	}

	user.TwoFactorSecret = secret
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] Users.Upsert")
	}

	return &TwoFactorEnrollment{
		Secret:      secret,
		OtpauthURL:  otpauthURL,
		BackupCodes: codes,
	}, nil
}

// ConfirmTwoFactorEnrollment validates a first code against the pending
// secret and switches enforcement on.
func (s *Service) ConfirmTwoFactorEnrollment(ctx context.Context, userID, code string) error {
	user, err := s.repos.Users.GetByID(userID)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmTwoFactorEnrollment] Users.GetByID")
	}
	if user.TwoFactorSecret == "" {
		return ErrInvalidTwoFactorCode
	}

	valid, err := s.totp.ValidateCode(user.TwoFactorSecret, code)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmTwoFactorEnrollment] ValidateCode")
	}
	if !valid {
		return ErrInvalidTwoFactorCode
	}

	user.TwoFactorEnrolled = true
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ConfirmTwoFactorEnrollment] Users.Upsert")
	}
	return nil
}

func (s *Service) completeLogin(user *users.User, client token.ClientContext) (*LoginResult, error) {
	pair, err := s.tokens.IssuePair(user, client)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.completeLogin] IssuePair")
	}

	user.LastLoginAt = s.nowTime()
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.completeLogin] Users.Upsert")
	}

	return &LoginResult{
		Status:        StatusOK,
		User:          user,
		Tokens:        pair,
		EmailVerified: user.EmailVerified(),
	}, nil
}

// dispatchEmail runs a send with a bounded timeout. Failures are logged and
// swallowed so the primary auth operation still succeeds (soft-fail policy).
func (s *Service) dispatchEmail(ctx context.Context, kind string, send func(context.Context) error) {
	sendCtx, cancel := context.WithTimeout(ctx, emailDispatchTimeout)
	defer cancel()

	if err := send(sendCtx); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("email dispatch failed")
	}
}

func displayName(firstName, lastName, emailAddr string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name != "" {
		return name
	}
	at := strings.Index(emailAddr, "@")
	if at > 0 {
		return emailAddr[:at]
	}
	return emailAddr
}
