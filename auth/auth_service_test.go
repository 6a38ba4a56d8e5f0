package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/auth-service/auth"
	"github.com/ledgerly/auth-service/auth/challenge"
	"github.com/ledgerly/auth-service/email/senderfake"
	"github.com/ledgerly/auth-service/token"
	tokenfakerepo "github.com/ledgerly/auth-service/token/repofake"
	"github.com/ledgerly/auth-service/twofactor"
	twofactorfakerepo "github.com/ledgerly/auth-service/twofactor/repofake"
	"github.com/ledgerly/auth-service/users"
	fakeuserrepo "github.com/ledgerly/auth-service/users/repofake"
)

const (
	testEmail    = "casey@example.com"
	testPassword = "Sup3rSecret"
	testSecret   = "test-signing-secret"
)

var testClient = token.ClientContext{IPAddress: "203.0.113.10", UserAgent: "test-agent"}

// testFixture holds all test dependencies with a controllable clock.
type testFixture struct {
	now          time.Time
	userRepo     users.UserRepo
	refreshRepo  token.RefreshTokenRepo
	resetRepo    token.SingleUseTokenRepo
	verifyRepo   token.SingleUseTokenRepo
	backupRepo   twofactor.BackupCodeRepo
	sender       *senderfake.FakeSender
	tokenManager *token.Manager
	service      *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		userRepo:    fakeuserrepo.NewFakeUserRepo(),
		refreshRepo: tokenfakerepo.NewFakeRefreshTokenRepo(),
		resetRepo:   tokenfakerepo.NewFakeSingleUseTokenRepo(),
		verifyRepo:  tokenfakerepo.NewFakeSingleUseTokenRepo(),
		backupRepo:  twofactorfakerepo.NewFakeBackupCodeRepo(),
		sender:      senderfake.NewFakeSender(),
	}
	nowFunc := func() time.Time { return f.now }

	f.tokenManager = token.New(f.refreshRepo, token.NewHMACSigner(testSecret), token.WithNowFunc(nowFunc))

	service, err := auth.NewService(
		auth.Repos{
			Users:              f.userRepo,
			RefreshTokens:      f.refreshRepo,
			ResetTokens:        f.resetRepo,
			VerificationTokens: f.verifyRepo,
			BackupCodes:        f.backupRepo,
		},
		f.tokenManager,
		f.sender,
		twofactor.NewVerifier("Ledgerly Test", twofactor.WithNowFunc(nowFunc)),
		challenge.NewInMemoryRepo(),
		auth.WithNowTime(nowFunc),
		auth.WithDebugTokens(true),
	)
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) signup(t *testing.T) *auth.SignupResult {
	t.Helper()
	result, err := f.service.Signup(context.Background(), auth.SignupInput{
		Email:       testEmail,
		Password:    testPassword,
		FirstName:   "Casey",
		LastName:    "Jones",
		AcceptTerms: true,
	}, testClient)
	require.NoError(t, err)
	return result
}

func TestSignup(t *testing.T) {
	f := setupTestFixture(t)

	result := f.signup(t)

	require.NotEmpty(t, result.User.ID)
	require.Equal(t, testEmail, result.User.Email)
	require.Equal(t, "Casey Jones", result.User.DisplayName)
	require.Contains(t, result.User.Roles, users.RoleUser)
	require.True(t, result.RequiresEmailVerification)
	require.False(t, result.User.EmailVerified())

	require.NotEmpty(t, result.User.PasswordHash)
	require.NotEqual(t, testPassword, result.User.PasswordHash)

	require.NotNil(t, result.Tokens)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)

	require.NotNil(t, result.Debug)
	require.Equal(t, result.Debug.EmailVerificationToken, f.sender.LastToken("verification"))
}

func TestSignupRejections(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	_, err := f.service.Signup(context.Background(), auth.SignupInput{
		Email:       testEmail,
		Password:    testPassword,
		AcceptTerms: true,
	}, testClient)
	require.ErrorIs(t, err, auth.ErrEmailInUse)

	_, err = f.service.Signup(context.Background(), auth.SignupInput{
		Email:    "other@example.com",
		Password: testPassword,
	}, testClient)
	require.ErrorIs(t, err, auth.ErrTermsNotAccepted)

	_, err = f.service.Signup(context.Background(), auth.SignupInput{
		Email:       "weak@example.com",
		Password:    "short",
		AcceptTerms: true,
	}, testClient)
	require.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestSignupEmailUniquenessIsCaseInsensitive(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	// Leading whitespace and different casing still hit the same account.
	for _, variant := range []string{" " + testEmail, "Casey@Example.COM", testEmail + " "} {
		_, err := f.service.Signup(context.Background(), auth.SignupInput{
			Email:       variant,
			Password:    testPassword,
			AcceptTerms: true,
		}, testClient)
		require.ErrorIs(t, err, auth.ErrEmailInUse, "variant %q", variant)
	}

	// The original account is untouched.
	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)
}

func TestSignupStoresNormalizedEmail(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.Signup(context.Background(), auth.SignupInput{
		Email:       "  Riley@Example.Com ",
		Password:    testPassword,
		AcceptTerms: true,
	}, testClient)
	require.NoError(t, err)
	require.Equal(t, "riley@example.com", result.User.Email)
	require.Equal(t, "riley", result.User.DisplayName)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	result, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)
	require.Equal(t, auth.StatusOK, result.Status)
	require.NotNil(t, result.Tokens)
	require.False(t, result.EmailVerified)

	firstLogin := result.User.LastLoginAt

	f.advance(time.Minute)
	result, err = f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)
	require.True(t, result.User.LastLoginAt.After(firstLogin))
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	// Unknown email and wrong password must be indistinguishable.
	_, unknownErr := f.service.Login(context.Background(), auth.LoginInput{Email: "nobody@example.com", Password: testPassword}, testClient)
	_, wrongErr := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: "Wr0ngPassword"}, testClient)

	require.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginSuspended(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	require.NoError(t, f.userRepo.SetSuspended(testEmail, true))

	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.ErrorIs(t, err, auth.ErrAccountSuspended)
}

func TestRefreshSessionRotation(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)
	original := result.Tokens.RefreshToken

	rotated, err := f.service.RefreshSession(context.Background(), original, testClient)
	require.NoError(t, err)
	require.NotEqual(t, original, rotated.RefreshToken)

	// The rotated-out token never validates again.
	_, err = f.service.RefreshSession(context.Background(), original, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	// The replacement still works.
	_, err = f.service.RefreshSession(context.Background(), rotated.RefreshToken, testClient)
	require.NoError(t, err)
}

func TestRefreshSessionRejections(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)

	_, err := f.service.RefreshSession(context.Background(), "not-a-token", testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	rt, err := token.ParseRefreshToken(result.Tokens.RefreshToken)
	require.NoError(t, err)
	tampered := token.RefreshToken{LookupID: rt.LookupID, Secret: "0000"}
	_, err = f.service.RefreshSession(context.Background(), tampered.String(), testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	f.advance(31 * 24 * time.Hour)
	_, err = f.service.RefreshSession(context.Background(), result.Tokens.RefreshToken, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefreshSessionSuspended(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)

	require.NoError(t, f.userRepo.SetSuspended(testEmail, true))

	_, err := f.service.RefreshSession(context.Background(), result.Tokens.RefreshToken, testClient)
	require.ErrorIs(t, err, auth.ErrAccountSuspended)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)

	require.NoError(t, f.service.Logout(context.Background(), result.Tokens.RefreshToken))

	_, err := f.service.RefreshSession(context.Background(), result.Tokens.RefreshToken, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	// Logout with garbage or an already revoked token is a no-op.
	require.NoError(t, f.service.Logout(context.Background(), "garbage"))
	require.NoError(t, f.service.Logout(context.Background(), result.Tokens.RefreshToken))
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.RequestPasswordReset(context.Background(), "nobody@example.com", testClient)
	require.NoError(t, err)
	require.Empty(t, f.sender.Messages)
}

func TestResetPassword(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), testEmail, testClient))
	resetToken := f.sender.LastToken("reset")
	require.NotEmpty(t, resetToken)

	const newPassword = "N3wPassword"
	require.NoError(t, f.service.ResetPassword(context.Background(), resetToken, newPassword, testClient))

	// Old credentials no longer work, new ones do.
	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: newPassword}, testClient)
	require.NoError(t, err)

	// All sessions issued before the reset are terminated.
	_, err = f.service.RefreshSession(context.Background(), result.Tokens.RefreshToken, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	// The token is single use.
	err = f.service.ResetPassword(context.Background(), resetToken, "An0therPassword", testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestResetPasswordWeakPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), testEmail, testClient))
	resetToken := f.sender.LastToken("reset")

	err := f.service.ResetPassword(context.Background(), resetToken, "short", testClient)
	require.ErrorIs(t, err, auth.ErrWeakPassword)

	// The token is not consumed by the failed attempt.
	require.NoError(t, f.service.ResetPassword(context.Background(), resetToken, "N3wPassword", testClient))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.signup(t)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), testEmail, testClient))
	resetToken := f.sender.LastToken("reset")

	f.advance(2 * time.Hour)
	err := f.service.ResetPassword(context.Background(), resetToken, "N3wPassword", testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyEmail(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)

	user, err := f.service.VerifyEmail(context.Background(), result.Debug.EmailVerificationToken, testClient)
	require.NoError(t, err)
	require.True(t, user.EmailVerified())

	// Single use.
	_, err = f.service.VerifyEmail(context.Background(), result.Debug.EmailVerificationToken, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	loginResult, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)
	require.True(t, loginResult.EmailVerified)
}

// enrollTwoFactor runs the full enrollment flow and returns the secret and
// backup codes.
func (f *testFixture) enrollTwoFactor(t *testing.T, userID string) (string, []string) {
	t.Helper()

	enrollment, err := f.service.EnrollTwoFactor(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Len(t, enrollment.BackupCodes, twofactor.BackupCodeCount)

	code, err := totp.GenerateCode(enrollment.Secret, f.now)
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmTwoFactorEnrollment(context.Background(), userID, code))

	return enrollment.Secret, enrollment.BackupCodes
}

func TestTwoFactorLoginWithCode(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)
	secret, _ := f.enrollTwoFactor(t, result.User.ID)

	loginResult, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNeedsTwoFactor, loginResult.Status)
	require.Nil(t, loginResult.Tokens)
	require.NotNil(t, loginResult.Challenge)
	require.ElementsMatch(t, []string{"code", "backup"}, loginResult.Challenge.Methods)

	code, err := totp.GenerateCode(secret, f.now)
	require.NoError(t, err)

	completed, err := f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: loginResult.Challenge.ChallengeID,
		Mode:        "code",
		Code:        code,
	}, testClient)
	require.NoError(t, err)
	require.Equal(t, auth.StatusOK, completed.Status)
	require.NotNil(t, completed.Tokens)

	// Completed challenges cannot be replayed.
	_, err = f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: loginResult.Challenge.ChallengeID,
		Mode:        "code",
		Code:        code,
	}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidChallenge)
}

func TestTwoFactorLoginWithBackupCode(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)
	_, backupCodes := f.enrollTwoFactor(t, result.User.ID)

	startChallenge := func() string {
		loginResult, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
		require.NoError(t, err)
		require.Equal(t, auth.StatusNeedsTwoFactor, loginResult.Status)
		return loginResult.Challenge.ChallengeID
	}

	completed, err := f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: startChallenge(),
		Mode:        "backup",
		BackupCode:  backupCodes[0],
	}, testClient)
	require.NoError(t, err)
	require.Equal(t, auth.StatusOK, completed.Status)

	// Backup codes are single use.
	_, err = f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: startChallenge(),
		Mode:        "backup",
		BackupCode:  backupCodes[0],
	}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidTwoFactorCode)

	// All-zero placeholder codes are never accepted.
	_, err = f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: startChallenge(),
		Mode:        "backup",
		BackupCode:  "0000000000",
	}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidTwoFactorCode)
}

func TestTwoFactorChallengeExpiry(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)
	secret, _ := f.enrollTwoFactor(t, result.User.ID)

	loginResult, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)

	f.advance(6 * time.Minute)
	code, err := totp.GenerateCode(secret, f.now)
	require.NoError(t, err)

	_, err = f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: loginResult.Challenge.ChallengeID,
		Mode:        "code",
		Code:        code,
	}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidChallenge)
}

func TestTwoFactorWrongCode(t *testing.T) {
	f := setupTestFixture(t)
	result := f.signup(t)
	f.enrollTwoFactor(t, result.User.ID)

	loginResult, err := f.service.Login(context.Background(), auth.LoginInput{Email: testEmail, Password: testPassword}, testClient)
	require.NoError(t, err)

	_, err = f.service.CompleteTwoFactor(context.Background(), auth.TwoFactorSubmission{
		ChallengeID: loginResult.Challenge.ChallengeID,
		Mode:        "code",
		Code:        "000000",
	}, testClient)
	require.ErrorIs(t, err, auth.ErrInvalidTwoFactorCode)
}
