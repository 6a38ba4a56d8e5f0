package sessioncookie_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/auth-service/sessioncookie"
)

var testUser = sessioncookie.UserSnapshot{
	ID:          "user-1",
	Email:       "casey@example.com",
	DisplayName: "Casey Jones",
	Roles:       []string{"user"},
}

func newTestCodec(now *time.Time) *sessioncookie.Codec {
	return sessioncookie.NewCodec(sessioncookie.WithNowFunc(func() time.Time { return *now }))
}

func TestRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(&now)

	payload, err := codec.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindAuthenticated,
		User: testUser,
		Metadata: &sessioncookie.Metadata{
			IsTwoFactorEnrolled: true,
			FeatureFlags:        []string{"beta-reports"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, sessioncookie.Version, payload.Version)
	require.Equal(t, "2025-06-01T12:00:00Z", payload.IssuedAt)
	require.Equal(t, "2025-06-01T12:30:00Z", payload.ExpiresAt)

	raw, err := codec.Serialize(payload)
	require.NoError(t, err)

	parsed := codec.Parse(raw)
	require.NotNil(t, parsed)
	require.Equal(t, payload, parsed)

	// Parsing and re-serializing yields the identical wire form.
	again, err := codec.Serialize(parsed)
	require.NoError(t, err)
	require.Equal(t, raw, again)
}

func TestParseRejects(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(&now)

	payload, err := codec.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindDemo,
		User: testUser,
	})
	require.NoError(t, err)
	raw, err := codec.Serialize(payload)
	require.NoError(t, err)

	require.Nil(t, codec.Parse(""))
	require.Nil(t, codec.Parse("%zz"))
	require.Nil(t, codec.Parse("not-json"))
	require.Nil(t, codec.Parse("%7B%22version%22%3A2%7D"))

	// A payload is rejected the moment it expires.
	now = now.Add(30 * time.Minute)
	require.Nil(t, codec.Parse(raw))
}

func TestNewPayloadValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(&now)

	_, err := codec.NewPayload(sessioncookie.PayloadInput{Kind: "superuser", User: testUser})
	require.Error(t, err)

	_, err = codec.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindAuthenticated,
		User: sessioncookie.UserSnapshot{ID: "user-1"},
	})
	require.Error(t, err)
}

func TestMaxAgeSeconds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(&now)

	payload, err := codec.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindAuthenticated,
		User: testUser,
	})
	require.NoError(t, err)
	require.Equal(t, 1800, codec.MaxAgeSeconds(payload))

	now = now.Add(29 * time.Minute)
	require.Equal(t, 60, codec.MaxAgeSeconds(payload))

	now = now.Add(2 * time.Minute)
	require.Equal(t, 0, codec.MaxAgeSeconds(payload))
}
