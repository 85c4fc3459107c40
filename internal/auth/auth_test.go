package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/fintrack/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "fintrack"
	testAudience = "fintrack-web"
)

var testUser = types.User{
	ID:       "6f1c2b7e-8d4a-4f0e-9c41-2a3b4c5d6e7f",
	Username: "alice",
	Email:    "alice@x.com",
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, clock *fakeClock) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, testIssuer, testAudience, WithClock(clock.Now))
	require.NoError(t, err)
	return issuer
}

func TestIssueAndParse(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	token, expiresAt, err := issuer.Issue(testUser)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(3*time.Hour), expiresAt)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.Subject)
	assert.Equal(t, testUser.Username, claims.Name)
	assert.Equal(t, testUser.Email, claims.Email)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	token, _, err := issuer.Issue(testUser)
	require.NoError(t, err)

	clock.now = clock.now.Add(3*time.Hour + time.Second)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	cases := map[string]*TokenIssuer{}

	other, err := NewTokenIssuer("another-secret", testIssuer, testAudience, WithClock(clock.Now))
	require.NoError(t, err)
	cases["wrong secret"] = other

	other, err = NewTokenIssuer(testSecret, "someone-else", testAudience, WithClock(clock.Now))
	require.NoError(t, err)
	cases["wrong issuer"] = other

	other, err = NewTokenIssuer(testSecret, testIssuer, "mobile", WithClock(clock.Now))
	require.NoError(t, err)
	cases["wrong audience"] = other

	for name, signer := range cases {
		t.Run(name, func(t *testing.T) {
			token, _, err := signer.Issue(testUser)
			require.NoError(t, err)

			_, err = issuer.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseRejectsUnsignedAndMalformed(t *testing.T) {
	issuer := newTestIssuer(t, &fakeClock{now: time.Now()})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser.ID,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, token := range []string{none, "", "not-a-token", strings.Repeat("a", 40)} {
		_, err := issuer.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestParseRejectsMissingSubject(t *testing.T) {
	issuer := newTestIssuer(t, &fakeClock{now: time.Now()})

	token, _, err := issuer.Issue(types.User{Username: "ghost"})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("  ", testIssuer, testAudience)
	assert.Error(t, err)
}

func TestWithTTL(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, testIssuer, testAudience, WithTTL(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, issuer.TTL())
}

func TestPasswordPolicy(t *testing.T) {
	policy := PasswordPolicy{MinLength: 6}

	assert.NoError(t, policy.Check("pw1234"))
	assert.Error(t, policy.Check("pw123"))
	assert.Error(t, policy.Check(strings.Repeat("x", 73)))

	strict := PasswordPolicy{MinLength: 8}
	assert.Error(t, strict.Check("pw12345"))

	assert.NoError(t, PasswordPolicy{}.Check("123456"), "zero policy falls back to the default")
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, CheckPassword(hash, "pw123456"))
	assert.False(t, CheckPassword(hash, "pw1234567"))
	assert.False(t, CheckPassword("not-a-hash", "pw123456"))
}
