package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/thrones_api/internal/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager("winter-is-coming", 0, WithClock(clock.now))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mgr.TTL())

	token, expiresAt, err := mgr.Issue("arya", "user")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour), expiresAt)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "arya", claims.Username)
	assert.Equal(t, "user", claims.Role)
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager("winter-is-coming", time.Hour, WithClock(clock.now))
	require.NoError(t, err)

	token, _, err := mgr.Issue("arya", "user")
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour + time.Second)
	_, err = mgr.Verify(token)
	assert.True(t, errors.HasCode(err, errors.CodeTokenExpired), "got %v", err)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	mgr, err := NewManager("winter-is-coming", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("summer-is-here", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue("jaime", "user")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "x"}).
		SignedString([]byte("winter-is-coming"))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Username:         "x",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("winter-is-coming"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"no expiry":    noExpiry,
		"wrong alg":    wrongAlg,
		"empty":        "",
	} {
		_, err := mgr.Verify(token)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidToken), "%s: got %v", name, err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}

func TestParseBearer(t *testing.T) {
	token, err := ParseBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "abc.def.ghi", "bearer abc", "Basic abc", "Bearer ", "Bearer a b"} {
		_, err := ParseBearer(header)
		assert.True(t, errors.HasCode(err, errors.CodeMissingOrMalformedToken), "header %q", header)
	}
}
