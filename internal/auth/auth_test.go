package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTrackingTokenRoundTrip(t *testing.T) {
	token, err := IssueTrackingToken("s3cret", 42, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := VerifyTrackingToken(token, "s3cret", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.OrderID)
	assert.Equal(t, "42", claims.Subject)
}

func TestTrackingTokenRejects(t *testing.T) {
	token, err := IssueTrackingToken("s3cret", 42, time.Hour, time.Now())
	require.NoError(t, err)

	_, err = VerifyTrackingToken(token, "s3cret", 43)
	assert.Error(t, err, "other order")

	_, err = VerifyTrackingToken(token, "wrong", 42)
	assert.Error(t, err, "wrong secret")

	_, err = VerifyTrackingToken("", "s3cret", 42)
	assert.Error(t, err, "empty token")

	expired, err := IssueTrackingToken("s3cret", 42, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = VerifyTrackingToken(expired, "s3cret", 42)
	assert.Error(t, err, "expired")

	_, err = IssueTrackingToken("", 1, time.Hour, time.Now())
	assert.Error(t, err)
}

func TestParseBearerToken(t *testing.T) {
	assert.Equal(t, "abc", ParseBearerToken("Bearer abc"))
	assert.Equal(t, "abc", ParseBearerToken("bearer abc"))
	assert.Equal(t, "", ParseBearerToken("Basic abc"))
	assert.Equal(t, "", ParseBearerToken("abc"))
}

func TestCheckAdminCredentials(t *testing.T) {
	assert.True(t, CheckAdminCredentials("admin", "changeme", "admin", "changeme"))
	assert.False(t, CheckAdminCredentials("admin", "changeme", "admin", "nope"))
	assert.False(t, CheckAdminCredentials("admin", "changeme", "root", "changeme"))

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsBcryptHash(string(hash)))
	assert.True(t, CheckAdminCredentials("admin", string(hash), "admin", "hunter2"))
	assert.False(t, CheckAdminCredentials("admin", string(hash), "admin", string(hash)))
}
