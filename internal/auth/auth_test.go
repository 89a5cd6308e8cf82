package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "campus")
	token, err := v.Issue("u1", time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier("secret", "campus")

	expired, err := v.Issue("u1", -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewJWTVerifier("other", "campus").Issue("u1", time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewJWTVerifier("secret", "elsewhere").Issue("u1", time.Hour)
	require.NoError(t, err)
	noUID, err := v.Issue("", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong key", otherKey},
		{"wrong issuer", otherIssuer},
		{"no uid", noUID},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrUpstreamAuth)
		})
	}
}

func TestJWTVerifier_SubjectFallback(t *testing.T) {
	v := NewJWTVerifier("secret", "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u9", id.UID)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.token, token, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}

func TestContextIdentity(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", UID(ctx))

	ctx = WithIdentity(ctx, Identity{UID: "u1"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "u1", UID(ctx))
}
