package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, "tutorly", "ada", "", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, "tutorly", tok)
	require.NoError(t, err)
	assert.Equal(t, "ada", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	expired, _ := IssueToken(testSecret, "tutorly", "ada", RoleAdmin, time.Minute, now.Add(-time.Hour))
	wrongIssuer, _ := IssueToken(testSecret, "elsewhere", "ada", RoleAdmin, time.Hour, now)
	noSubject, _ := IssueToken(testSecret, "tutorly", "", RoleAdmin, time.Hour, now)

	for name, tok := range map[string]string{
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"garbage":      "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(testSecret, "tutorly", tok)
			assert.Error(t, err)
		})
	}

	_, err := IssueToken("", "tutorly", "ada", "", time.Hour, now)
	assert.Error(t, err)
}

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(60, 2)
	now := epoch
	assert.True(t, l.allow("ada", now))
	assert.True(t, l.allow("ada", now))
	assert.False(t, l.allow("ada", now))
	assert.True(t, l.allow("bob", now))
	assert.True(t, l.allow("ada", now.Add(time.Second)))

	l.prune(now.Add(time.Minute))
	assert.Empty(t, l.visitors)
}
