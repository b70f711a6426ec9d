package session

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &models.User{
	ID:        "u-1",
	SubjectID: "google-sub-42",
	Email:     "owner@example.com",
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-signing-secret"))
	require.NoError(t, err)

	token, err := issuer.Issue(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "google-sub-42", claims.SubjectID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyExpiredToken(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	stale, err := NewIssuer([]byte("secret"), WithTTL(time.Hour), WithClock(func() time.Time { return past }))
	require.NoError(t, err)

	token, err := stale.Issue(testUser)
	require.NoError(t, err)

	issuer, err := NewIssuer([]byte("secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExpired, apperrors.KindOf(err))
}

func TestVerifyWrongSecret(t *testing.T) {
	signer, err := NewIssuer([]byte("secret-a"))
	require.NoError(t, err)
	verifier, err := NewIssuer([]byte("secret-b"))
	require.NoError(t, err)

	token, err := signer.Issue(testUser)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidSignature, apperrors.KindOf(err))
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"))
	require.NoError(t, err)

	token, err := issuer.Issue(testUser)
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = issuer.Verify(tampered)
	require.Error(t, err)
	kind := apperrors.KindOf(err)
	assert.Contains(t, []apperrors.Kind{apperrors.KindInvalidSignature, apperrors.KindMalformed}, kind)
}

func TestVerifyGarbage(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"))
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := issuer.Verify(token)
		require.Error(t, err, "token %q", token)
		assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))
	}
}

func TestNewIssuerRejectsEmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfigurationError, apperrors.KindOf(err))
}
