package jwtauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "landcert/pkg/domainerrors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", "landcert", "landcert-admin")

	token, err := svc.GenerateAccessToken("officer-1", "registrar")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "officer-1", claims.UserID)
	assert.Equal(t, "registrar", claims.Role)
	assert.Equal(t, "landcert", claims.Issuer)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := New("secret-a", "landcert", "landcert-admin")
	verifier := New("secret-b", "landcert", "landcert-admin")

	token, err := issuer.GenerateAccessToken("officer-1", "registrar")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer := New("secret", "someone-else", "landcert-admin")
	verifier := New("secret", "landcert", "landcert-admin")

	token, err := issuer.GenerateAccessToken("officer-1", "registrar")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := New("secret", "landcert", "landcert-admin")

	_, err := svc.ValidateToken("not.a.token")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
