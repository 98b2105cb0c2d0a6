package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	vendorID, err := ParseVendorID(token, "secret")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), vendorID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	assert.NoError(t, err)

	_, err = ParseVendorID(token, "other")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseVendorID("not-a-token", "secret")
	assert.Error(t, err)
}
