package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegisterForm_Valid(t *testing.T) {
	assert.Empty(t, validateRegisterForm("user@x.com", "password1", "password1", "Jane Doe"))
}

func TestValidateRegisterForm_MissingFields(t *testing.T) {
	assert.Equal(t, "All fields are required", validateRegisterForm("", "password1", "password1", "Jane"))
	assert.Equal(t, "All fields are required", validateRegisterForm("user@x.com", "", "", "Jane"))
	assert.Equal(t, "All fields are required", validateRegisterForm("user@x.com", "password1", "password1", ""))
}

func TestValidateRegisterForm_PasswordMismatch(t *testing.T) {
	assert.Equal(t, "Passwords do not match", validateRegisterForm("user@x.com", "password1", "password2", "Jane"))
}

func TestValidateRegisterForm_PasswordTooShort(t *testing.T) {
	assert.Equal(t, "Password must be at least 8 characters long", validateRegisterForm("user@x.com", "short1", "short1", "Jane"))
}

func TestValidateRegisterForm_MismatchBeforeLength(t *testing.T) {
	// Mismatched short passwords report the mismatch first.
	assert.Equal(t, "Passwords do not match", validateRegisterForm("user@x.com", "abc", "def", "Jane"))
}

func TestValidateRegisterForm_ExactMinimumLength(t *testing.T) {
	assert.Empty(t, validateRegisterForm("user@x.com", "12345678", "12345678", "Jane"))
}

func TestValidateLoginForm(t *testing.T) {
	assert.Empty(t, validateLoginForm("user@x.com", "password1"))
	assert.Equal(t, "Invalid email or password", validateLoginForm("", "password1"))
	assert.Equal(t, "Invalid email or password", validateLoginForm("user@x.com", ""))
}
