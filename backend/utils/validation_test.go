package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyzeForm struct {
	Symptoms string `validate:"required,min=3,max=5000"`
}

type registerForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid analyze form", func(t *testing.T) {
		err := ValidateStruct(&analyzeForm{Symptoms: "persistent dry cough for a week"})
		assert.NoError(t, err)
	})

	t.Run("missing symptoms", func(t *testing.T) {
		err := ValidateStruct(&analyzeForm{})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Symptoms"], "required")
	})

	t.Run("symptoms below minimum length", func(t *testing.T) {
		err := ValidateStruct(&analyzeForm{Symptoms: "ow"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Symptoms"], "at least 3")
	})

	t.Run("symptoms above maximum length", func(t *testing.T) {
		err := ValidateStruct(&analyzeForm{Symptoms: strings.Repeat("a", 5001)})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Symptoms"], "at most 5000")
	})

	t.Run("invalid email", func(t *testing.T) {
		err := ValidateStruct(&registerForm{Email: "not-an-email", Password: "long enough"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Email"], "valid email")
	})

	t.Run("short password", func(t *testing.T) {
		err := ValidateStruct(&registerForm{Email: "jane@example.com", Password: "short"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Password"], "at least 8")
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "Validation failed",
		Fields:  map[string]string{"Symptoms": "Symptoms is required"},
	}

	assert.Equal(t, "Validation failed", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "test"}))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{"Email": "Email must be a valid email"}
		err := &ValidationError{Message: "Validation failed", Fields: fields}

		assert.Equal(t, fields, GetValidationFields(err))
	})

	t.Run("returns nil for other errors", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(assert.AnError))
	})
}
