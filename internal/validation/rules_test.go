package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/conversions/internal/errors"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		shouldErr bool
	}{
		{
			name:      "valid email",
			email:     "customer@example.com",
			shouldErr: false,
		},
		{
			name:      "valid email with plus tag",
			email:     "customer+tag@example.com",
			shouldErr: false,
		},
		{
			name:      "missing at sign",
			email:     "customer.example.com",
			shouldErr: true,
		},
		{
			name:      "missing domain",
			email:     "customer@",
			shouldErr: true,
		},
		{
			name:      "blank string skips validation",
			email:     "",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.email, Email)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{
			name:      "clean value",
			value:     "cust-42",
			shouldErr: false,
		},
		{
			name:      "leading whitespace",
			value:     " cust-42",
			shouldErr: true,
		},
		{
			name:      "trailing whitespace",
			value:     "cust-42 ",
			shouldErr: true,
		},
		{
			name:      "internal whitespace allowed",
			value:     "cust 42",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, NoWhitespace)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{
			name:      "non-blank value",
			value:     "cust-42",
			shouldErr: false,
		},
		{
			name:      "whitespace only",
			value:     "   ",
			shouldErr: true,
		},
		{
			name:      "empty string skips validation",
			value:     "",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, NotBlank)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("error is wrapped as invalid input", func(t *testing.T) {
		err := WrapValidationError(assert.AnError)
		assert.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}
