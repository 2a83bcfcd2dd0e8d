package services

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"a@x.com", ""},
		{"John.Doe+tag@Mail.Example.ORG", ""},
		{"under_score@sub-domain.io", ""},
		{"", "Email is required"},
		{"plain", "Invalid email"},
		{"a@b", "Invalid email"},
		{"a@b.c", "Invalid email"},
		{"a b@x.com", "Invalid email"},
		{"@x.com", "Invalid email"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password1"))
	assert.NoError(t, ValidatePassword("пароль12"))
	assert.EqualError(t, ValidatePassword(""), "Password is required")
	assert.EqualError(t, ValidatePassword("short"), "Password must be at least 8 characters")
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("", false))
	assert.EqualError(t, ValidateName("", true), "Name is required")
	assert.EqualError(t, ValidateName("Al", false), "Name must be at least 3 characters")
	assert.EqualError(t, ValidateName(strings.Repeat("n", 51), true), "Name must be at most 50 characters")
	assert.NoError(t, ValidateName(strings.Repeat("n", 50), true))
	assert.NoError(t, ValidateName("Юля", true))
}

func TestCollect_ReportsEveryField(t *testing.T) {
	err := collect(validation.Errors{
		"email":    ValidateEmail("bad"),
		"password": ValidatePassword(""),
		"name":     ValidateName("ok name", false),
	})
	apiErr := requireKind(t, err, common.KindValidation)
	assert.Equal(t, map[string]string{
		"email":    "Invalid email",
		"password": "Password is required",
	}, apiErr.Fields)

	assert.NoError(t, collect(validation.Errors{"email": ValidateEmail("a@x.com")}))
}
