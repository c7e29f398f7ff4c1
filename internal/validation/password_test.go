package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"Valid", "Trip2Lisbon!now", ""},
		{"Exactly Min Length", "Abcdefghij1!", ""},
		{"One Short", "Abcdefghi1!", "at least 12 characters"},
		// Only the first 72 bytes reach bcrypt; longer passphrases still pass.
		{"Past Bcrypt Window", "A1!" + strings.Repeat("b", 97), ""},
		{"Exactly Max Length", "A1!" + strings.Repeat("b", 125), ""},
		{"Over Max Length", "A1!" + strings.Repeat("b", 126), "must not exceed 128"},
		{"Upper Reported First", "securepass12!", "uppercase"},
		{"No Lower", "SECUREPASS12!", "lowercase"},
		{"No Digit", "SecurePass!!", "digit"},
		{"No Special", "SecurePass123", "special character"},
		{"Unicode Letters Count As Cases", "ÅngstromPass12!", ""},
		{"Unicode Upper Only", "ÅNGSTRÖM12!!", "lowercase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  string
	}{
		{"Valid", "lisbon_walker-7", ""},
		{"Min Length", "ana", ""},
		{"Max Length", strings.Repeat("a", 30), ""},
		{"Too Long", strings.Repeat("a", 31), "must not exceed 30"},
		{"Too Short", "tu", "at least 3"},
		// Length is counted in runes, so two accented letters are too short
		// even though they take four bytes.
		{"Short In Runes", "éé", "at least 3"},
		{"Non ASCII Letters", "éée", "can only contain"},
		{"Illegal Chars", "user@123", "can only contain"},
		{"Starts Dash", "-user", "cannot start or end"},
		{"Ends Underscore", "user_", "cannot start or end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateUsername(tt.username)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	longest := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	require.Len(t, longest, 254)

	tests := []struct {
		name    string
		email   string
		wantErr string
	}{
		{"Valid", "ana@example.com", ""},
		{"Subdomains", "ana.silva+trips@mail.example.co.uk", ""},
		{"Max Length", longest, ""},
		{"Over Max Length", "a" + longest, "must not exceed 254"},
		{"Empty Domain Label", "ana@example..com", "invalid email format"},
		{"Leading Dot Domain", "ana@.example.com", "invalid email format"},
		{"Short TLD", "ana@example.c", "invalid email format"},
		{"No At", "ana.example.com", "invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEmail(tt.email)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
