package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:        tt.env,
				DBSSLMode:  tt.sslMode,
				JWTSecret:  "secure-secret-at-least-32-chars-long",
				DBPassword: "secure-password",
				Port:       "8080",
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	base := Config{
		Env:        "production",
		DBSSLMode:  "require",
		DBPassword: "secure-password",
		Port:       "8080",
	}

	weak := base
	weak.JWTSecret = "short"
	assert.Error(t, weak.Validate())

	dflt := base
	dflt.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, dflt.Validate())

	noPass := base
	noPass.JWTSecret = "secure-secret-at-least-32-chars-long"
	noPass.DBPassword = ""
	assert.Error(t, noPass.Validate())
}

func TestConfig_ValidateRejectsNegativeTimeouts(t *testing.T) {
	c := &Config{Port: "8080", JWTSecret: "x", SearchTimeoutSeconds: -1}
	assert.Error(t, c.Validate())
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("SERPAPI_KEY")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("SERPAPI_KEY", "serp-test")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "serp-test", c.SerpAPIKey)
	assert.Equal(t, "https://serpapi.com/search", c.SerpAPIURL)
	assert.Equal(t, 30, c.SearchTimeoutSeconds)
	assert.Equal(t, "gemini-2.5-pro", c.GeminiModel)
	assert.Equal(t, "wanderplan-api", c.JWTIssuer)
	assert.Equal(t, 168, c.TokenTTLHours)
	assert.False(t, c.IsProduction())
}
