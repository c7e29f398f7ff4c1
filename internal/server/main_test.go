package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wanderplan/internal/config"
	"wanderplan/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Wanderlust#2025"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret-with-enough-entropy",
		JWTIssuer:      "wanderplan-test",
		JWTAudience:    "wanderplan-test",
		TokenTTLHours:  1,
		Port:           "0",
		AllowedOrigins: "http://localhost:5173",
		Env:            "test",
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// newTestApp builds a server over an in-memory database with routes but
// without the global limiter.
func newTestApp(t *testing.T, deps Deps) (*Server, *fiber.App) {
	t.Helper()
	return newTestAppWithConfig(t, testConfig(), deps)
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config, deps Deps) (*Server, *fiber.App) {
	t.Helper()
	if deps.DB == nil {
		deps.DB = openTestDB(t)
	}
	s, err := NewServer(cfg, deps)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

type apiUser struct {
	ID    uint
	Token string
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	status, raw := doRaw(t, app, method, path, token, body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

func doList(t *testing.T, app *fiber.App, method, path, token string) (int, []map[string]any) {
	t.Helper()
	status, raw := doRaw(t, app, method, path, token, nil)
	var out []map[string]any
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

func doRaw(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func register(t *testing.T, app *fiber.App, username string) apiUser {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]any)
	return apiUser{ID: uint(user["user_id"].(float64)), Token: body["token"].(string)}
}

func createPlan(t *testing.T, app *fiber.App, u apiUser, city string, public bool) uint {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/plans", u.Token, map[string]any{
		"city":      city,
		"from_date": "2026-06-01",
		"to_date":   "2026-06-03",
		"is_public": public,
	})
	require.Equal(t, http.StatusCreated, status, body)
	return uint(body["id"].(float64))
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
