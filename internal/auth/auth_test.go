package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"finance-tracker/internal/database"
	"finance-tracker/internal/models"
	"finance-tracker/internal/record"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	app := fiber.New()
	api := app.Group("/api")
	Register(api, db, testSecret)
	api.Get("/whoami", JWTMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.SendString(record.ActorFromContext(c.UserContext()).Name)
	})
	return app
}

func send(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, app *fiber.App, email, password string) (int, string) {
	t.Helper()
	resp := send(t, app, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	defer resp.Body.Close()
	var out struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out.Token
}

func TestRegisterLoginMe(t *testing.T) {
	app := newTestApp(t)
	owner := RegisterRequest{Name: "Ada", Email: " Ada@Example.com ", Password: "correct horse"}

	resp := send(t, app, http.MethodPost, "/api/auth/register", "", owner)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/auth/register", "", RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "password123"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	status, _ := login(t, app, "ada@example.com", "wrong password")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = login(t, app, "nobody@example.com", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, token := login(t, app, "ADA@example.com", "correct horse")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, token)

	resp = send(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "Ada", me.Name)
	assert.Equal(t, "ada@example.com", me.Email)

	resp = send(t, app, http.MethodGet, "/api/whoami", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Ada", buf.String())
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	app := newTestApp(t)

	cases := []RegisterRequest{
		{Name: "", Email: "a@example.com", Password: "password123"},
		{Name: "Ada", Email: "not-an-email", Password: "password123"},
		{Name: "Ada", Email: "a@example.com", Password: "short"},
	}
	for _, body := range cases {
		resp := send(t, app, http.MethodPost, "/api/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%+v", body)
	}
}

func TestConcurrentRegisterCreatesOneOwner(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	app := fiber.New()
	app.Post("/register", RegisterHandler(db))

	const workers = 6
	statuses := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(RegisterRequest{
				Name:     "Owner",
				Email:    fmt.Sprintf("owner%d@example.com", i),
				Password: "password123",
			})
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				return
			}
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		if status == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusForbidden, status)
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	app := newTestApp(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	otherKey, err := GenerateToken("another-secret-another-secret-00", &models.User{ID: 1, Name: "Ada"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expiredToken},
		{"wrong key", "Bearer " + otherKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestGenerateTokenClaims(t *testing.T) {
	token, err := GenerateToken(testSecret, &models.User{ID: 7, Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	claims := &JWTCustomClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}
