package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
)

type noOpViews struct{}

func (noOpViews) Load() error { return nil }

func (noOpViews) Render(w io.Writer, name string, _ interface{}, _ ...string) error {
	_, _ = io.WriteString(w, name)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	return db
}

func setupApp(t *testing.T, db *gorm.DB, user *models.User) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{Views: noOpViews{}})

	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(handler.LocalsUser, user)
		}

		return c.Next()
	})

	bar, err := navigation.NewBar([]navigation.Entry{
		{Path: "/", Label: "Profile"},
		{Path: Path, Label: "Security"},
	})
	require.NoError(t, err)

	var s Service
	require.NoError(t, s.Init(app, &config.Config{}, db, bar))

	return app
}

func performPost(t *testing.T, app *fiber.App, target string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{
		Active:   true,
		Username: "alice",
		Password: models.HashPassword("old-password-123"),
	}
	require.NoError(t, db.Create(user).Error)

	app := setupApp(t, db, user)

	resp := performPost(t, app, Path+"/password", url.Values{
		"old_password": {"old-password-123"},
		"new_password": {"new-password-456"},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)

	assert.True(t, stored.VerifyPassword("new-password-456"))
	assert.False(t, stored.VerifyPassword("old-password-123"))
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{
		Active:   true,
		Username: "alice",
		Password: models.HashPassword("old-password-123"),
	}
	require.NoError(t, db.Create(user).Error)

	app := setupApp(t, db, user)

	resp := performPost(t, app, Path+"/password", url.Values{
		"old_password": {"not-the-password"},
		"new_password": {"new-password-456"},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.VerifyPassword("old-password-123"))
}

func TestChangePassword_TooShort(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{
		Active:   true,
		Username: "alice",
		Password: models.HashPassword("old-password-123"),
	}
	require.NoError(t, db.Create(user).Error)

	app := setupApp(t, db, user)

	resp := performPost(t, app, Path+"/password", url.Values{
		"old_password": {"old-password-123"},
		"new_password": {"short"},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTOTPLifecycle(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{Active: true, Username: "alice"}
	require.NoError(t, db.Create(user).Error)

	app := setupApp(t, db, user)

	// generate a pending secret the way EnableTOTP does
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "alice"})
	require.NoError(t, err)

	// wrong code does not enable anything
	resp := performPost(t, app, Path+"/totp/confirm", url.Values{
		"secret": {key.Secret()},
		"code":   {"000000"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.TOTPEnabled)

	// valid code enables two-factor and persists the secret
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	resp = performPost(t, app, Path+"/totp/confirm", url.Values{
		"secret": {key.Secret()},
		"code":   {code},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.TOTPEnabled)
	assert.Equal(t, key.Secret(), stored.TOTPSecret)

	// disable clears the secret again
	resp = performPost(t, app, Path+"/totp/disable", url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.TOTPEnabled)
	assert.Empty(t, stored.TOTPSecret)
}

func TestEnableTOTP_ShowsPendingSecret(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{Active: true, Username: "alice"}
	require.NoError(t, db.Create(user).Error)

	app := setupApp(t, db, user)

	resp := performPost(t, app, Path+"/totp", url.Values{})

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the secret must not be persisted before confirmation
	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.TOTPEnabled)
	assert.Empty(t, stored.TOTPSecret)
}

func TestGet_NotLoggedIn(t *testing.T) {
	app := setupApp(t, newTestDB(t), nil)

	req := httptest.NewRequest(http.MethodGet, Path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}
