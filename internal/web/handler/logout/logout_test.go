package logout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/login"
	websess "github.com/ctr49/matrix-authentication-service/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Session{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func initSessionStore() {
	websess.Init(&testStorage{data: make(map[string][]byte)})
}

func setupApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	app := fiber.New()

	var s Service
	if err := s.Init(app, newTestConfig(), db, nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	return app
}

// createLoggedInUser writes a store entry and a browser session record the
// way a completed login does.
func createLoggedInUser(t *testing.T, db *gorm.DB, username, sessionID string) *models.User {
	t.Helper()

	u := &models.User{
		Active:   true,
		Username: username,
		Email:    username + "@example.com",
		Password: models.HashPassword("irrelevant"),
	}

	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	sessData := &websess.Data{User: *u}
	if err := sessData.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("failed to write session data: %v", err)
	}

	if _, err := sessioncontroller.Create(db, u.ID, sessionID, "Firefox", "ua", "127.0.0.1"); err != nil {
		t.Fatalf("failed to record browser session: %v", err)
	}

	return u
}

func performLogout(t *testing.T, app *fiber.App, sessionID string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, Path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	db := newTestDB(t)
	app := setupApp(t, db)

	initSessionStore()

	const sessionID = "test-session-id"

	createLoggedInUser(t, db, "bob", sessionID)

	resp := performLogout(t, app, sessionID)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	if loc := resp.Header.Get("Location"); loc != login.Path {
		t.Fatalf("expected redirect to %s, got %s", login.Path, loc)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(setCookie, "session=") {
		t.Fatalf("expected expired session cookie, got %q", setCookie)
	}

	// the store entry must be gone
	sessData := new(websess.Data)
	if err := sessData.Read(sessionID); err == nil {
		t.Fatal("expected session data to be deleted from the store")
	}

	// the browser session row must be gone
	if _, err := sessioncontroller.Get(db, sessionID); !errors.Is(err, sessioncontroller.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestLogout_WithoutCookieStillRedirects(t *testing.T) {
	db := newTestDB(t)
	app := setupApp(t, db)

	initSessionStore()

	resp := performLogout(t, app, "")

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	if loc := resp.Header.Get("Location"); loc != login.Path {
		t.Fatalf("expected redirect to %s, got %s", login.Path, loc)
	}
}

func TestLogout_LeavesOtherSessionsAlone(t *testing.T) {
	db := newTestDB(t)
	app := setupApp(t, db)

	initSessionStore()

	const (
		currentID = "current-session"
		otherID   = "other-session"
	)

	user := createLoggedInUser(t, db, "carol", currentID)

	otherData := &websess.Data{User: *user}
	if err := otherData.Write(otherID, time.Minute); err != nil {
		t.Fatalf("failed to write session data: %v", err)
	}

	if _, err := sessioncontroller.Create(db, user.ID, otherID, "Chrome", "ua", "127.0.0.2"); err != nil {
		t.Fatalf("failed to record browser session: %v", err)
	}

	resp := performLogout(t, app, currentID)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	if _, err := sessioncontroller.Get(db, otherID); err != nil {
		t.Fatalf("expected the other session to survive, got %v", err)
	}

	sessData := new(websess.Data)
	if err := sessData.Read(otherID); err != nil {
		t.Fatalf("expected the other store entry to survive, got %v", err)
	}
}

func TestProviderLogoutURL_LocalFallbacks(t *testing.T) {
	s := Service{cfg: newTestConfig()}

	localUser := &models.User{ID: 1, AuthSource: models.AuthSourceLocal}
	oidcUser := &models.User{ID: 2, AuthSource: models.AuthSourceOIDC}

	// no provider configured
	if url := s.providerLogoutURL(nil, oidcUser, "token"); url != "" {
		t.Fatalf("expected empty URL without a provider, got %q", url)
	}

	s.provider = nil

	// local accounts never go upstream, token or not
	if url := s.providerLogoutURL(nil, localUser, "token"); url != "" {
		t.Fatalf("expected empty URL for local account, got %q", url)
	}

	// an oidc account without a stored token stays local too
	if url := s.providerLogoutURL(nil, oidcUser, ""); url != "" {
		t.Fatalf("expected empty URL without a stored token, got %q", url)
	}
}
