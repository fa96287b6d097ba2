package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-web/gatehouse/internal/app"
	"github.com/gatehouse-web/gatehouse/internal/auth"
	"github.com/gatehouse-web/gatehouse/internal/shared"
	"github.com/gatehouse-web/gatehouse/internal/view"
	_ "github.com/gatehouse-web/gatehouse/testing"
)

type stubRepo struct {
	users  map[string]*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[string]*auth.User), nextID: 1}
}

func (s *stubRepo) CreateUser(ctx context.Context, user *auth.User) (int64, error) {
	if _, exists := s.users[user.Email]; exists {
		return 0, shared.ErrDuplicateEmail
	}
	id := s.nextID
	s.nextID++
	stored := *user
	stored.ID = id
	s.users[user.Email] = &stored
	return id, nil
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) seedUser(t *testing.T, name, email, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &auth.User{
		ID:           s.nextID,
		Name:         name,
		DateOfBirth:  time.Date(1999, time.March, 14, 0, 0, 0, 0, time.UTC),
		Email:        email,
		PasswordHash: string(hash),
	}
	s.nextID++
	s.users[email] = user
	return user
}

func newTestRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := auth.NewService(repo, auth.NewBcryptHasher(bcrypt.MinCost))
	handler := auth.NewHandler(logger, service, templates, 5, time.Minute)

	r := chi.NewRouter()
	r.Use(app.SessionMiddleware(logger, sessionManager))
	handler.MountRoutes(r)
	return r, sessionManager
}

func postForm(t *testing.T, router http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func sessionFromResponse(t *testing.T, sm *shared.SessionManager, res *httptest.ResponseRecorder) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() && c.Value != "" {
			req.AddCookie(c)
		}
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func TestRegisterSuccess(t *testing.T) {
	repo := newStubRepo()
	router, sm := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("name", "Priya")
	form.Set("dob", "1999-03-14")
	form.Set("email", "priya@example.com")
	form.Set("password", "shortly-after-dawn")

	res := postForm(t, router, "/register", form, nil)

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/#login", res.Header().Get("Location"))

	stored := repo.users["priya@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "shortly-after-dawn", stored.PasswordHash)

	sess := sessionFromResponse(t, sm, res)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
	assert.Equal(t, "Registration successful! Please log in.", flash.Message)
}

func TestRegisterDuplicateEmailKeepsOneRow(t *testing.T) {
	repo := newStubRepo()
	router, sm := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("name", "Priya")
	form.Set("dob", "1999-03-14")
	form.Set("email", "priya@example.com")
	form.Set("password", "shortly-after-dawn")

	first := postForm(t, router, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, first.Code)

	second := postForm(t, router, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, second.Code)
	assert.Equal(t, "/#register", second.Header().Get("Location"))
	assert.Len(t, repo.users, 1)

	sess := sessionFromResponse(t, sm, second)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashError, flash.Kind)
	assert.Equal(t, "Email already exists or DB error!", flash.Message)
}

func TestRegisterRejectsInvalidDOB(t *testing.T) {
	repo := newStubRepo()
	router, _ := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("name", "Priya")
	form.Set("dob", "14-03-1999")
	form.Set("email", "priya@example.com")
	form.Set("password", "shortly-after-dawn")

	res := postForm(t, router, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/#register", res.Header().Get("Location"))
	assert.Empty(t, repo.users)
}

func TestLoginSuccessEstablishesSession(t *testing.T) {
	repo := newStubRepo()
	seeded := repo.seedUser(t, "Priya", "priya@example.com", "correctpass")
	router, sm := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("email", "priya@example.com")
	form.Set("password", "correctpass")

	res := postForm(t, router, "/login", form, nil)

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))

	sess := sessionFromResponse(t, sm, res)
	assert.Equal(t, strconv.FormatInt(seeded.ID, 10), sess.UserID())
	assert.Equal(t, "Priya", sess.UserName())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newStubRepo()
	repo.seedUser(t, "Priya", "priya@example.com", "correctpass")
	router, sm := newTestRouter(t, repo)

	wrongPassword := url.Values{}
	wrongPassword.Set("email", "priya@example.com")
	wrongPassword.Set("password", "wrongpass")

	unknownEmail := url.Values{}
	unknownEmail.Set("email", "nobody@example.com")
	unknownEmail.Set("password", "correctpass")

	resWrong := postForm(t, router, "/login", wrongPassword, nil)
	resUnknown := postForm(t, router, "/login", unknownEmail, nil)

	assert.Equal(t, resWrong.Code, resUnknown.Code)
	assert.Equal(t, resWrong.Header().Get("Location"), resUnknown.Header().Get("Location"))
	assert.Equal(t, "/#login", resWrong.Header().Get("Location"))

	for _, res := range []*httptest.ResponseRecorder{resWrong, resUnknown} {
		sess := sessionFromResponse(t, sm, res)
		flash := sess.PopFlash()
		require.NotNil(t, flash)
		assert.Equal(t, shared.FlashError, flash.Kind)
		assert.Equal(t, "Invalid email or password", flash.Message)
	}
}

func TestLoginRateLimited(t *testing.T) {
	repo := newStubRepo()
	repo.seedUser(t, "Priya", "priya@example.com", "correctpass")
	router, _ := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("email", "priya@example.com")
	form.Set("password", "correctpass")

	for i := 0; i < 5; i++ {
		res := postForm(t, router, "/login", form, nil)
		require.Equal(t, http.StatusSeeOther, res.Code, "attempt %d should pass the limiter", i+1)
	}

	// Sixth attempt within the window fails even with correct credentials.
	res := postForm(t, router, "/login", form, nil)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
}

func TestDashboardGating(t *testing.T) {
	repo := newStubRepo()
	repo.seedUser(t, "Priya", "priya@example.com", "correctpass")
	router, sm := newTestRouter(t, repo)

	// Anonymous: redirected to the login view with a flash.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/#login", res.Header().Get("Location"))

	sess := sessionFromResponse(t, sm, res)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Login first", flash.Message)

	// Authenticated: dashboard renders the user's name.
	form := url.Values{}
	form.Set("email", "priya@example.com")
	form.Set("password", "correctpass")
	loginRes := postForm(t, router, "/login", form, nil)
	require.Equal(t, http.StatusSeeOther, loginRes.Code)
	cookies := loginRes.Result().Cookies()

	dashReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		dashReq.AddCookie(c)
	}
	dashRes := httptest.NewRecorder()
	router.ServeHTTP(dashRes, dashReq)
	require.Equal(t, http.StatusOK, dashRes.Code)
	assert.Contains(t, dashRes.Body.String(), "Welcome, Priya!")

	// After logout the dashboard redirects again.
	logoutReq := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		logoutReq.AddCookie(c)
	}
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logoutReq)
	require.Equal(t, http.StatusSeeOther, logoutRes.Code)
	assert.Equal(t, "/", logoutRes.Header().Get("Location"))

	afterReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		afterReq.AddCookie(c)
	}
	afterRes := httptest.NewRecorder()
	router.ServeHTTP(afterRes, afterReq)
	require.Equal(t, http.StatusSeeOther, afterRes.Code)
	assert.Equal(t, "/#login", afterRes.Header().Get("Location"))
}

func TestLogoutFlashesConfirmation(t *testing.T) {
	repo := newStubRepo()
	repo.seedUser(t, "Priya", "priya@example.com", "correctpass")
	router, sm := newTestRouter(t, repo)

	form := url.Values{}
	form.Set("email", "priya@example.com")
	form.Set("password", "correctpass")
	loginRes := postForm(t, router, "/login", form, nil)
	cookies := loginRes.Result().Cookies()

	logoutReq := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		logoutReq.AddCookie(c)
	}
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logoutReq)
	require.Equal(t, http.StatusSeeOther, logoutRes.Code)

	sess := sessionFromResponse(t, sm, logoutRes)
	assert.Empty(t, sess.UserID())
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
	assert.Equal(t, "Logged out successfully", flash.Message)
}
