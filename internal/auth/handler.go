package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-web/gatehouse/internal/shared"
	"github.com/gatehouse-web/gatehouse/internal/view"
)

const dobLayout = "2006-01-02"

// Handler wires HTTP endpoints for registration and login flows.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	templates       *view.Engine
	validator       *validator.Validate
	loginRateLimit  int
	loginRateWindow time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, loginLimit int, loginWindow time.Duration) *Handler {
	if loginLimit <= 0 {
		loginLimit = 5
	}
	if loginWindow <= 0 {
		loginWindow = time.Minute
	}
	return &Handler{
		logger:          logger,
		service:         service,
		templates:       templates,
		validator:       validator.New(),
		loginRateLimit:  loginLimit,
		loginRateWindow: loginWindow,
	}
}

// MountRoutes registers auth routes on the provided router. Login is
// rate limited per client address independent of the credential store.
func (h *Handler) MountRoutes(r chi.Router) {
	loginLimiter := httprate.Limit(h.loginRateLimit, h.loginRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP))

	r.Post("/register", h.handleRegister)
	r.With(loginLimiter).Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/dashboard", h.showDashboard)
}

type registerForm struct {
	Name     string `validate:"required"`
	DOB      string `validate:"required,datetime=2006-01-02"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := registerForm{
		Name:     r.PostFormValue("name"),
		DOB:      r.PostFormValue("dob"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "/#register", shared.FlashError, "Please fill in all fields correctly")
		return
	}
	dob, err := time.Parse(dobLayout, form.DOB)
	if err != nil {
		h.redirectWithFlash(w, r, "/#register", shared.FlashError, "Please fill in all fields correctly")
		return
	}

	_, err = h.service.Register(r.Context(), RegisterInput{
		Name:        form.Name,
		DateOfBirth: dob,
		Email:       form.Email,
		Password:    form.Password,
	})
	if err != nil {
		// Duplicate email and storage failures flash the same message;
		// only the log line tells them apart.
		if errors.Is(err, shared.ErrDuplicateEmail) {
			h.logger.Info("registration rejected", slog.String("reason", "duplicate email"))
		} else {
			h.logger.Error("registration failed", slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, "/#register", shared.FlashError, "Email already exists or DB error!")
		return
	}

	h.redirectWithFlash(w, r, "/#login", shared.FlashSuccess, "Registration successful! Please log in.")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "/#login", shared.FlashError, "Invalid email or password")
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("login lookup failed", slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, "/#login", shared.FlashError, "Invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10), user.Name)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		h.redirectWithFlash(w, r, "/#login", shared.FlashError, "Login first")
		return
	}

	data := view.TemplateData{
		Title:       "Dashboard",
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"UserName": sess.UserName()},
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		// Reset instead of destroy so the confirmation flash survives
		// into the now-anonymous session.
		sess.Reset()
	}
	h.redirectWithFlash(w, r, "/", shared.FlashSuccess, "Logged out successfully")
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
