package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-web/gatehouse/internal/shared"
)

// Handler exposes the owner export endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the export route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/print_users", h.printUsers)
}

func (h *Handler) printUsers(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")

	users, err := h.service.Export(r.Context(), secret)
	if err != nil {
		if errors.Is(err, shared.ErrAccessDenied) {
			http.Error(w, "Access denied!", http.StatusForbidden)
			return
		}
		h.logger.Error("export users", slog.Any("error", err))
		http.Error(w, "Database error!", http.StatusInternalServerError)
		return
	}

	// The export sink is the operator console, not the response body.
	h.logger.Info("------ USERS DATA ------", slog.Int("count", len(users)))
	for _, u := range users {
		h.logger.Info("user",
			slog.Int64("id", u.ID),
			slog.String("name", u.Name),
			slog.String("dob", u.DateOfBirth.Format("2006-01-02")),
			slog.String("email", u.Email),
		)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Users printed to server log successfully!"))
}
