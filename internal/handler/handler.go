// Package handler exposes the broker's HTTP surface. Handlers decode and
// validate payloads, delegate to the usecases, and map sentinel errors to
// caller-facing status codes without leaking internals.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/token"
	"github.com/vasapolrittideah/identity-broker/internal/usecase"
)

// Handler wires the usecases to the HTTP routes.
type Handler struct {
	sessions usecase.SessionUsecase
	users    usecase.UserUsecase
	resets   usecase.PasswordResetUsecase
	issuer   *token.Issuer
	validate *validator.Validate
	trans    ut.Translator
	logger   *zerolog.Logger
}

// NewHandler creates a Handler. The reset usecase may be nil, in which case
// the password reset routes are not mounted.
func NewHandler(
	sessions usecase.SessionUsecase,
	users usecase.UserUsecase,
	resets usecase.PasswordResetUsecase,
	issuer *token.Issuer,
	logger *zerolog.Logger,
) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}

	return &Handler{
		sessions: sessions,
		users:    users,
		resets:   resets,
		issuer:   issuer,
		validate: validate,
		trans:    trans,
		logger:   logger,
	}
}

// Routes builds the router for the broker's whole HTTP surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/signup", h.signUp)
	r.Post("/loginLocal", h.loginLocal)
	r.Post("/refreshToken", h.refreshToken)
	r.Post("/loginWithToken", h.loginWithToken)
	r.Post("/linkWithIdentity", h.linkWithIdentity)

	if h.resets != nil {
		r.Route("/passwordReset", func(r chi.Router) {
			r.Post("/request", h.requestPasswordReset)
			r.Post("/confirm", h.confirmPasswordReset)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/users", h.listUsers)
		r.Post("/users/delete", h.deleteUser)
		r.Post("/profile", h.profile)
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		payload = struct{}{}
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}

// decode unmarshals and validates the request payload, answering the request
// itself on failure. It reports whether the handler should proceed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validate.Struct(payload); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			messages := make([]string, 0, len(errs))
			for _, fieldErr := range errs {
				messages = append(messages, fieldErr.Translate(h.trans))
			}
			h.respondError(w, http.StatusBadRequest, strings.Join(messages, "; "))
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}
