package handler

import (
	"errors"
	"net/http"

	"github.com/vasapolrittideah/identity-broker/internal/usecase"
)

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestPasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Always answer 200 so callers cannot probe which emails exist.
	if err := h.resets.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("failed to process password reset request")
	}

	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.resets.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrResetTokenInvalid), errors.Is(err, usecase.ErrResetTokenExpired):
			h.respondError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, usecase.ErrResetTokenNotFound):
			h.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, usecase.ErrResetTokenUsed):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.serverError(w, err, "failed to reset password")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, nil)
}
