package handler

import (
	"errors"
	"net/http"

	"github.com/vasapolrittideah/identity-broker/internal/repository"
	"github.com/vasapolrittideah/identity-broker/internal/token"
	"github.com/vasapolrittideah/identity-broker/internal/usecase"
)

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.sessions.SignUp(r.Context(), usecase.SignUpParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrDuplicateEmail) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, err, "signup failed")
		return
	}

	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) loginLocal(w http.ResponseWriter, r *http.Request) {
	var req LocalLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.sessions.LoginLocal(r.Context(), usecase.LoginLocalParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, err, "local login failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.sessions.RefreshLogin(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, usecase.ErrTokenNotFound) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.serverError(w, err, "refresh login failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) loginWithToken(w http.ResponseWriter, r *http.Request) {
	var req TokenLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.federatedLogin(w, r, usecase.FederatedLoginParams{Assertion: req.AccessToken})
}

func (h *Handler) linkWithIdentity(w http.ResponseWriter, r *http.Request) {
	var req LinkLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.federatedLogin(w, r, usecase.FederatedLoginParams{
		Assertion:   req.AccessToken,
		ShouldLink:  true,
		ConfirmLink: req.Link,
	})
}

func (h *Handler) federatedLogin(w http.ResponseWriter, r *http.Request, params usecase.FederatedLoginParams) {
	result, err := h.sessions.FederatedLogin(r.Context(), params)
	if err != nil {
		if errors.Is(err, usecase.ErrFederationExchange) {
			h.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.serverError(w, err, "federated login failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// serverError answers with a generic 500, except for store write conflicts,
// which the caller may simply retry. Configuration faults such as a missing
// signing key stay in the logs.
func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, repository.ErrStaleStore) {
		h.respondError(w, http.StatusConflict, "the record changed underneath this request, retry")
		return
	}

	if errors.Is(err, token.ErrSigningKeyMissing) {
		h.logger.Error().Err(err).Msg("token signing is not configured")
	} else {
		h.logger.Error().Err(err).Msg(msg)
	}

	h.respondError(w, http.StatusInternalServerError, "something went wrong")
}
