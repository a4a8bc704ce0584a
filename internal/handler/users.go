package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vasapolrittideah/identity-broker/internal/usecase"
)

type claimsContextKey struct{}

// authenticate verifies the bearer token and stores its claims on the request
// context for the handlers behind it.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			h.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.issuer.ParseAccessToken(tokenStr)
		if err != nil {
			h.respondError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(jwt.MapClaims)
	return claims, ok
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, err, "failed to list users")
		return
	}

	h.respondJSON(w, http.StatusOK, users)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req DeleteUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Deleting an unknown email is a no-op, not an error.
	if err := h.users.DeleteUser(r.Context(), req.Email); err != nil {
		h.serverError(w, err, "failed to delete user")
		return
	}

	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "invalid access token")
		return
	}
	identityID, _ := claims["sub"].(string)
	if identityID == "" {
		h.respondError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	result, err := h.users.Profile(r.Context(), identityID, req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrIdentityNotFound):
			h.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, usecase.ErrFederationExchange):
			h.respondError(w, http.StatusBadGateway, err.Error())
		default:
			h.serverError(w, err, "failed to build profile")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
