package handler

// SignUpRequest creates a local email/password account.
type SignUpRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required"`
}

// LocalLoginRequest logs in with a local credential.
type LocalLoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshLoginRequest exchanges a live refresh token for a new session.
type RefreshLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenLoginRequest logs in with a federated assertion.
type TokenLoginRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

// LinkLoginRequest answers a pending account-linking decision.
type LinkLoginRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
	Link        bool   `json:"link"`
}

// DeleteUserRequest removes the identities registered under an email.
type DeleteUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ProfileRequest fetches the caller's profile. The optional federated
// assertion adds the provider-side profile to the response.
type ProfileRequest struct {
	AccessToken string `json:"accessToken"`
}

// RequestPasswordResetRequest starts the password reset flow.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmPasswordResetRequest redeems a reset token for a new password.
type ConfirmPasswordResetRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}
