package model

// LoginResult is the uniform outcome of every login path. It is transient and
// never persisted. When RequireLink is set the caller must confirm an
// account-linking decision before a session is established, so no session
// tokens are present.
type LoginResult struct {
	DisplayName      string `json:"displayName"`
	AccessToken      string `json:"accessToken,omitempty"`
	RefreshToken     string `json:"refreshToken,omitempty"`
	TokenExpiry      int64  `json:"tokenExpiry,omitempty"`
	GraphAccessToken string `json:"graphAccessToken,omitempty"`
	RequireLink      bool   `json:"requireLink"`
}
