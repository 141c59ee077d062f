package domain

// TokenPair is what a successful login returns: the short-lived signed
// access token and the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access-token lifetime, seconds
}
