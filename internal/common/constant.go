package common

const (
	// AccessTokenCookieName is the HTTP-only cookie carrying the access token.
	AccessTokenCookieName = "accessToken"
	// RefreshTokenCookieName is the HTTP-only cookie carrying the refresh token.
	RefreshTokenCookieName = "refreshToken"
)
