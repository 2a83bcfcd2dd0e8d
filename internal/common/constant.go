// Package common contains shared constants, sentinel errors and the API error
// type used across the service layers.
package common

// RefreshTokenCookieName is the cookie that carries the refresh token between
// the browser and the /auth and /profile endpoints.
const RefreshTokenCookieName = "refreshToken"
