package gopresto

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const headerAuthorizationKey = "Authorization"

// validateCredentials rejects a password combined with an access token and
// an access token that is a JWT whose exp claim has passed. Opaque tokens
// are not inspected.
func validateCredentials(password, accessToken string, now time.Time) error {
	if accessToken == "" {
		return nil
	}
	if password != "" {
		return ErrConflictingCredentials
	}
	exp, ok := accessTokenExpiry(accessToken)
	if ok && !exp.After(now) {
		return ErrExpiredAccessToken.withArgs(exp.Format(time.RFC3339))
	}
	return nil
}

// accessTokenExpiry reads the exp claim of a JWT without verifying its
// signature; the coordinator does the verification.
func accessTokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		logger.Debugf("access token is not a JWT: %v", err)
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// setAuthHeaders adds basic or bearer authentication.
func setAuthHeaders(h http.Header, cfg *Config) {
	switch {
	case cfg.AccessToken != "":
		h.Set(headerAuthorizationKey, "Bearer "+cfg.AccessToken)
	case cfg.Password != "":
		req := http.Request{Header: h}
		req.SetBasicAuth(cfg.User, cfg.Password)
	}
}
