package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/seantiz/wayfarer/internal/errs"
)

type contextKey string

const callerKey contextKey = "caller"

var (
	errMissingToken = errors.New("authorization token required")
	errInvalidToken = errors.New("invalid or expired token")

	errIdentityMismatch = errs.New(errs.ErrForbidden, "acting user does not match the authenticated caller")
)

// caller returns the authenticated user for the request, or "" when identity
// checks are disabled.
func caller(ctx context.Context) string {
	user, _ := ctx.Value(callerKey).(string)
	return user
}

// identityMiddleware verifies the HS256 bearer token on every request and
// stores its subject as the caller. It is a no-op when no secret is set.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	if s.jwtSecret == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeError(w, http.StatusUnauthorized, errMissingToken.Error())
			return
		}
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.writeError(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}

		subject, err := s.verifyToken(parts[1])
		if err != nil {
			s.logger.Debug("rejected token", "error", err)
			s.writeError(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) verifyToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// authorize fails with a Forbidden error when identity checks are enabled
// and user is not the authenticated caller.
func authorize(r *http.Request, user string) error {
	if c := caller(r.Context()); c != "" && user != c {
		return errIdentityMismatch
	}
	return nil
}
