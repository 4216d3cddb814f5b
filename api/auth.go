package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/sarahuu/EGBIN-SSP/allowance"
)

// =============================================================================
// AUTHENTICATION - Bearer JWT to Principal
// =============================================================================

// The token only names the employee (subject). Role and department are read
// from the directory on every request.

type principalKey struct{}

var (
	errMissingToken = errors.New("authentication credentials were not provided")
	errInvalidToken = errors.New("invalid or expired token")
)

// Authenticator issues and verifies HMAC-signed bearer tokens.
type Authenticator struct {
	Secret    []byte
	Directory allowance.Directory
	TTL       time.Duration
	Now       func() time.Time
}

func NewAuthenticator(secret string, dir allowance.Directory) *Authenticator {
	return &Authenticator{
		Secret:    []byte(secret),
		Directory: dir,
		TTL:       12 * time.Hour,
		Now:       time.Now,
	}
}

// Issue signs a token for employeeID.
func (a *Authenticator) Issue(employeeID int64) (string, error) {
	now := a.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(employeeID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// Verify parses a token and returns the employee id it names.
func (a *Authenticator) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", errInvalidToken, claims.Subject)
	}
	return id, nil
}

// Middleware resolves the bearer token to a Principal and stores it in the
// request context. Failures end the request with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeMessages(w, http.StatusUnauthorized, err.Error())
			return
		}
		id, err := a.Verify(token)
		if err != nil {
			writeMessages(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}
		emp, err := a.Directory.Employee(r.Context(), id)
		if err != nil {
			writeMessages(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, allowance.PrincipalFor(*emp))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(ctx context.Context) (allowance.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(allowance.Principal)
	return p, ok
}
