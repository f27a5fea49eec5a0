package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	AccessTokenDuration = 15 * time.Minute
	AccessTokenCookie   = "access-token"
	LoginURL            = "/auth/login"
	Issuer              = "daybook"
)

var (
	ErrNoToken       = errors.New("no access token presented")
	ErrAuthDisabled  = errors.New("token verification is not configured")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingUserID = errors.New("token carries no user id")
)

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator verifies access tokens minted by the identity provider.
// Sign-in itself happens there; this service only consumes the identity.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator verifies HS256 tokens signed with secret. An empty secret
// yields an authenticator that rejects every token.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken signs an access token for userID.
func (a *Authenticator) IssueToken(userID, email, name string) (string, error) {
	if !a.Enabled() {
		return "", ErrAuthDisabled
	}
	claims := &JwtCustomClaims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses tokenString and returns its claims.
func (a *Authenticator) Verify(tokenString string) (*JwtCustomClaims, error) {
	if !a.Enabled() {
		return nil, ErrAuthDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// identify reads the bearer header (mobile) or the access-token cookie (web).
func (a *Authenticator) identify(c echo.Context) (*JwtCustomClaims, error) {
	var tokenString string

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	} else if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		tokenString = cookie.Value
	}

	if tokenString == "" {
		return nil, ErrNoToken
	}
	return a.Verify(tokenString)
}

// Unauthenticated is the 401 body: a notice plus a call to action to sign in.
func Unauthenticated(message string) map[string]any {
	return map[string]any{
		"error":     message,
		"code":      "unauthenticated",
		"login_url": LoginURL,
	}
}

// RequireIdentity rejects requests without a valid token.
func (a *Authenticator) RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := a.identify(c)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected unauthenticated request")
			return c.JSON(http.StatusUnauthorized, Unauthenticated("Please sign in to continue."))
		}
		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)
		return next(c)
	}
}

// IdentifyOptional attaches the identity when a valid token is present and
// lets the request through either way.
func (a *Authenticator) IdentifyOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := a.identify(c)
		if err == nil {
			c.Set("user_id", claims.UserID)
			c.Set("claims", claims)
		} else if !errors.Is(err, ErrNoToken) {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Ignoring invalid token")
		}
		return next(c)
	}
}
