package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adonese/signup/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
)

// SessionCookie carries the signed session issued after registration.
const SessionCookie = "signup_session"

const defaultSessionTTL = 12 * time.Hour

// SessionClaims identifies the account a browser registered.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// Sessions signs and verifies HS256 session tokens.
type Sessions struct {
	Key      []byte
	TTL      time.Duration
	Issuer   string
	Secure   bool
	LoginURL string
	now      func() time.Time
}

func NewSessions(key string, ttl time.Duration) (*Sessions, error) {
	if len(key) < 16 {
		return nil, errors.New("session key must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{Key: []byte(key), TTL: ttl, Issuer: "signup", LoginURL: "/", now: time.Now}, nil
}

func (s *Sessions) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Issue signs a token for account.
func (s *Sessions) Issue(account identity.Account) (string, error) {
	now := s.clock()
	claims := SessionClaims{
		Email: account.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   account.ID,
			Issuer:    s.Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.TTL).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
}

// Verify parses token and checks its signature and expiry.
func (s *Sessions) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.Key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// SetCookie issues a session for account and attaches it to the response.
func (s *Sessions) SetCookie(c *fiber.Ctx, account identity.Account) error {
	token, err := s.Issue(account)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  s.clock().Add(s.TTL),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Require redirects browsers without a valid session to the login page.
// Valid sessions expose "account_id" and "email" through Locals.
func (s *Sessions) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(SessionCookie)
		if raw == "" {
			return c.Redirect(s.LoginURL, http.StatusSeeOther)
		}
		claims, err := s.Verify(raw)
		if err != nil {
			c.ClearCookie(SessionCookie)
			return c.Redirect(s.LoginURL, http.StatusSeeOther)
		}
		c.Locals("account_id", claims.Subject)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}
