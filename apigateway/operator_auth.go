package gateway

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/adonese/signup/apperr"
	"github.com/gofiber/fiber/v2"
)

// OperatorAuthConfig protects internal endpoints such as /metrics.
// An empty config leaves the endpoint open, which is what local runs want.
type OperatorAuthConfig struct {
	Token    string
	User     string
	Password string
}

func (cfg OperatorAuthConfig) enabled() bool {
	return cfg.Token != "" || (cfg.User != "" && cfg.Password != "")
}

// RequireOperator accepts "Authorization: Bearer <token>" or HTTP Basic auth.
func RequireOperator(cfg OperatorAuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.enabled() {
			return c.Next()
		}
		header := c.Get(fiber.HeaderAuthorization)
		if cfg.Token != "" && checkBearer(header, cfg.Token) {
			return c.Next()
		}
		if cfg.User != "" && cfg.Password != "" && checkBasicAuth(header, cfg.User, cfg.Password) {
			return c.Next()
		}
		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="signup"`)
		return c.Status(apperr.ErrUnauthorized.Status).JSON(apperr.Payload(apperr.ErrUnauthorized))
	}
}

func checkBearer(header, token string) bool {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(value)), []byte(token)) == 1
}

func checkBasicAuth(header, user, pass string) bool {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "basic") {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	gotUser, gotPass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass)) == 1
	return userOK && passOK
}
