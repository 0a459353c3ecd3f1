package http

import (
	"strings"
	"time"

	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/repository"
	"kinto-admin/internal/auth/usecase"
	"kinto-admin/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// Locals keys set by the middleware
const (
	LocalSessionID = "session_id"
	LocalClientID  = "client_id"
	LocalServer    = "server"
	LocalRequestID = "request_id"
)

// ClientCookieSuffix is appended to the session cookie name for the client id cookie
const ClientCookieSuffix = "_client"

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase usecase.AuthUsecaseInterface
	config  *config.Config
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		usecase: uc,
		config:  cfg,
	}
}

// CORS allows the public console origin with credentials
func (m *AuthMiddleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     m.config.ConsoleURL,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		ExposeHeaders:    "X-Console-Token,X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if m.config.CookieSecure {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		return c.Next()
	}
}

// RateLimiter limits login attempts per client address
func (m *AuthMiddleware) RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID assigns a request id and copies it into the user context
func (m *AuthMiddleware) RequestID() fiber.Handler {
	assign := requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		Generator:  uuid.NewString,
		ContextKey: LocalRequestID,
	})
	return func(c *fiber.Ctx) error {
		return assign(c)
	}
}

// RequestContext copies the request id set by RequestID into the user context
func (m *AuthMiddleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// ClientID makes sure the browser carries a stable client id. Server
// history is kept per client id, across logins.
func (m *AuthMiddleware) ClientID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := m.config.CookieName + ClientCookieSuffix
		// the cookie value aliases the request buffer and outlives the request
		clientID := fiberutils.CopyString(c.Cookies(name))
		if _, err := uuid.Parse(clientID); err != nil {
			clientID = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     name,
				Value:    clientID,
				Path:     m.config.CookiePath,
				Domain:   m.config.CookieDomain,
				Expires:  time.Now().AddDate(1, 0, 0),
				Secure:   m.config.CookieSecure,
				HTTPOnly: true,
				SameSite: m.config.CookieSameSite,
			})
		}
		c.Locals(LocalClientID, clientID)
		c.SetUserContext(utils.WithClientID(c.UserContext(), clientID))
		return c.Next()
	}
}

// Protect returns middleware that requires a console session token
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.extractToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		m.inject(c, claims)
		return c.Next()
	}
}

// OptionalAuth injects the session when a valid token is present and
// continues anonymously otherwise.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.extractToken(c)
		if err != nil {
			return c.Next()
		}
		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Next()
		}
		m.inject(c, claims)
		return c.Next()
	}
}

func (m *AuthMiddleware) inject(c *fiber.Ctx, claims *repository.Claims) {
	ctx := utils.WithSessionID(c.UserContext(), claims.SessionID)
	if claims.ClientID != "" {
		ctx = utils.WithClientID(ctx, claims.ClientID)
		c.Locals(LocalClientID, claims.ClientID)
	}
	if claims.Server != "" {
		ctx = utils.WithServer(ctx, claims.Server)
		c.Locals(LocalServer, claims.Server)
	}
	c.Locals(LocalSessionID, claims.SessionID)
	c.SetUserContext(ctx)
}

// SetSessionCookie stores the console token in an HTTP-only cookie
func (m *AuthMiddleware) SetSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     m.config.CookiePath,
		Domain:   m.config.CookieDomain,
		MaxAge:   int(m.config.SessionTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		HTTPOnly: m.config.CookieHTTPOnly,
		SameSite: m.config.CookieSameSite,
	})
}

// ClearSessionCookie expires the console token cookie
func (m *AuthMiddleware) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		Domain:   m.config.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HTTPOnly: m.config.CookieHTTPOnly,
		SameSite: m.config.CookieSameSite,
	})
}

// extractToken extracts the token from Authorization header, cookie or query
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != "" {
			return token, nil
		}
	}

	if token := c.Cookies(m.config.CookieName); token != "" {
		return token, nil
	}

	// WebSocket connections cannot set headers from browsers
	if token := c.Query("token"); token != "" {
		return token, nil
	}

	return "", fiber.NewError(fiber.StatusUnauthorized, "No authentication token found")
}

// GetSessionID returns the session id bound to the request context by Protect
func GetSessionID(c *fiber.Ctx) (string, bool) {
	id, err := utils.GetSessionIDFromContext(c.UserContext())
	return id, err == nil
}

// GetClientID returns the client id bound to the request context by ClientID or Protect
func GetClientID(c *fiber.Ctx) (string, bool) {
	id, err := utils.GetClientIDFromContext(c.UserContext())
	return id, err == nil
}

// IsAuthenticated reports whether the request carries a console session
func IsAuthenticated(c *fiber.Ctx) bool {
	_, ok := GetSessionID(c)
	return ok
}
