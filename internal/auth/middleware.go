package auth

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/config"
	"restoran-pos/internal/permissions"
)

const CtxPrincipalKey = "principal"

// SessionMiddleware authenticates the request from the session cookie or a
// bearer token and stores the resolved Principal in the request locals.
func SessionMiddleware(cfg *config.Config, resolver *Resolver, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(cfg.SessionCookieName)
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			if authHeader == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "not signed in")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
			}
			tokenStr = parts[1]
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			clearSessionCookie(c, cfg)
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired session")
		}

		principal, err := resolver.Resolve(c.UserContext(), claims.AuthUserID)
		if err != nil {
			if errors.Is(err, ErrUnknownPrincipal) {
				clearSessionCookie(c, cfg)
				return fiber.NewError(fiber.StatusUnauthorized, "no staff record for this account")
			}
			log.Error("resolve principal", "auth_user_id", claims.AuthUserID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not load staff")
		}

		c.Locals(CtxPrincipalKey, principal)
		return c.Next()
	}
}

// CurrentPrincipal returns the principal stored by SessionMiddleware.
func CurrentPrincipal(c *fiber.Ctx) (*Principal, error) {
	p, ok := c.Locals(CtxPrincipalKey).(*Principal)
	if !ok || p == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "not signed in")
	}
	return p, nil
}

// Require rejects requests whose role lacks the permission.
func Require(perm permissions.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return err
		}
		if !p.Can(perm) {
			return fiber.NewError(fiber.StatusForbidden, "missing permission "+perm.Key())
		}
		return c.Next()
	}
}

func RequireOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return err
		}
		if !p.IsOwner() {
			return fiber.NewError(fiber.StatusForbidden, "owner only")
		}
		return c.Next()
	}
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
