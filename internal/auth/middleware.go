package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-billing/internal/domain"
	apperrors "github.com/spec-kit/ticket-billing/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Identity is asserted by the
// company identity service through the signed token; no directory lookup
// happens here since the staff and customer directories are external to this
// service.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Role        *domain.StaffRole
}

// AuthMiddleware validates bearer tokens and derives principals from claims.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.SubjectID == "" {
		return apperrors.NewUnauthorized("token missing subject")
	}

	switch claims.Subject {
	case domain.SubjectTypeUser, domain.SubjectTypeStaff:
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, &Principal{
		SubjectType: claims.Subject,
		SubjectID:   claims.SubjectID,
		Role:        claims.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
