package http

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/golang-jwt/jwt/v5"
)

type actorKey struct{}

// Actor is the authenticated staff member behind a request.
type Actor struct {
	Email string
	Role  domain.Role
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Authz resolves bearer tokens to staff roles.
type Authz struct {
	secret []byte
	issuer string
	staff  interfaces.StaffRepository
	logger logger.Logger
}

func NewAuthz(secret, issuer string, staff interfaces.StaffRepository, logger logger.Logger) *Authz {
	return &Authz{secret: []byte(secret), issuer: issuer, staff: staff, logger: logger}
}

// Require checks the JWT, resolves its email through staff_users and lets
// the request through when the role is one of roles. With no roles listed
// any resolved role, including none, is accepted.
func (a *Authz) Require(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(w, "invalid_request", "missing bearer token")
			return
		}

		email, err := a.email(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(w, "invalid_token", err.Error())
			return
		}

		role, err := a.staff.RoleByEmail(r.Context(), email)
		if err != nil {
			a.logger.Error("role_lookup_failed", "Failed to resolve staff role", requestIDFrom(r.Context()), map[string]interface{}{
				"email": email,
			}, err)
			writeError(w, http.StatusServiceUnavailable, "identity lookup failed")
			return
		}

		if len(roles) > 0 && !slices.Contains(roles, role) {
			forbidden(w, "insufficient_scope", "role "+string(role)+" may not access this resource")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, Actor{Email: email, Role: role})
		next(w, r.WithContext(ctx))
	}
}

func (a *Authz) email(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second), // small clock skew
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenRequiredClaimMissing
	}
	return sub, nil
}

func unauth(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": code, "error_description": desc})
}

func forbidden(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	writeJSON(w, http.StatusForbidden, map[string]string{"error": code, "error_description": desc})
}
