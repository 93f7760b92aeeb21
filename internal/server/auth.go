package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/store"
)

// Roles carried in tokens.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Claims identify the caller. The subject is the user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID.
func IssueToken(secret, issuer, userID, role string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if role == "" {
		role = RoleStudent
	}
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature, expiry and issuer.
func ParseToken(secret, issuer, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// authenticate requires a bearer token and makes sure the caller has a
// user row and profile.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || raw == "" {
			fail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, raw)
		if err != nil {
			s.log.Debug("token rejected", zap.Error(err))
			fail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		if _, seen := s.knownUsers.Load(claims.Subject); !seen {
			err := s.deps.Profiles.EnsureUser(c.Request.Context(), store.User{
				ID:   claims.Subject,
				Name: claims.Name,
				Role: claims.Role,
			})
			if err != nil {
				s.fromError(c, err)
				return
			}
			s.knownUsers.Store(claims.Subject, struct{}{})
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != role {
			fail(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == RoleAdmin
}

// subject is the user a /me request acts on. Admins may pass ?user_id=.
func subject(c *gin.Context) string {
	if uid := c.Query("user_id"); uid != "" && isAdmin(c) {
		return uid
	}
	return c.GetString(ctxUserID)
}
