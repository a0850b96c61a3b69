package authz

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

// Claims is the bearer token payload issued by the identity provider.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies HS256 bearer tokens. Issue exists for local tooling and tests.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for actor with the given roles.
func (s *TokenService) Issue(actor id.ActorID, roles []Role, now time.Time, ttl time.Duration) (string, error) {
	raw := make([]string, 0, len(roles))
	for _, r := range roles {
		raw = append(raw, string(r))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: raw,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Verify parses and validates a token, returning the principal it asserts.
func (s *TokenService) Verify(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	actor, err := id.ParseActorID(claims.Subject)
	if err != nil {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid actor")
	}
	roles := make([]Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, Role(r))
	}
	return Principal{ActorID: actor, Roles: roles}, nil
}
