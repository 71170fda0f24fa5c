package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/requestcontext"
)

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewJWTService(signingKey, issuer, audience string, ttl time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// TTL returns the configured token lifetime.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// GenerateAccessToken signs a bearer token carrying the user's identity and
// role, a unique jti, and the configured expiry.
func (s *JWTService) GenerateAccessToken(ident requestcontext.UserIdentity, now time.Time) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: ident.UserID.String(),
		Email:  ident.Email,
		Name:   ident.Name,
		Role:   ident.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and verifies a token, rejecting wrong algorithms,
// bad signatures, and expired tokens.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Identity validates a token and maps its claims onto the typed identity
// used by the middleware and services. Claims never reach handlers as a raw
// map.
func (s *JWTService) Identity(tokenString string) (requestcontext.UserIdentity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.UserIdentity{}, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return requestcontext.UserIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.UserIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return requestcontext.UserIdentity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   role,
	}, nil
}
