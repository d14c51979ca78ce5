package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "sante/pkg/domain-errors"
)

const (
	PurposeAccess        = "access"
	PurposePasswordReset = "password_reset"
)

// Claims is the token payload. user_id, role, permissions and exp are part of
// the public contract; clients read them without calling back.
type Claims struct {
	UserID      string   `json:"user_id"`
	Identifier  string   `json:"identifier"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Purpose     string   `json:"purpose"`
	jwt.RegisteredClaims
}

// Identity is what gets signed into an access token.
type Identity struct {
	UserID      uuid.UUID
	Identifier  string
	Role        string
	Permissions []string
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

type Option func(*JWTService)

// WithClock sets the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTService(signingKey string, issuer string, audience string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken signs an access token for id valid for expiresIn.
func (s *JWTService) GenerateAccessToken(id Identity, expiresIn time.Duration) (string, *Claims, error) {
	return s.sign(Claims{
		UserID:      id.UserID.String(),
		Identifier:  id.Identifier,
		Role:        id.Role,
		Permissions: id.Permissions,
		Purpose:     PurposeAccess,
	}, expiresIn)
}

// GeneratePasswordResetToken signs a single-purpose reset token. It carries
// no permissions and is refused by ValidateAccessToken.
func (s *JWTService) GeneratePasswordResetToken(userID uuid.UUID, identifier string, expiresIn time.Duration) (string, *Claims, error) {
	return s.sign(Claims{
		UserID:     userID.String(),
		Identifier: identifier,
		Purpose:    PurposePasswordReset,
	}, expiresIn)
}

func (s *JWTService) sign(claims Claims, expiresIn time.Duration) (string, *Claims, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", nil, err
	}
	return signedToken, &claims, nil
}

func (s *JWTService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return s.signingKey, nil
}

// ValidateToken verifies signature, issuer, audience and expiry.
// Expired tokens yield CodeExpiredToken; anything else CodeInvalidToken.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpiredToken, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token claims")
	}

	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeAccess {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	return claims, nil
}

// ValidatePasswordResetToken is ValidateToken restricted to reset tokens.
func (s *JWTService) ValidatePasswordResetToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposePasswordReset {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid reset token")
	}
	return claims, nil
}

// ParseIgnoringExpiry checks the signature and algorithm but skips every
// time-based claim. Refresh uses it to accept expired access tokens.
func (s *JWTService) ParseIgnoringExpiry(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	if claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	return claims, nil
}

// ExtractUserIDFromToken validates an access token and returns its subject.
func (s *JWTService) ExtractUserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(claims.UserID)
}
