package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const TokenTypeAccess = "access"

type Service interface {
	GenerateAccessToken(identity auth.Identity) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (*JWTService, error) {
	expiration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("parse access token expiration %q: %w", accessTokenExpirationTime, err)
	}

	return &JWTService{
		accessTokenExpiration: expiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}, nil
}

// GenerateAccessToken issues a token carrying the claims the API reads.
// Credentials are checked by the identity provider before this is called.
func (j *JWTService) GenerateAccessToken(identity auth.Identity) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()

	claims := map[string]interface{}{
		"user_id":    identity.UserID,
		"email":      identity.Email,
		"company_id": identity.CompanyID,
		"role":       string(identity.Role),
		"type":       TokenTypeAccess,
		"exp":        expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// IdentityFromContext reads the identity from the token that
// jwtauth.Verifier stored in ctx.
func IdentityFromContext(ctx context.Context) (auth.Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims validates the access token claims and maps them to an
// Identity.
func IdentityFromClaims(claims map[string]interface{}) (auth.Identity, error) {
	if tokenType, _ := claims["type"].(string); tokenType != TokenTypeAccess {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return auth.Identity{}, fmt.Errorf("%w: user_id", auth.ErrMissingClaims)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return auth.Identity{}, fmt.Errorf("%w: company_id", auth.ErrMissingClaims)
	}

	roleStr, _ := claims["role"].(string)
	role := user.Role(roleStr)
	if !role.IsValid() {
		return auth.Identity{}, fmt.Errorf("%w: role", auth.ErrMissingClaims)
	}

	email, _ := claims["email"].(string)

	return auth.Identity{
		UserID:    userID,
		CompanyID: companyID,
		Email:     email,
		Role:      role,
	}, nil
}
