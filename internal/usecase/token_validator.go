package usecase

import (
	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/pkg/jwt"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   user.Role
}

// TokenValidator turns a bearer token into a Principal.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

type tokenValidatorImpl struct {
	jwtService *jwt.Service
}

func NewTokenValidator(jwtService *jwt.Service) TokenValidator {
	return &tokenValidatorImpl{
		jwtService: jwtService,
	}
}

func (t *tokenValidatorImpl) ValidateToken(tokenString string) (Principal, error) {
	claims, err := t.jwtService.ValidateToken(tokenString)
	if err != nil {
		return Principal{}, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return Principal{}, jwt.ErrInvalidToken
	}
	role, err := user.NewRole(claims.Role)
	if err != nil {
		return Principal{}, err
	}

	return Principal{UserID: userID, Role: role}, nil
}
