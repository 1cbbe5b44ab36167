package auth

import (
	"errors"
	"time"
)

const RoleOperator = "operator"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type AccessClaims struct {
	UserID    int64
	Role      string
	ExpiresAt time.Time
}
