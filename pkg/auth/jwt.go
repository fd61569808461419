package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinicops/admissions/internal/config"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Actor is the authenticated staff member performing an admission action.
// Token issuance lives in the identity service; this package only validates
// access tokens so transitions can be attributed to an actor in the audit
// trail.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

type actorClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Verifier struct {
	cfg config.JWTConfig
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{cfg: cfg}
}

func (v *Verifier) VerifyAccessToken(tokenString string) (*Actor, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&actorClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(v.cfg.Secret), nil
		},
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*actorClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &Actor{
		ID:    actorID,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
