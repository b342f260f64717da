package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const purposeAccess = "access"

var ErrInvalidToken = errors.New("invalid access token")

type Claims struct {
	AccountID uuid.UUID
	SessionID uuid.UUID
}

// * NewToken выпускает короткоживущий access токен, ссылающийся на сессию
func NewToken(session models.Session, ttl time.Duration, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     session.AccountID.String(),
		"sid":     session.ID.String(),
		"purpose": purposeAccess,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

func ParseToken(tokenStr, secret string) (Claims, error) {
	const op = "jwt.ParseToken"

	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if purpose, ok := claims["purpose"].(string); !ok || purpose != purposeAccess {
		return Claims{}, fmt.Errorf("%s: %w: invalid token purpose", op, ErrInvalidToken)
	}

	accountID, err := uuidClaim(claims, "sub")
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	sessionID, err := uuidClaim(claims, "sid")
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	return Claims{AccountID: accountID, SessionID: sessionID}, nil
}

func uuidClaim(claims jwt.MapClaims, name string) (uuid.UUID, error) {
	raw, ok := claims[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing %s claim", name)
	}

	return uuid.Parse(raw)
}
