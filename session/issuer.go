package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Issuer signs tokens for standalone runs where there is no backend to
// sign in against. Any employee number is accepted; if Password is set it
// must match.
type Issuer struct {
	Secret   []byte
	Password string
	TTL      time.Duration
	Now      func() time.Time
}

type claims struct {
	EmpNo string `json:"emp_no"`
	jwt.RegisteredClaims
}

// SignIn returns an HS256 token for empNo and the employee number itself.
func (i *Issuer) SignIn(_ context.Context, empNo, password string) (string, string, error) {
	if empNo == "" || (i.Password != "" && password != i.Password) {
		return "", "", ErrInvalidCredentials
	}
	now := time.Now()
	if i.Now != nil {
		now = i.Now()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		EmpNo: empNo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   empNo,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	})
	signed, err := token.SignedString(i.Secret)
	if err != nil {
		return "", "", err
	}
	return signed, empNo, nil
}
