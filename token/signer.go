package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs and verifies session JWTs.
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	Verify(tokenString string) (jwt.MapClaims, error)
}

// ErrExpired is returned by Verify when the signature is valid but exp has passed.
var ErrExpired = errors.New("token expired")

// HMACSigner implements Signer using symmetric HMAC-SHA256
type HMACSigner struct {
	secret  []byte
	nowTime func() time.Time
}

type HMACOption func(*HMACSigner)

func WithNowTime(now func() time.Time) HMACOption {
	return func(h *HMACSigner) {
		h.nowTime = now
	}
}

func NewHMACSigner(secret string, opts ...HMACOption) *HMACSigner {
	h := &HMACSigner{
		secret:  []byte(secret),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACSigner) Verify(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, h.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.nowTime),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return claims, ErrExpired
	}
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	return claims, nil
}

func (h *HMACSigner) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
