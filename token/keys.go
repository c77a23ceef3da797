package token

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is the public half of an RSA signing key
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// RSAKeyPair signs RS256 tokens and publishes its public key as a JWK. It stands in for
// an external issuer: the remote backend's hosted service and OAuth identity providers.
type RSAKeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

func GenerateRSAKeyPair(keyID string) (*RSAKeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate RSA key")
	}
	return &RSAKeyPair{KeyID: keyID, PrivateKey: privateKey}, nil
}

func (kp *RSAKeyPair) Sign(claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = kp.KeyID
	signed, err := t.SignedString(kp.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with RSA key")
	}
	return signed, nil
}

func (kp *RSAKeyPair) JWKS() JWKS {
	pub := kp.PrivateKey.PublicKey
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Kid: kp.KeyID,
		Alg: jwt.SigningMethodRS256.Alg(),
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}
