package blob

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues and checks URL signatures. Signatures name a single key and
// never expire, so a stored URL stays valid for as long as the object exists.
type Signer struct {
	secret []byte
}

// NewSigner returns a signer using an HMAC secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the signature for key.
func (s *Signer) Sign(key string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: key})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks that sig was issued by this signer for key.
func (s *Signer) Verify(key, sig string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(sig, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}
	if !token.Valid || claims.Subject != key {
		return fmt.Errorf("signature does not match key")
	}
	return nil
}
