package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs HS256 access tokens for the login endpoint in
// standalone mode.
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewTokenIssuer(signingKey []byte, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{signingKey: signingKey, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue returns a signed token for the given subject. patientID may be empty
// for non-patient roles.
func (i *TokenIssuer) Issue(subject string, roles []string, patientID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Roles:     roles,
		PatientID: patientID,
	}
	if i.issuer != "" {
		claims.Issuer = i.issuer
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}
