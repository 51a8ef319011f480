package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================
// Entitlement tokens
// ============================================================

// TierClaims are the claims of an entitlement token. Tier uses the wire
// form of domain.Tier ("basic", "pay-per-service:oil-change", ...).
type TierClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

// EntitlementTokens signs and validates HS256 entitlement tokens issued by
// the billing side.
type EntitlementTokens struct {
	secret []byte
	issuer string
}

func NewEntitlementTokens(secret, issuer string) *EntitlementTokens {
	return &EntitlementTokens{secret: []byte(secret), issuer: issuer}
}

// Validate returns the tier carried by a token.
func (e *EntitlementTokens) Validate(tokenString string) (domain.Tier, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if e.issuer != "" {
		opts = append(opts, jwt.WithIssuer(e.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TierClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return e.secret, nil
	}, opts...)
	if err != nil {
		return domain.Tier{}, &domain.ErrUnauthorized{Message: "invalid or expired entitlement token"}
	}

	claims, ok := token.Claims.(*TierClaims)
	if !ok || !token.Valid {
		return domain.Tier{}, &domain.ErrUnauthorized{Message: "invalid entitlement token"}
	}
	if claims.Tier == "" {
		return domain.Tier{}, &domain.ErrUnauthorized{Message: "entitlement token has no tier"}
	}
	return domain.ParseTier(claims.Tier), nil
}

// Sign issues a token for subject. Used by local tooling and tests.
func (e *EntitlementTokens) Sign(subject string, tier domain.Tier, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TierClaims{
		Tier: tier.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    e.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
}
