package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session tokens are short-lived; wallets re-sign to extend a session.
const tokenTTL = 24 * time.Hour

var (
	signingKey []byte

	ErrSigningKeyUnset = errors.New("auth: signing key not configured")
	ErrTokenInvalid    = errors.New("auth: token invalid")
)

// InitJWT sets the HMAC signing key used for session tokens. Must be called
// once at startup before any token is issued or checked.
func InitJWT(secret string) {
	signingKey = []byte(secret)
}

// Claims carries the session identity: the user's row id and the wallet the
// session was established for.
type Claims struct {
	UserID        uint   `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed session token for the given user and wallet.
func GenerateToken(userID uint, walletAddress string) (string, error) {
	if len(signingKey) == 0 {
		return "", ErrSigningKeyUnset
	}

	now := time.Now()
	claims := &Claims{
		UserID:        userID,
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks a session token's signature and expiry and returns its
// claims. The signing method is pinned to HMAC so a crafted token cannot
// downgrade verification.
func ValidateToken(tokenString string) (*Claims, error) {
	if len(signingKey) == 0 {
		return nil, ErrSigningKeyUnset
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
