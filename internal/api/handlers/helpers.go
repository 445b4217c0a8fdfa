package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v4"
)

// normalizeAddress lowercases and validates a wallet address. Returns ""
// when the input is not a hex address.
func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return ""
	}
	return strings.ToLower(address)
}

// issueSessionToken signs a short-lived token binding an address to a
// ledger row, echoed back by the client on session mutations.
func issueSessionToken(secret, address string, sessionID int) (string, error) {
	claims := jwt.MapClaims{
		"address":    address,
		"session_id": sessionID,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifySessionToken parses a session token and returns the bound
// address and session id.
func verifySessionToken(secret, token string) (string, int, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", 0, fmt.Errorf("invalid session token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", 0, fmt.Errorf("invalid session token claims")
	}
	address, _ := claims["address"].(string)
	sid, _ := claims["session_id"].(float64)
	if address == "" || sid <= 0 {
		return "", 0, fmt.Errorf("invalid session token claims")
	}
	return address, int(sid), nil
}

// bearerToken extracts a Bearer token from an Authorization header.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
