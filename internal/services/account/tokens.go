package account

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "fleece-server"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// signToken creates a signed HMAC-SHA256 JWT for username.
func (s *Service) signToken(username, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":        username,
		"token_type": tokenType,
		"jti":        uuid.NewString(),
		"iss":        tokenIssuer,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseToken validates tokenString and returns its subject. The token must
// carry the wanted token_type.
func (s *Service) parseToken(tokenString, wantType string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}

	if tt, _ := claims["token_type"].(string); tt != wantType {
		return "", fmt.Errorf("token_type %q, want %q", tt, wantType)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
