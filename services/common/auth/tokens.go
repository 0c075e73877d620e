package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenPair is returned on sign-in, sign-up and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Identity is what a validated token says about its bearer.
type Identity struct {
	UserID  string
	Email   string
	Role    string
	Type    string
	TokenID string
}

// TokenIssuer signs and validates HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not configured")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}, nil
}

// Issue creates an access/refresh pair. The refresh token carries a unique jti.
func (t *TokenIssuer) Issue(userID, email, role string) (*TokenPair, error) {
	access, err := t.sign(userID, email, role, TypeAccess, t.accessTTL, "")
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(userID, email, role, TypeRefresh, t.refreshTTL, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL.Seconds()),
	}, nil
}

// Parse validates tokenStr. If expectedType is non-empty the "typ" claim must match.
func (t *TokenIssuer) Parse(tokenStr, expectedType string) (*Identity, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	id := &Identity{}
	id.UserID, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	id.Type, _ = claims["typ"].(string)
	id.TokenID, _ = claims["jti"].(string)

	if id.UserID == "" {
		return nil, ErrInvalidToken
	}
	if expectedType != "" && id.Type != expectedType {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}
	return id, nil
}

func (t *TokenIssuer) sign(userID, email, role, tokenType string, ttl time.Duration, tokenID string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"typ":   tokenType,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if tokenID != "" {
		claims["jti"] = tokenID
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}
