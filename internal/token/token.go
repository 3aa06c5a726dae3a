package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
)

// Cookie names the tokens travel under. The HTTP layer reads them; this
// package only cares about the token strings themselves.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Class distinguishes the two token kinds. Each class signs with its own
// secret, so an access token never verifies as a refresh token or vice versa.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims is the signed payload of a session token.
type Claims struct {
	UserID   int64    `json:"userId"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type Tokenizer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenizer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokenizer {
	return &Tokenizer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (t *Tokenizer) IssueAccessToken(userID int64, email, nickname string, roles []string) (string, error) {
	return t.issue(userID, email, nickname, roles, t.accessTTL, t.accessSecret)
}

func (t *Tokenizer) IssueRefreshToken(userID int64, email, nickname string, roles []string) (string, error) {
	return t.issue(userID, email, nickname, roles, t.refreshTTL, t.refreshSecret)
}

func (t *Tokenizer) issue(userID int64, email, nickname string, roles []string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Nickname: nickname,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString under the given class's secret and returns its
// claims. Expiry is reported as TOKEN_EXPIRED, every other verification
// failure as INVALID_TOKEN.
func (t *Tokenizer) Parse(tokenString string, class Class) (*Claims, error) {
	secret := t.accessSecret
	if class == ClassRefresh {
		secret = t.refreshSecret
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired().WithCause(err)
		}
		return nil, apperrors.InvalidToken("Token signature verification failed").WithCause(err)
	}
	if !parsed.Valid {
		return nil, apperrors.InvalidToken("Token is not valid")
	}

	return &claims, nil
}

// UserIDFromAccess extracts the numeric user id from a validated access token.
func (t *Tokenizer) UserIDFromAccess(tokenString string) (int64, error) {
	claims, err := t.Parse(tokenString, ClassAccess)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// EmailFromRefresh extracts the subject email from a validated refresh token.
func (t *Tokenizer) EmailFromRefresh(tokenString string) (string, error) {
	claims, err := t.Parse(tokenString, ClassRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
