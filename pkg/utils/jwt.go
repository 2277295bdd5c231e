package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// secretKey verifies user tokens issued by the storefront. Set once at startup.
var secretKey []byte

func SetSecret(key string) {
	secretKey = []byte(key)
}

var errNoToken = errors.New("no token found")

// Claims is the caller identity carried by a user token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT issues an HS256 user token. The API only verifies tokens; this
// exists for tooling and tests that need a valid caller.
func GenerateJWT(userID, email, role string, expiry time.Duration) (string, error) {
	if len(secretKey) == 0 {
		return "", errors.New("jwt secret not set")
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}).SignedString(secretKey)
}

// ValidateJWT verifies signature and expiry and returns the caller identity.
func ValidateJWT(tokenString string) (*Claims, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("jwt secret not set")
	}
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &tc, func(*jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return &Claims{UserID: tc.Subject, Email: tc.Email, Role: tc.Role}, nil
}

// ExtractClaims reads the bearer token, falling back to the accessToken cookie.
func ExtractClaims(r *http.Request) (*Claims, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		cookie, err := r.Cookie("accessToken")
		if err != nil || cookie.Value == "" {
			return nil, errNoToken
		}
		token = cookie.Value
	}
	return ValidateJWT(token)
}
