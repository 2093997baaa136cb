package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, wrongly
// signed, or of the wrong kind. Callers see a single failure mode; they may
// use InspectKind separately for diagnostics.
var ErrInvalidToken = errors.New("invalid token")

// TokenKind distinguishes the two bearer token flavors.
type TokenKind string

const (
	// TokenKindAccess is the short-lived token presented on every request.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long-lived token exchanged for new access tokens.
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims holds the claims carried by both token kinds. Stamp is the
// user's security stamp at issue time; a token is only honored while it still
// matches the user's current stamp.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	Stamp     string `json:"stamp"`
	Kind      string `json:"kind"`
	SessionID string `json:"sid"`
}

// TokenProvider issues and validates HS256-signed bearer tokens. The issuing
// and validating parties are the same system, so expiry checks run with zero
// clock-skew tolerance.
type TokenProvider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given HMAC secret.
// Secrets shorter than 32 bytes are a configuration error.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	if len(secret) < 32 {
		return nil, ErrMissingKey
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenProvider{
		secret:     s,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Issue builds a signed token of the given kind for the user. The lifetime is
// the per-kind TTL fixed when the provider was constructed; callers never pick
// one per call. The user's current security stamp is embedded so stamp
// rotation invalidates the token. Returns the token string, its jti, and the
// expiry.
func (p *TokenProvider) Issue(userID, role, stamp, sessionID string, kind TokenKind) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	ttl := p.accessTTL
	if kind == TokenKindRefresh {
		ttl = p.refreshTTL
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:      role,
		Stamp:     stamp,
		Kind:      string(kind),
		SessionID: sessionID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	return token, jti, expiresAt, err
}

// Validate parses and validates a token (signature, exp with zero leeway, iss,
// aud) and checks it is of the expected kind. Every failure maps to
// ErrInvalidToken; parsing never panics or propagates library errors.
func (p *TokenProvider) Validate(tokenString string, expectedKind TokenKind) (*TokenClaims, error) {
	claims, err := p.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != string(expectedKind) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// InspectKind reports the kind claim of a token whose signature and expiry
// verify, without enforcing an expected kind. Returns "" and false for
// invalid tokens.
func (p *TokenProvider) InspectKind(tokenString string) (TokenKind, bool) {
	claims, err := p.parse(tokenString)
	if err != nil {
		return "", false
	}
	return TokenKind(claims.Kind), true
}

func (p *TokenProvider) parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&TokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return p.secret, nil
		},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewSecurityStamp returns a fresh random stamp value. Rotating a user's stamp
// invalidates every token issued under the previous value without enumerating
// them.
func NewSecurityStamp() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
