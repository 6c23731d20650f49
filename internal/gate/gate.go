// Package gate implements the shared-secret screen protecting a demo
// deployment: answer checks, signed session tokens, and attempt limiting.
package gate

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is the issuer claim of gate session tokens.
	Issuer = "smartnotes-gate"

	defaultCookieName        = "smartnotes_gate"
	defaultSessionTTL        = 12 * time.Hour
	defaultAttemptsPerMinute = 5
	gateSubject              = "gate"
)

var (
	ErrMissingSigningSecret = errors.New("gate: signing secret required")
	ErrMissingToken         = errors.New("gate: token required")
	ErrInvalidToken         = errors.New("gate: invalid token")
	ErrExpiredToken         = errors.New("gate: token expired")
)

// Config describes the gate. An empty Answer disables it.
type Config struct {
	Answer            string
	SigningSecret     []byte
	CookieName        string
	SessionTTL        time.Duration
	AttemptsPerMinute int
	Clock             func() time.Time
}

// Gate checks answers and issues the session tokens that unlock the API.
type Gate struct {
	answer        string
	signingSecret []byte
	cookieName    string
	sessionTTL    time.Duration
	clock         func() time.Time
	attempts      *attemptLimiter
}

// New constructs a Gate. A signing secret is required when the gate is enabled.
func New(cfg Config) (*Gate, error) {
	answer := NormalizeAnswer(cfg.Answer)
	if answer != "" && len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	perMinute := cfg.AttemptsPerMinute
	if perMinute <= 0 {
		perMinute = defaultAttemptsPerMinute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Gate{
		answer:        answer,
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		cookieName:    cookieName,
		sessionTTL:    ttl,
		clock:         clock,
		attempts:      newAttemptLimiter(perMinute, clock),
	}, nil
}

// NormalizeAnswer lowercases, trims, and collapses whitespace runs to one space.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}

// Enabled reports whether the gate protects the API.
func (g *Gate) Enabled() bool {
	return g != nil && g.answer != ""
}

// CookieName returns the cookie carrying the session token.
func (g *Gate) CookieName() string {
	return g.cookieName
}

// SessionTTL returns the lifetime of issued tokens.
func (g *Gate) SessionTTL() time.Duration {
	return g.sessionTTL
}

// Check reports whether answer matches the configured answer.
func (g *Gate) Check(answer string) bool {
	if !g.Enabled() {
		return false
	}
	candidate := NormalizeAnswer(answer)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(g.answer)) == 1
}

// AllowAttempt consumes one answer attempt for the client identified by key.
func (g *Gate) AllowAttempt(key string) bool {
	return g.attempts.allow(key)
}

// Issue signs a session token and returns it with its expiry.
func (g *Gate) Issue() (string, time.Time, error) {
	if len(g.signingSecret) == 0 {
		return "", time.Time{}, ErrMissingSigningSecret
	}
	now := g.clock().UTC()
	expiresAt := now.Add(g.sessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   gateSubject,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(g.signingSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks a session token.
func (g *Gate) Validate(tokenString string) error {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return ErrMissingToken
	}
	if len(g.signingSecret) == 0 {
		return ErrMissingSigningSecret
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidToken, t.Method.Alg())
			}
			return g.signingSecret, nil
		},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(g.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid || claims.Subject != gateSubject {
		return ErrInvalidToken
	}
	return nil
}

// ValidateRequest validates the token carried by the gate cookie or an
// Authorization bearer header.
func (g *Gate) ValidateRequest(r *http.Request) error {
	if r == nil {
		return ErrMissingToken
	}
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		return g.Validate(cookie.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return g.Validate(token)
	}
	return ErrMissingToken
}
