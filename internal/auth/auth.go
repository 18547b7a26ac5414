package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tapeo-pos/server/internal/config"
)

const CookieName = "auth_token"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service struct {
	secret      []byte
	adminUser   string
	adminHash   []byte
	apiKey      string
	ttl         time.Duration
	renewWithin time.Duration
	secure      bool
	now         func() time.Time
}

func NewService(cfg config.AuthConfig, production bool) *Service {
	return &Service{
		secret:      []byte(cfg.JWTSecret),
		adminUser:   cfg.AdminUser,
		adminHash:   []byte(cfg.AdminPasswordHash),
		apiKey:      cfg.APIKey,
		ttl:         30 * 24 * time.Hour,
		renewWithin: 7 * 24 * time.Hour,
		secure:      production,
		now:         time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login checks the admin credentials and returns a fresh session
// token.
func (s *Service) Login(username, password string) (string, error) {
	if username != s.adminUser {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(username)
}

// Validate parses a session token and returns its subject and expiry.
func (s *Service) Validate(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

// ShouldRenew reports whether a valid token is close enough to expiry
// for the sliding-session renewal to kick in.
func (s *Service) ShouldRenew(expires time.Time) bool {
	return expires.Sub(s.now()) < s.renewWithin
}

func (s *Service) issue(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return token, nil
}

// SetSessionCookie writes the httpOnly session cookie.
func (s *Service) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (s *Service) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware authenticates a request either by session cookie or by
// the static machine API key (x-api-key header, or apiKey query
// parameter for EventSource clients which cannot set headers). A
// session under 7 days from expiry is silently renewed.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "" && key == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.URL.Query().Get("apiKey"); key != "" && key == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil {
			unauthorized(w)
			return
		}

		subject, expires, err := s.Validate(cookie.Value)
		if err != nil {
			unauthorized(w)
			return
		}

		if s.ShouldRenew(expires) {
			token, err := s.issue(subject)
			if err != nil {
				log.Error().Err(err).Msg("Failed to renew session token")
			} else {
				s.SetSessionCookie(w, token)
			}
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}
