package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// sessionCookieName is the cookie carrying the signed browser
	// session id.
	sessionCookieName = "session_id"
)

// SessionCookie signs and verifies browser session ids. The cookie
// value is an HS256 JWT so a forged or tampered id never reaches the
// session repo.
type SessionCookie struct {
	secret []byte
	maxAge int
}

func NewSessionCookie(secret string, maxAge int) *SessionCookie {
	return &SessionCookie{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// Issue creates a new session id and the signed cookie value for it.
func (c *SessionCookie) Issue() (sessionID, signed string, err error) {
	sessionID = uuid.New().String()

	now := time.Now()
	claims := jwt.MapClaims{
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(c.maxAge) * time.Second).Unix(),
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("SessionCookie.Issue SignedString: %w", err)
	}
	return sessionID, signed, nil
}

// Verify checks the signed cookie value and returns the session id.
func (c *SessionCookie) Verify(signed string) (string, error) {
	parsed, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("SessionCookie.Verify: invalid session cookie")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("SessionCookie.Verify: error extracting claims")
	}

	sessionID, _ := claims["sid"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("SessionCookie.Verify: missing session id claim")
	}
	return sessionID, nil
}

// ensureBrowserSession returns the session id from the request cookie,
// issuing a fresh session and setting the cookie when the request
// carries none (or an invalid one).
func (s *Server) ensureBrowserSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sessionID, err := s.cookies.Verify(cookie.Value); err == nil {
			return sessionID, nil
		}
		// Tampered or expired cookie: fall through and reissue.
	}

	sessionID, signed, err := s.cookies.Issue()
	if err != nil {
		return "", err
	}
	s.setSessionCookie(w, r, signed)
	return sessionID, nil
}

// browserSessionID returns the session id from the request cookie
// without issuing a new one.
func (s *Server) browserSessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sessionID, err := s.cookies.Verify(cookie.Value)
	if err != nil {
		return "", false
	}
	return sessionID, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, signed string) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.cookies.maxAge,
	})
}
