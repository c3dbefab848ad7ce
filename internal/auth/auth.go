// Package auth provides the single-user login and signed session tokens.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionDuration is how long sessions last (7 days).
	SessionDuration = 7 * 24 * time.Hour
	// SessionTokenLength is the byte length of the random part of a token.
	SessionTokenLength = 16
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidSession is returned for a malformed, tampered or expired token.
	ErrInvalidSession = errors.New("invalid session")
)

// User represents the authenticated user.
type User struct {
	Username string
}

// Session is an issued session token.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSecret creates a random signing key.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}

// Service checks the configured credentials and issues stateless session
// tokens signed with HMAC-SHA256. Tokens have the form
// base64(username|expiry|nonce).base64(mac).
type Service struct {
	username     string
	passwordHash string
	secret       []byte
	now          func() time.Time
}

// NewService creates an auth service for one user.
func NewService(username, passwordHash string, secret []byte) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		secret:       secret,
		now:          time.Now,
	}
}

// Authenticate verifies username and password.
func (s *Service) Authenticate(username, password string) (*User, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := CheckPassword(password, s.passwordHash)
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	return &User{Username: s.username}, nil
}

// CreateSession issues a token for user.
func (s *Service) CreateSession(user *User) (*Session, error) {
	nonce := make([]byte, SessionTokenLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	expiresAt := s.now().Add(SessionDuration)
	payload := strings.Join([]string{
		user.Username,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString(nonce),
	}, "|")

	token := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(s.sign([]byte(payload)))

	return &Session{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks the signature and expiry of a token and returns
// its user.
func (s *Service) ValidateSession(token string) (*User, error) {
	encPayload, encMAC, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrInvalidSession
	}
	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return nil, ErrInvalidSession
	}
	mac, err := base64.RawURLEncoding.DecodeString(encMAC)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !hmac.Equal(mac, s.sign(payload)) {
		return nil, ErrInvalidSession
	}

	parts := strings.Split(string(payload), "|")
	if len(parts) != 3 || parts[0] != s.username {
		return nil, ErrInvalidSession
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || s.now().After(time.Unix(expires, 0)) {
		return nil, ErrInvalidSession
	}

	return &User{Username: parts[0]}, nil
}

func (s *Service) sign(payload []byte) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(payload)
	return m.Sum(nil)
}
