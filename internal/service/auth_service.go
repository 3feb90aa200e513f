// Package service contains the service layer for the Tagbin API
package service

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/pkg/utils/idgen"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// bcryptCost is deliberately expensive to resist offline brute force
// while keeping interactive login in the tens-to-hundreds of
// milliseconds.
const bcryptCost = 10

// DefaultSessionTTLMillis is the lifetime of sessions issued on signup
// and login.
const DefaultSessionTTLMillis int64 = 3600000

// Usernames are 3-16 printable non-whitespace characters, passwords
// 5-32. The character class excludes newlines by construction.
var (
	usernamePattern = regexp.MustCompile(`^[!-~]{3,16}$`)
	passwordPattern = regexp.MustCompile(`^[!-~]{5,32}$`)
)

var (
	// ErrInvalidCredentialFormat covers malformed usernames/passwords at
	// signup. A validation error, recovered locally.
	ErrInvalidCredentialFormat = errors.New("invalid username or password format")
	// ErrUsernameTaken is returned at signup for a duplicate username
	ErrUsernameTaken = errors.New("user with same name already exists")
	// ErrLoginFailed is returned for both unknown-user and wrong-password
	// so login responses never reveal whether an account exists.
	ErrLoginFailed = errors.New("invalid username or password")
)

// UserStore is the persistence surface account management needs
type UserStore interface {
	UpsertUser(user *models.UserModel) error
	GetUserByID(userID string) (*models.UserModel, error)
	GetUserByUsername(username string) (*models.UserModel, error)
	UserIDExists(userID string) (bool, error)
}

// AuthService owns credential hashing/verification and the
// signup/login/logout flows.
type AuthService struct {
	users    UserStore
	sessions *SessionService
	ttl      int64
}

// NewAuthService creates a new service for account authentication
func NewAuthService(db *gorm.DB, redisClient *redis.Client, ttlMillis int64) *AuthService {
	users := repository.NewUserRepository(db, redisClient)
	sessions := NewSessionServiceWithStores(repository.NewSessionRepository(db), users)
	return NewAuthServiceWithStores(users, sessions, ttlMillis)
}

// NewAuthServiceWithStores wires explicit stores. Used by tests.
func NewAuthServiceWithStores(users UserStore, sessions *SessionService, ttlMillis int64) *AuthService {
	if ttlMillis <= 0 {
		ttlMillis = DefaultSessionTTLMillis
	}
	return &AuthService{users: users, sessions: sessions, ttl: ttlMillis}
}

// HashPassword produces a salted bcrypt digest. The salt is generated
// fresh per call and embedded in the output.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hashed), nil
}

// CheckPassword verifies a password against a stored digest in time
// independent of where a mismatch occurs. A wrong password returns
// false, never an error; an error means the stored hash is malformed.
func CheckPassword(password, passwordHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("malformed password hash: %v", err)
}

// Signup creates a new account and issues its first session. The
// observed client address seeds the account's IP set.
func (s *AuthService) Signup(username, password, ip string) (*models.UserModel, *models.SessionModel, error) {
	if !usernamePattern.MatchString(username) || !passwordPattern.MatchString(password) {
		return nil, nil, ErrInvalidCredentialFormat
	}

	existing, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrUsernameTaken
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	userID, err := idgen.Generate(idgen.DigitAlphabet, idgen.UserIDLength, s.users.UserIDExists)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate user id: %v", err)
	}

	user := &models.UserModel{
		UserID:          userID,
		Username:        username,
		PasswordHash:    passwordHash,
		IPs:             []string{},
		Frozen:          false,
		PermissionLevel: 0,
	}
	if ip != "" {
		user.IPs = append(user.IPs, ip)
	}
	if err := s.users.UpsertUser(user); err != nil {
		return nil, nil, fmt.Errorf("failed to persist user: %v", err)
	}

	session, err := s.sessions.CreateSession(user, s.ttl)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// Login verifies credentials and issues a new session. Unknown user
// and wrong password fail identically.
func (s *AuthService) Login(username, password, ip string) (*models.UserModel, *models.SessionModel, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrLoginFailed
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrLoginFailed
	}

	if err := s.ObserveIP(user, ip); err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.CreateSession(user, s.ttl)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// Logout revokes the session token, idempotently
func (s *AuthService) Logout(token string) error {
	return s.sessions.DeleteSession(token)
}

// ObserveIP records a newly-seen client address on the account. The
// set grows monotonically; nothing here ever prunes it.
func (s *AuthService) ObserveIP(user *models.UserModel, ip string) error {
	if ip == "" || user.HasIP(ip) {
		return nil
	}
	user.IPs = append(user.IPs, ip)
	return s.users.UpsertUser(user)
}

// ChangePassword rehashes and stores a new password for the user
func (s *AuthService) ChangePassword(user *models.UserModel, newPassword string) error {
	if !passwordPattern.MatchString(newPassword) {
		return ErrInvalidCredentialFormat
	}
	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return s.users.UpsertUser(user)
}

// Sessions exposes the underlying session service for callers that
// hold an AuthService.
func (s *AuthService) Sessions() *SessionService {
	return s.sessions
}
