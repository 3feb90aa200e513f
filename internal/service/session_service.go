// Package service contains the service layer for the Tagbin API
package service

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/pkg/utils/idgen"
	"gorm.io/gorm"
)

// ErrSessionUserMissing indicates a session row whose owning user does
// not exist. A session must never outlive its user, so this is an
// internal-consistency failure, not a normal authorization denial.
var ErrSessionUserMissing = errors.New("session found but user is missing")

// sessionTokenPattern is the bearer token format: exactly 128
// alphanumeric characters. Anything else is rejected before any
// storage lookup. Anchored so valid characters embedded in garbage do
// not pass.
var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{128}$`)

// SessionStore is the persistence surface the session lifecycle needs
type SessionStore interface {
	UpsertSession(session *models.SessionModel) error
	GetSessionByID(sessionID string) (*models.SessionModel, error)
	SessionExists(sessionID string) (bool, error)
	DeleteSession(sessionID string) error
	DeleteExpired(nowMillis int64) (int64, error)
}

// SessionUserStore resolves session owners
type SessionUserStore interface {
	GetUserByID(userID string) (*models.UserModel, error)
}

// SessionService owns the bearer-token lifecycle: issuance with
// collision retry, the check-then-sweep expiry pattern, and explicit
// revocation.
type SessionService struct {
	sessions SessionStore
	users    SessionUserStore
	now      func() time.Time
}

// NewSessionService creates a new service for sessions
func NewSessionService(db *gorm.DB, redisClient *redis.Client) *SessionService {
	return &SessionService{
		sessions: repository.NewSessionRepository(db),
		users:    repository.NewUserRepository(db, redisClient),
		now:      time.Now,
	}
}

// NewSessionServiceWithStores wires explicit stores. Used by tests and
// by callers that already hold repositories.
func NewSessionServiceWithStores(sessions SessionStore, users SessionUserStore) *SessionService {
	return &SessionService{sessions: sessions, users: users, now: time.Now}
}

// CreateSession issues a new bearer token for the user, valid for
// ttlMillis. The token is persisted before it is returned; the
// generator retries on collision against the authoritative store.
func (s *SessionService) CreateSession(user *models.UserModel, ttlMillis int64) (*models.SessionModel, error) {
	if user == nil {
		return nil, fmt.Errorf("cannot create session for unknown user")
	}

	sessionID, err := idgen.Generate(idgen.AlnumAlphabet, idgen.SessionIDLength, s.sessions.SessionExists)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %v", err)
	}

	session := &models.SessionModel{
		SessionID: sessionID,
		UserID:    user.UserID,
		Expires:   s.now().UnixMilli() + ttlMillis,
	}
	if err := s.sessions.UpsertSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %v", err)
	}

	return session, nil
}

// CheckAuthorization resolves a bearer token to its user.
//
// Returns (false, nil) for tokens that are malformed or unknown, and
// (false, user) for a session that exists but has expired — the user
// identity is still reported so callers can log who failed without a
// second lookup. An expired session is deleted on discovery; the
// periodic sweep covers sessions nobody presents again.
func (s *SessionService) CheckAuthorization(token string) (bool, *models.UserModel, error) {
	// Format pre-check: clearly-invalid tokens never reach storage
	if !sessionTokenPattern.MatchString(token) {
		return false, nil, nil
	}

	session, err := s.sessions.GetSessionByID(token)
	if err != nil {
		return false, nil, err
	}
	if session == nil {
		return false, nil, nil
	}

	user, err := s.users.GetUserByID(session.UserID)
	if err != nil {
		return false, nil, err
	}
	if user == nil {
		return false, nil, fmt.Errorf("%w: session %s... user %s", ErrSessionUserMissing, token[:8], session.UserID)
	}

	if session.ExpiredAt(s.now()) {
		if err := s.sessions.DeleteSession(token); err != nil {
			return false, user, err
		}
		return false, user, nil
	}

	return true, user, nil
}

// GetSession returns the session for a token, or nil when absent
func (s *SessionService) GetSession(token string) (*models.SessionModel, error) {
	if !sessionTokenPattern.MatchString(token) {
		return nil, nil
	}
	return s.sessions.GetSessionByID(token)
}

// DeleteSession revokes a session (logout). Idempotent: revoking an
// absent token is not an error.
func (s *SessionService) DeleteSession(token string) error {
	if !sessionTokenPattern.MatchString(token) {
		return nil
	}
	return s.sessions.DeleteSession(token)
}

// SweepExpired deletes all sessions past their expiry and returns the
// number removed. Run by the cron sweep independently of request
// traffic.
func (s *SessionService) SweepExpired() (int64, error) {
	return s.sessions.DeleteExpired(s.now().UnixMilli())
}
