package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/pkg/utils/idgen"
)

func newSessionFixture() (*SessionService, *fakeSessionStore, *fakeUserStore) {
	sessions := newFakeSessionStore()
	users := newFakeUserStore()
	return NewSessionServiceWithStores(sessions, users), sessions, users
}

func seedUser(users *fakeUserStore, userID string) *models.UserModel {
	user := &models.UserModel{UserID: userID, Username: "user-" + userID}
	users.UpsertUser(user)
	return user
}

func TestCreateSessionTokenFormat(t *testing.T) {
	svc, _, users := newSessionFixture()
	user := seedUser(users, "1001")

	session, err := svc.CreateSession(user, DefaultSessionTTLMillis)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(session.SessionID) != idgen.SessionIDLength {
		t.Fatalf("expected token length %d got %d", idgen.SessionIDLength, len(session.SessionID))
	}
	for _, r := range session.SessionID {
		if !strings.ContainsRune(idgen.AlnumAlphabet, r) {
			t.Fatalf("token contains non-alphanumeric character %q", r)
		}
	}
	if session.UserID != user.UserID {
		t.Fatalf("expected session owner %s got %s", user.UserID, session.UserID)
	}
}

func TestCheckAuthorizationValidSession(t *testing.T) {
	svc, _, users := newSessionFixture()
	user := seedUser(users, "1001")

	session, err := svc.CreateSession(user, DefaultSessionTTLMillis)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ok, got, err := svc.CheckAuthorization(session.SessionID)
	if err != nil {
		t.Fatalf("check authorization: %v", err)
	}
	if !ok {
		t.Fatal("expected live session to authorize")
	}
	if got == nil || got.UserID != user.UserID {
		t.Fatalf("expected user %s got %+v", user.UserID, got)
	}
}

func TestCheckAuthorizationMalformedTokensNeverReachStore(t *testing.T) {
	svc, sessions, _ := newSessionFixture()

	malformed := []string{
		"",
		"short",
		strings.Repeat("a", 127),
		strings.Repeat("a", 129),
		strings.Repeat("a", 127) + "!",
		strings.Repeat("a", 64) + " " + strings.Repeat("a", 63),
	}
	for _, token := range malformed {
		ok, user, err := svc.CheckAuthorization(token)
		if err != nil {
			t.Fatalf("token %q: unexpected error %v", token, err)
		}
		if ok || user != nil {
			t.Fatalf("token %q: expected (false, nil)", token)
		}
	}
	if len(sessions.lookups) != 0 {
		t.Fatalf("expected no store lookups for malformed tokens, got %v", sessions.lookups)
	}
}

func TestCheckAuthorizationUnknownToken(t *testing.T) {
	svc, _, _ := newSessionFixture()

	ok, user, err := svc.CheckAuthorization(strings.Repeat("a", 128))
	if err != nil {
		t.Fatalf("check authorization: %v", err)
	}
	if ok || user != nil {
		t.Fatal("expected (false, nil) for unknown token")
	}
}

func TestCheckAuthorizationExpiredSessionDeletedOnDiscovery(t *testing.T) {
	svc, sessions, users := newSessionFixture()
	user := seedUser(users, "1001")

	session, err := svc.CreateSession(user, -1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ok, got, err := svc.CheckAuthorization(session.SessionID)
	if err != nil {
		t.Fatalf("check authorization: %v", err)
	}
	if ok {
		t.Fatal("expired session must not authorize")
	}
	if got == nil || got.UserID != user.UserID {
		t.Fatalf("expected expired session to still report its user, got %+v", got)
	}
	if exists, _ := sessions.SessionExists(session.SessionID); exists {
		t.Fatal("expired session should be deleted on discovery")
	}

	// Second presentation: the session is gone, so no identity either
	ok, got, err = svc.CheckAuthorization(session.SessionID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if ok || got != nil {
		t.Fatal("expected (false, nil) after expiry deletion")
	}
}

func TestCheckAuthorizationMissingUser(t *testing.T) {
	svc, _, users := newSessionFixture()
	user := seedUser(users, "1001")

	session, err := svc.CreateSession(user, DefaultSessionTTLMillis)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	delete(users.users, user.UserID)

	_, _, err = svc.CheckAuthorization(session.SessionID)
	if !errors.Is(err, ErrSessionUserMissing) {
		t.Fatalf("expected ErrSessionUserMissing got %v", err)
	}
}

func TestDeleteSessionIdempotent(t *testing.T) {
	svc, _, users := newSessionFixture()
	user := seedUser(users, "1001")

	session, err := svc.CreateSession(user, DefaultSessionTTLMillis)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := svc.DeleteSession(session.SessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteSession(session.SessionID); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	ok, _, err := svc.CheckAuthorization(session.SessionID)
	if err != nil {
		t.Fatalf("check after delete: %v", err)
	}
	if ok {
		t.Fatal("revoked session must not authorize")
	}
}

func TestSweepExpired(t *testing.T) {
	svc, sessions, users := newSessionFixture()
	user := seedUser(users, "1001")

	expired, err := svc.CreateSession(user, -1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	live, err := svc.CreateSession(user, DefaultSessionTTLMillis)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	removed, err := svc.SweepExpired()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed got %d", removed)
	}
	if exists, _ := sessions.SessionExists(expired.SessionID); exists {
		t.Fatal("expired session survived the sweep")
	}
	if exists, _ := sessions.SessionExists(live.SessionID); !exists {
		t.Fatal("live session was swept")
	}
}
