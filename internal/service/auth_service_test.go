package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/tagbin/tagbinapi/pkg/utils/idgen"
)

func newAuthFixture() (*AuthService, *fakeUserStore, *fakeSessionStore) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := NewAuthServiceWithStores(users, NewSessionServiceWithStores(sessions, users), DefaultSessionTTLMillis)
	return svc, users, sessions
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := CheckPassword("hunter22", hash)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Fatal("expected correct password to verify")
	}

	ok, err = CheckPassword("hunter23", hash)
	if err != nil {
		t.Fatalf("check wrong password: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashPasswordSaltsPerCall(t *testing.T) {
	first, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct digests for the same password")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if _, err := CheckPassword("hunter22", "not-a-bcrypt-digest"); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
}

func TestSignupIssuesUserAndSession(t *testing.T) {
	svc, users, _ := newAuthFixture()

	user, session, err := svc.Signup("alice", "hunter22", "203.0.113.7")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if len(user.UserID) != idgen.UserIDLength {
		t.Fatalf("expected user id length %d got %d", idgen.UserIDLength, len(user.UserID))
	}
	for _, r := range user.UserID {
		if r < '0' || r > '9' {
			t.Fatalf("user id contains non-digit %q", r)
		}
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("password stored in the clear")
	}
	if !user.HasIP("203.0.113.7") {
		t.Fatal("signup address not recorded")
	}
	if session == nil || session.UserID != user.UserID {
		t.Fatalf("expected session for new user, got %+v", session)
	}

	stored, err := users.GetUserByID(user.UserID)
	if err != nil || stored == nil {
		t.Fatalf("expected persisted user, got %v %v", stored, err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newAuthFixture()

	cases := []struct {
		username string
		password string
	}{
		{"ab", "hunter22"},                      // username too short
		{strings.Repeat("a", 17), "hunter22"},   // username too long
		{"al ice", "hunter22"},                  // whitespace in username
		{"alice", "1234"},                       // password too short
		{"alice", strings.Repeat("p", 33)},      // password too long
		{"alice", "pass word"},                  // whitespace in password
	}
	for _, tc := range cases {
		if _, _, err := svc.Signup(tc.username, tc.password, ""); !errors.Is(err, ErrInvalidCredentialFormat) {
			t.Fatalf("signup(%q, %q): expected format error got %v", tc.username, tc.password, err)
		}
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc, _, _ := newAuthFixture()

	if _, _, err := svc.Signup("alice", "hunter22", ""); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, _, err := svc.Signup("alice", "other-pass", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken got %v", err)
	}
}

func TestLoginSuccessRotatesSession(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, first, err := svc.Signup("alice", "hunter22", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, second, err := svc.Login("alice", "hunter22", "198.51.100.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("expected a fresh session token per login")
	}
	if !user.HasIP("198.51.100.4") {
		t.Fatal("login address not recorded")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _, _ := newAuthFixture()

	if _, _, err := svc.Signup("alice", "hunter22", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, _, unknownErr := svc.Login("nobody", "hunter22", "")
	_, _, wrongErr := svc.Login("alice", "wrong-pass", "")

	if !errors.Is(unknownErr, ErrLoginFailed) || !errors.Is(wrongErr, ErrLoginFailed) {
		t.Fatalf("expected identical failures, got %v and %v", unknownErr, wrongErr)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, session, err := svc.Signup("alice", "hunter22", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.Logout(session.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	ok, _, err := svc.Sessions().CheckAuthorization(session.SessionID)
	if err != nil {
		t.Fatalf("check after logout: %v", err)
	}
	if ok {
		t.Fatal("session still authorizes after logout")
	}

	if err := svc.Logout(session.SessionID); err != nil {
		t.Fatalf("repeat logout should be a no-op: %v", err)
	}
}

func TestObserveIPMonotone(t *testing.T) {
	svc, users, _ := newAuthFixture()

	user, _, err := svc.Signup("alice", "hunter22", "203.0.113.7")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.ObserveIP(user, "203.0.113.7"); err != nil {
		t.Fatalf("observe known ip: %v", err)
	}
	if err := svc.ObserveIP(user, "198.51.100.4"); err != nil {
		t.Fatalf("observe new ip: %v", err)
	}
	if err := svc.ObserveIP(user, ""); err != nil {
		t.Fatalf("observe empty ip: %v", err)
	}

	stored, _ := users.GetUserByID(user.UserID)
	if len(stored.IPs) != 2 {
		t.Fatalf("expected 2 recorded addresses got %v", stored.IPs)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuthFixture()

	user, _, err := svc.Signup("alice", "hunter22", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.ChangePassword(user, "x"); !errors.Is(err, ErrInvalidCredentialFormat) {
		t.Fatalf("expected format error got %v", err)
	}
	if err := svc.ChangePassword(user, "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, err := svc.Login("alice", "hunter22", ""); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, _, err := svc.Login("alice", "new-password", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
