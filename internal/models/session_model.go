// Package models contains the models for the Tagbin API
package models

import (
	"time"
)

const SessionsTableName = "sessions"

// SessionModel maps a bearer token to its owning user. Expires is
// milliseconds since epoch; a session past its expiry is logically
// invalid even while the row still exists.
type SessionModel struct {
	SessionID string    `gorm:"primaryKey" json:"sessionid"`
	UserID    string    `gorm:"index" json:"userid"`
	Expires   int64     `json:"expires"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (SessionModel) TableName() string {
	return SessionsTableName
}

// ExpiredAt reports whether the session is past its expiry at the given instant
func (s *SessionModel) ExpiredAt(now time.Time) bool {
	return s.Expires < now.UnixMilli()
}

// ExpiryTime returns the expiry as a time.Time, for cookie stamping
func (s *SessionModel) ExpiryTime() time.Time {
	return time.UnixMilli(s.Expires)
}
