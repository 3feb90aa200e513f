// Package repository contains the repository layer for the Tagbin API
package repository

import (
	"errors"

	"github.com/tagbin/tagbinapi/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository is the database repository for sessions
type SessionRepository struct {
	DB *gorm.DB
}

// NewSessionRepository creates a new repository for sessions
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// UpsertSession upserts a session into the database, keyed by session id
func (r *SessionRepository) UpsertSession(session *models.SessionModel) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "expires"}),
	}).Create(session).Error
}

// GetSessionByID gets a session by session id. Returns (nil, nil) when
// the session does not exist.
func (r *SessionRepository) GetSessionByID(sessionID string) (*models.SessionModel, error) {
	var session models.SessionModel
	err := r.DB.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// SessionExists reports whether a session id is already taken. Used by
// the collision-retry token generator; always hits the database.
func (r *SessionRepository) SessionExists(sessionID string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.SessionModel{}).Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteSession deletes a session by session id, idempotently
func (r *SessionRepository) DeleteSession(sessionID string) error {
	return r.DB.Where("session_id = ?", sessionID).Delete(&models.SessionModel{}).Error
}

// DeleteExpired deletes all sessions whose expiry has passed and
// returns the number of rows removed. Run by the periodic sweep.
func (r *SessionRepository) DeleteExpired(nowMillis int64) (int64, error) {
	result := r.DB.Where("expires < ?", nowMillis).Delete(&models.SessionModel{})
	return result.RowsAffected, result.Error
}
