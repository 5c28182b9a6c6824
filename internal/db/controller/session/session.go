// Package session provides CRUD operations for the account's browser sessions.
package session

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/db/models"
)

const (
	sessionIDQueryPattern = "session_id = ?"
	userIDQueryPattern    = "user_id = ?"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionIDEmpty is returned when a session ID parameter is empty.
	ErrSessionIDEmpty = errors.New("session id cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create records a new browser session for the given user.
func Create(db *gorm.DB, userID uint64, sessionID, clientName, userAgent, remoteIP string) (*models.Session, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if sessionID == "" {
		return nil, ErrSessionIDEmpty
	}

	s := &models.Session{
		SessionID:  sessionID,
		UserID:     userID,
		ClientName: clientName,
		UserAgent:  userAgent,
		RemoteIP:   remoteIP,
		LastSeenAt: time.Now().UTC(),
	}

	if result := db.Create(s); result.Error != nil {
		return nil, result.Error
	}

	return s, nil
}

// Get retrieves a session by its opaque session ID.
func Get(db *gorm.DB, sessionID string) (*models.Session, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if sessionID == "" {
		return nil, ErrSessionIDEmpty
	}

	var s models.Session

	result := db.Where(sessionIDQueryPattern, sessionID).First(&s)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}

		return nil, result.Error
	}

	return &s, nil
}

// ListForUser retrieves all sessions of a user, most recently seen first.
func ListForUser(db *gorm.DB, userID uint64) ([]models.Session, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sessions []models.Session

	result := db.Where(userIDQueryPattern, userID).Order("last_seen_at desc").Find(&sessions)
	if result.Error != nil {
		return nil, result.Error
	}

	return sessions, nil
}

// Touch updates the last-seen timestamp of a session.
func Touch(db *gorm.DB, sessionID string) error {
	if db == nil {
		return ErrDBNil
	}

	if sessionID == "" {
		return ErrSessionIDEmpty
	}

	result := db.Model(&models.Session{}).
		Where(sessionIDQueryPattern, sessionID).
		Update("last_seen_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Revoke deletes a session of the given user. The user scope prevents
// revoking another account's session.
func Revoke(db *gorm.DB, userID uint64, sessionID string) error {
	if db == nil {
		return ErrDBNil
	}

	if sessionID == "" {
		return ErrSessionIDEmpty
	}

	result := db.Where(sessionIDQueryPattern, sessionID).
		Where(userIDQueryPattern, userID).
		Delete(&models.Session{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// RevokeOthers deletes every session of the user except the current one and
// returns the revoked sessions so the caller can clear the session store.
func RevokeOthers(db *gorm.DB, userID uint64, currentSessionID string) ([]models.Session, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if currentSessionID == "" {
		return nil, ErrSessionIDEmpty
	}

	var victims []models.Session

	result := db.Where(userIDQueryPattern, userID).
		Where("session_id <> ?", currentSessionID).
		Find(&victims)
	if result.Error != nil {
		return nil, result.Error
	}

	if len(victims) == 0 {
		return nil, nil
	}

	result = db.Where(userIDQueryPattern, userID).
		Where("session_id <> ?", currentSessionID).
		Delete(&models.Session{})
	if result.Error != nil {
		return nil, result.Error
	}

	return victims, nil
}
