// Package user provides CRUD operations for console accounts.
package user

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/db/models"
)

const (
	usernameQueryPattern = "username = ?"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when a username parameter is empty.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByID retrieves a user by ID.
func GetByID(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	result := db.First(&u, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, result.Error
	}

	return &u, nil
}

// GetByUsername retrieves a user by username.
func GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if username == "" {
		return nil, ErrUsernameEmpty
	}

	var u models.User

	result := db.Where(usernameQueryPattern, username).First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, result.Error
	}

	return &u, nil
}

// UpdateProfile updates the profile fields of a user.
func UpdateProfile(db *gorm.DB, id uint64, displayName, email string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"display_name": displayName,
		"email":        email,
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash of a user.
func UpdatePassword(db *gorm.DB, id uint64, passwordHash string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("password", passwordHash)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetTOTP stores the two-factor secret and enabled flag of a user. An empty
// secret with enabled=false disables two-factor authentication.
func SetTOTP(db *gorm.DB, id uint64, secret string, enabled bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"totp_secret":  secret,
		"totp_enabled": enabled,
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
