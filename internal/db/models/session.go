package models

import (
	"time"
)

// Session represents one browser session of an account, shown on the
// sessions page and revocable from there. SessionID doubles as the key of
// the fiber session store entry so revoking deletes both.
type Session struct {
	// ID is the unique identifier for the session row.
	ID uint64 `gorm:"primaryKey"`
	// SessionID is the opaque identifier stored in the session cookie.
	SessionID string `gorm:"unique;size:128;not null"`
	// UserID references the owning account.
	UserID uint64 `gorm:"index;not null"`
	// User is the owning account.
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	// ClientName is a human readable client description derived from the user agent.
	ClientName string `gorm:"size:255"`
	// UserAgent is the raw User-Agent header seen at login.
	UserAgent string `gorm:"size:512"`
	// RemoteIP is the client address seen at login.
	RemoteIP string `gorm:"size:64"`
	// LastSeenAt is the time of the last request carrying this session.
	LastSeenAt time.Time
	// CreatedAt is the timestamp when the session was created (managed by GORM).
	CreatedAt time.Time
}
