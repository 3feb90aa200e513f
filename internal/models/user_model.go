// Package models contains the models for the Tagbin API
package models

import (
	"time"

	"github.com/lib/pq"
)

const UsersTableName = "users"

// UserModel represents a registered account
type UserModel struct {
	UserID          string         `gorm:"primaryKey" json:"userid"`
	Username        string         `gorm:"uniqueIndex" json:"username"`
	PasswordHash    string         `json:"-"`
	IPs             pq.StringArray `gorm:"type:text[]" json:"-"`
	Frozen          bool           `json:"frozen"`
	PermissionLevel int            `json:"permissionlevel"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"-"`
}

func (UserModel) TableName() string {
	return UsersTableName
}

// HasIP reports whether ip has been observed for this user before
func (u *UserModel) HasIP(ip string) bool {
	for _, known := range u.IPs {
		if known == ip {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user has elevated capability
func (u *UserModel) IsAdmin() bool {
	return u.PermissionLevel >= 5
}
