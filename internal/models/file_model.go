// Package models contains the models for the Tagbin API
package models

import (
	"time"

	"github.com/lib/pq"
)

const FilesTableName = "files"

// Visibility tiers for a file. The scale is ordered: anything at
// VisibilityPublic or above is included in public tag listings.
const (
	VisibilityPrivate  = 0 // owner only
	VisibilityUnlisted = 1 // resolvable by direct link, excluded from listings
	VisibilityPublic   = 2 // publicly listed
)

// FileModel represents an uploaded file's metadata. The raw bytes live
// in the storage collaborator under the owner's directory.
type FileModel struct {
	FileID      string         `gorm:"primaryKey" json:"fileid"`
	UserID      string         `gorm:"index" json:"userid"`
	FileName    string         `json:"filename"`
	MimeType    *string        `json:"mimetype"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	FileSize    int64          `json:"filesize"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Visibility  int            `json:"visibility"`
	ShortURL    *string        `gorm:"uniqueIndex" json:"shorturl"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"-"`
}

func (FileModel) TableName() string {
	return FilesTableName
}

// ViewableBy reports whether the file itself may be resolved by the
// given requester (direct id or short url lookups). Listings use the
// stricter scoping applied in the repository query.
func (f *FileModel) ViewableBy(requesterID string) bool {
	if f.UserID == requesterID && requesterID != "" {
		return true
	}
	return f.Visibility >= VisibilityUnlisted
}
