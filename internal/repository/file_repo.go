// Package repository contains the repository layer for the Tagbin API
package repository

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/tagbin/tagbinapi/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPageSize is the page size used when callers pass a
// non-positive value.
const DefaultPageSize = 8

// FileRepository is the database repository for file metadata
type FileRepository struct {
	DB *gorm.DB
}

// NewFileRepository creates a new repository for files
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{DB: db}
}

// UpsertFile upserts a file row into the database, keyed by file id
func (r *FileRepository) UpsertFile(file *models.FileModel) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "file_name", "mime_type", "tags", "file_size", "title", "description", "visibility", "short_url", "updated_at"}),
	}).Create(file).Error
}

// GetFileByID gets a file by file id. Returns (nil, nil) when absent.
func (r *FileRepository) GetFileByID(fileID string) (*models.FileModel, error) {
	var files []models.FileModel
	err := r.DB.Where("file_id = ?", fileID).Find(&files).Error
	if err != nil {
		return nil, err
	}
	if len(files) > 1 {
		return nil, fmt.Errorf("%w: %d files for file_id %s", ErrUniquenessViolation, len(files), fileID)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

// GetFileByShortURL gets a file by its short url alias. Returns
// (nil, nil) when absent.
func (r *FileRepository) GetFileByShortURL(shortURL string) (*models.FileModel, error) {
	var files []models.FileModel
	err := r.DB.Where("short_url = ?", shortURL).Find(&files).Error
	if err != nil {
		return nil, err
	}
	if len(files) > 1 {
		return nil, fmt.Errorf("%w: %d files for short_url %s", ErrUniquenessViolation, len(files), shortURL)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

// GetFilesByUserID returns one page of the owner's files matching the
// tag filter. Tags must already be normalized (lowercase, trimmed,
// non-empty); an empty filter matches everything. publicOnly restricts
// the listing to public files, for callers other than the owner.
func (r *FileRepository) GetFilesByUserID(userID string, tags []string, page, pageSize int, publicOnly bool) ([]models.FileModel, error) {
	query := r.DB.Model(&models.FileModel{}).Where("user_id = ?", userID)
	query = applyTagFilter(query, tags)
	if publicOnly {
		query = query.Where("visibility >= ?", models.VisibilityPublic)
	}

	var files []models.FileModel
	err := paginate(query, page, pageSize).Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// GetFilesByTags returns one page of files matching the tag filter,
// scoped by visibility: the requester sees public files plus their own;
// an empty requester id is the anonymous caller and sees only public
// files. The filter is a subset test against each file's tag set.
func (r *FileRepository) GetFilesByTags(tags []string, page, pageSize int, requesterID string) ([]models.FileModel, error) {
	query := r.DB.Model(&models.FileModel{})
	query = applyTagFilter(query, tags)

	if requesterID == "" {
		query = query.Where("visibility >= ?", models.VisibilityPublic)
	} else {
		query = query.Where("visibility >= ? OR user_id = ?", models.VisibilityPublic, requesterID)
	}

	var files []models.FileModel
	err := paginate(query, page, pageSize).Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// CountFilesByUserID returns the number of files owned by the user
func (r *FileRepository) CountFilesByUserID(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.FileModel{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count files for user %s: %v", userID, err)
	}
	return count, nil
}

// SumFileSizeByUserID returns the cumulative stored byte count of the
// user's files.
func (r *FileRepository) SumFileSizeByUserID(userID string) (int64, error) {
	var total *int64
	err := r.DB.Model(&models.FileModel{}).Where("user_id = ?", userID).
		Select("SUM(file_size)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes for user %s: %v", userID, err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// FileIDExists reports whether a file id is already taken. Used by the
// collision-retry id generator; always hits the database.
func (r *FileRepository) FileIDExists(fileID string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.FileModel{}).Where("file_id = ?", fileID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ShortURLExists reports whether a short url alias is already taken
func (r *FileRepository) ShortURLExists(shortURL string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.FileModel{}).Where("short_url = ?", shortURL).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyTagFilter adds the subset-match condition: the file's tag array
// must contain every requested tag. Extra tags on the file are
// irrelevant.
func applyTagFilter(query *gorm.DB, tags []string) *gorm.DB {
	if len(tags) == 0 {
		return query
	}
	return query.Where("tags @> ?", pq.StringArray(tags))
}

// paginate applies the stable deterministic order and the zero-based
// page window. The order is creation time with file_id as the fixed
// tiebreak, so repeated requests without intervening writes never
// reorder already-seen items.
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}
	return query.Order("created_at ASC, file_id ASC").
		Offset(page * pageSize).
		Limit(pageSize)
}
