// Package service contains the service layer for the Tagbin API
package service

import (
	"strings"

	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/repository"
	"gorm.io/gorm"
)

// FileStore is the persistence surface the file/search services need
type FileStore interface {
	UpsertFile(file *models.FileModel) error
	GetFileByID(fileID string) (*models.FileModel, error)
	GetFileByShortURL(shortURL string) (*models.FileModel, error)
	GetFilesByUserID(userID string, tags []string, page, pageSize int, publicOnly bool) ([]models.FileModel, error)
	GetFilesByTags(tags []string, page, pageSize int, requesterID string) ([]models.FileModel, error)
	CountFilesByUserID(userID string) (int64, error)
	SumFileSizeByUserID(userID string) (int64, error)
	FileIDExists(fileID string) (bool, error)
	ShortURLExists(shortURL string) (bool, error)
}

// SearchService resolves tag queries into visibility-scoped,
// paginated result sets.
type SearchService struct {
	files FileStore
}

// NewSearchService creates a new service for tag search
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{files: repository.NewFileRepository(db)}
}

// NewSearchServiceWithStore wires an explicit file store. Used by tests.
func NewSearchServiceWithStore(files FileStore) *SearchService {
	return &SearchService{files: files}
}

// NormalizeTags lowercases and trims each tag and drops empties.
// Matching is case-insensitive because the same normalization is
// applied at write time.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}

// ParseTagFilter splits a raw client query into a normalized tag
// filter. Tags may be separated by commas or whitespace; an empty
// query yields an empty filter, which matches every file.
func ParseTagFilter(raw string) []string {
	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	return NormalizeTags(split)
}

// Search returns one page of files matching the raw tag query, scoped
// to what requesterID may see. An empty requester id is the anonymous
// caller and sees only public files. An empty result slice signals
// no-match or exhausted pagination.
func (s *SearchService) Search(requesterID, rawQuery string, page int) ([]models.FileModel, error) {
	tags := ParseTagFilter(rawQuery)
	files, err := s.files.GetFilesByTags(tags, page, repository.DefaultPageSize, requesterID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.FileModel{}
	}
	return files, nil
}

// SearchUser returns one page of one user's files matching the raw tag
// query. The owner sees everything; anyone else sees only public
// entries.
func (s *SearchService) SearchUser(ownerID, requesterID, rawQuery string, page int) ([]models.FileModel, error) {
	tags := ParseTagFilter(rawQuery)
	publicOnly := requesterID != ownerID
	files, err := s.files.GetFilesByUserID(ownerID, tags, page, repository.DefaultPageSize, publicOnly)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.FileModel{}
	}
	return files, nil
}
