// Package service contains the service layer for the Tagbin API
package service

import (
	"errors"
	"fmt"
	"io"

	"github.com/tagbin/tagbinapi/internal/mimetypes"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/pkg/utils/idgen"
	"gorm.io/gorm"
)

// MaxUploadBytes is the hard upload cap. The transport layer drops the
// connection for anything past it rather than buffering.
const MaxUploadBytes int64 = 1_000_000_000

// FileQuota is the file-count limit for accounts without elevated
// permissions.
const FileQuota = 255

var (
	// ErrFileQuotaExceeded is returned when an unprivileged account is at
	// its file-count limit.
	ErrFileQuotaExceeded = errors.New("exceeded file limit")
	// ErrUploadTooLarge is returned for uploads past the hard cap
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

// ByteSink persists raw upload bytes before the metadata row is
// committed, so metadata is never queryable for nonexistent content.
type ByteSink interface {
	Write(ownerUserID, fileID string, src io.Reader) (int64, error)
}

// UploadParams carries the parsed upload form fields
type UploadParams struct {
	FileName    string
	MimeType    *string
	Size        int64
	Title       string
	Description string
	Tags        []string
	Visibility  int
	WantShort   bool
}

// FileService owns upload completion and file resolution
type FileService struct {
	files FileStore
	bytes ByteSink
}

// NewFileService creates a new service for files
func NewFileService(db *gorm.DB, bytes ByteSink) *FileService {
	return &FileService{files: repository.NewFileRepository(db), bytes: bytes}
}

// NewFileServiceWithStores wires explicit stores. Used by tests.
func NewFileServiceWithStores(files FileStore, bytes ByteSink) *FileService {
	return &FileService{files: files, bytes: bytes}
}

// Upload completes an upload for the owner: enforces quota and size
// limits, durably writes the bytes, then commits the metadata row.
// The byte write strictly precedes the row upsert.
func (s *FileService) Upload(owner *models.UserModel, params UploadParams, src io.Reader) (*models.FileModel, error) {
	if params.Size > MaxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	if owner.PermissionLevel < 1 {
		count, err := s.files.CountFilesByUserID(owner.UserID)
		if err != nil {
			return nil, err
		}
		if count >= FileQuota {
			return nil, ErrFileQuotaExceeded
		}
	}

	fileID, err := idgen.Generate(idgen.AlnumAlphabet, idgen.FileIDLength, s.files.FileIDExists)
	if err != nil {
		return nil, fmt.Errorf("failed to generate file id: %v", err)
	}

	written, err := s.bytes.Write(owner.UserID, fileID, io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to store file bytes: %v", err)
	}
	if written > MaxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	var shortURL *string
	if params.WantShort {
		alias, err := idgen.Generate(idgen.AlnumAlphabet, idgen.ShortURLLength, s.files.ShortURLExists)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short url: %v", err)
		}
		shortURL = &alias
	}

	title := params.Title
	if title == "" {
		title = params.FileName
	}

	file := &models.FileModel{
		FileID:      fileID,
		UserID:      owner.UserID,
		FileName:    params.FileName,
		MimeType:    mimetypes.Sanitize(params.MimeType),
		Tags:        NormalizeTags(params.Tags),
		FileSize:    written,
		Title:       title,
		Description: params.Description,
		Visibility:  params.Visibility,
		ShortURL:    shortURL,
	}
	if err := s.files.UpsertFile(file); err != nil {
		return nil, fmt.Errorf("failed to persist file: %v", err)
	}

	return file, nil
}

// UpdateMetadata applies tag/visibility/title/description edits to an
// existing file. Tags are normalized at write so query-time matching
// stays case-insensitive.
func (s *FileService) UpdateMetadata(file *models.FileModel, tags []string, visibility int, title, description string) error {
	file.Tags = NormalizeTags(tags)
	file.Visibility = visibility
	file.Title = title
	file.Description = description
	return s.files.UpsertFile(file)
}

// Resolve finds a file by id, falling back to short url, and applies
// the direct-resolution visibility rule: private files resolve only
// for their owner; unlisted and public files resolve for anyone with
// the link. Returns (nil, nil) when absent or hidden — callers must
// not distinguish the two.
func (s *FileService) Resolve(idOrShort, requesterID string) (*models.FileModel, error) {
	file, err := s.files.GetFileByID(idOrShort)
	if err != nil {
		return nil, err
	}
	if file == nil {
		file, err = s.files.GetFileByShortURL(idOrShort)
		if err != nil {
			return nil, err
		}
	}
	if file == nil || !file.ViewableBy(requesterID) {
		return nil, nil
	}
	return file, nil
}

// ListByOwner returns one page of the owner's files matching the tag
// filter, regardless of visibility.
func (s *FileService) ListByOwner(ownerID string, tags []string, page, pageSize int) ([]models.FileModel, error) {
	return s.files.GetFilesByUserID(ownerID, NormalizeTags(tags), page, pageSize, false)
}

// CountByOwner returns the owner's file count
func (s *FileService) CountByOwner(ownerID string) (int64, error) {
	return s.files.CountFilesByUserID(ownerID)
}

// StorageUsedByOwner returns the owner's cumulative stored byte count
func (s *FileService) StorageUsedByOwner(ownerID string) (int64, error) {
	return s.files.SumFileSizeByUserID(ownerID)
}
