package service

import (
	"strings"

	"github.com/tagbin/tagbinapi/internal/models"
)

// fakeSessionStore is an in-memory SessionStore that counts lookups so
// tests can assert which tokens ever reach storage.
type fakeSessionStore struct {
	sessions map[string]models.SessionModel
	lookups  []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.SessionModel)}
}

func (f *fakeSessionStore) UpsertSession(session *models.SessionModel) error {
	f.sessions[session.SessionID] = *session
	return nil
}

func (f *fakeSessionStore) GetSessionByID(sessionID string) (*models.SessionModel, error) {
	f.lookups = append(f.lookups, sessionID)
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (f *fakeSessionStore) SessionExists(sessionID string) (bool, error) {
	_, ok := f.sessions[sessionID]
	return ok, nil
}

func (f *fakeSessionStore) DeleteSession(sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) DeleteExpired(nowMillis int64) (int64, error) {
	var removed int64
	for id, session := range f.sessions {
		if session.Expires < nowMillis {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// fakeUserStore is an in-memory UserStore / SessionUserStore
type fakeUserStore struct {
	users map[string]models.UserModel
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.UserModel)}
}

func (f *fakeUserStore) UpsertUser(user *models.UserModel) error {
	f.users[user.UserID] = *user
	return nil
}

func (f *fakeUserStore) GetUserByID(userID string) (*models.UserModel, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (f *fakeUserStore) GetUserByUsername(username string) (*models.UserModel, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Username, username) {
			match := user
			return &match, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UserIDExists(userID string) (bool, error) {
	_, ok := f.users[userID]
	return ok, nil
}

// fakeFileStore is an in-memory FileStore. Listing methods implement
// just enough filtering for the service tests.
type fakeFileStore struct {
	files map[string]models.FileModel
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string]models.FileModel)}
}

func (f *fakeFileStore) UpsertFile(file *models.FileModel) error {
	f.files[file.FileID] = *file
	return nil
}

func (f *fakeFileStore) GetFileByID(fileID string) (*models.FileModel, error) {
	file, ok := f.files[fileID]
	if !ok {
		return nil, nil
	}
	return &file, nil
}

func (f *fakeFileStore) GetFileByShortURL(shortURL string) (*models.FileModel, error) {
	for _, file := range f.files {
		if file.ShortURL != nil && *file.ShortURL == shortURL {
			match := file
			return &match, nil
		}
	}
	return nil, nil
}

func hasAllTags(file models.FileModel, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range file.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeFileStore) GetFilesByUserID(userID string, tags []string, page, pageSize int, publicOnly bool) ([]models.FileModel, error) {
	var out []models.FileModel
	for _, file := range f.files {
		if file.UserID != userID || !hasAllTags(file, tags) {
			continue
		}
		if publicOnly && file.Visibility < models.VisibilityPublic {
			continue
		}
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeFileStore) GetFilesByTags(tags []string, page, pageSize int, requesterID string) ([]models.FileModel, error) {
	var out []models.FileModel
	for _, file := range f.files {
		if !hasAllTags(file, tags) {
			continue
		}
		if file.UserID != requesterID && file.Visibility < models.VisibilityPublic {
			continue
		}
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeFileStore) CountFilesByUserID(userID string) (int64, error) {
	var count int64
	for _, file := range f.files {
		if file.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeFileStore) SumFileSizeByUserID(userID string) (int64, error) {
	var total int64
	for _, file := range f.files {
		if file.UserID == userID {
			total += file.FileSize
		}
	}
	return total, nil
}

func (f *fakeFileStore) FileIDExists(fileID string) (bool, error) {
	_, ok := f.files[fileID]
	return ok, nil
}

func (f *fakeFileStore) ShortURLExists(shortURL string) (bool, error) {
	file, err := f.GetFileByShortURL(shortURL)
	return file != nil, err
}
