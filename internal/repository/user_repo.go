// Package repository contains the repository layer for the Tagbin API
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const userCacheTTL = 5 * time.Minute

// cachedUser is the redis representation of a user. UserModel's own
// JSON projection strips password_hash and ips for client responses,
// so the cache needs its own complete encoding.
type cachedUser struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"password_hash"`
	IPs             []string  `json:"ips"`
	Frozen          bool      `json:"frozen"`
	PermissionLevel int       `json:"permission_level"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *cachedUser) toModel() *models.UserModel {
	return &models.UserModel{
		UserID:          c.UserID,
		Username:        c.Username,
		PasswordHash:    c.PasswordHash,
		IPs:             c.IPs,
		Frozen:          c.Frozen,
		PermissionLevel: c.PermissionLevel,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromModel(user *models.UserModel) *cachedUser {
	return &cachedUser{
		UserID:          user.UserID,
		Username:        user.Username,
		PasswordHash:    user.PasswordHash,
		IPs:             user.IPs,
		Frozen:          user.Frozen,
		PermissionLevel: user.PermissionLevel,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

// UserRepository is the database repository for users, with an optional
// redis read-through cache keyed by user id. The cache is invalidated
// on every write and is never consulted by uniqueness checks.
type UserRepository struct {
	DB          *gorm.DB
	redisClient *redis.Client
}

// NewUserRepository creates a new repository for users
func NewUserRepository(db *gorm.DB, redisClient *redis.Client) *UserRepository {
	return &UserRepository{DB: db, redisClient: redisClient}
}

// UpsertUser upserts a user into the database, keyed by user id, and
// invalidates the cache entry.
func (r *UserRepository) UpsertUser(user *models.UserModel) error {
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "password_hash", "ips", "frozen", "permission_level", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return err
	}
	r.invalidateCache(user.UserID)
	return nil
}

// GetUserByID gets a user by user id. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByID(userID string) (*models.UserModel, error) {
	if cached := r.cacheGet(userID); cached != nil {
		return cached, nil
	}

	var users []models.UserModel
	err := r.DB.Where("user_id = ?", userID).Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) > 1 {
		return nil, fmt.Errorf("%w: %d users for user_id %s", ErrUniquenessViolation, len(users), userID)
	}
	if len(users) == 0 {
		return nil, nil
	}

	r.cacheSet(&users[0])
	return &users[0], nil
}

// GetUserByUsername gets a user by username, case-insensitively.
// Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByUsername(username string) (*models.UserModel, error) {
	var users []models.UserModel
	err := r.DB.Where("username ILIKE ?", username).Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) > 1 {
		return nil, fmt.Errorf("%w: %d users for username %s", ErrUniquenessViolation, len(users), username)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// GetUsersByIP gets all users that have been observed from the given
// client address. Zero-or-more result.
func (r *UserRepository) GetUsersByIP(ip string) ([]models.UserModel, error) {
	var users []models.UserModel
	err := r.DB.Where("? = ANY(ips)", ip).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserIDExists reports whether a user id is already taken. Used by the
// collision-retry id generator; always hits the database.
func (r *UserRepository) UserIDExists(userID string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.UserModel{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// cacheGet returns the cached user, or nil on miss or when no cache is
// configured. Cache failures are logged and treated as misses.
func (r *UserRepository) cacheGet(userID string) *models.UserModel {
	if r.redisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := r.redisClient.Get(ctx, userCacheKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		zaplogger.Warn("Discarding undecodable user cache entry", zaplogger.Fields{"user_id": userID, "error": err.Error()})
		return nil
	}
	return cached.toModel()
}

func (r *UserRepository) cacheSet(user *models.UserModel) {
	if r.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := json.Marshal(fromModel(user))
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, userCacheKey(user.UserID), data, userCacheTTL).Err(); err != nil {
		zaplogger.Warn("Failed to cache user", zaplogger.Fields{"user_id": user.UserID, "error": err.Error()})
	}
}

func (r *UserRepository) invalidateCache(userID string) {
	if r.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := r.redisClient.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		zaplogger.Warn("Failed to invalidate user cache", zaplogger.Fields{"user_id": userID, "error": err.Error()})
	}
}

func userCacheKey(userID string) string {
	return "tagbin:user:" + userID
}
