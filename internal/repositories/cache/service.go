package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardvault/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// CacheService wraps redis with JSON-encoded values and entity helpers.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// GenerateKey builds a namespaced cache key.
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Card caching. Entities are stored through dedicated cache records, not
// their API JSON shape: fields hidden from clients (cipher text, balance,
// version, password hash) must survive the round trip intact.

type cardRecord struct {
	ID           uuid.UUID         `json:"id"`
	NumberCipher string            `json:"number_cipher"`
	Mask         string            `json:"mask"`
	OwnerID      uuid.UUID         `json:"owner_id"`
	ExpiryDate   time.Time         `json:"expiry_date"`
	Status       models.CardStatus `json:"status"`
	Balance      int64             `json:"balance"`
	Version      uint              `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (s *CacheService) CacheCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return errors.New("cannot cache nil card")
	}
	rec := cardRecord{
		ID:           card.ID,
		NumberCipher: card.NumberCipher,
		Mask:         card.Mask,
		OwnerID:      card.OwnerID,
		ExpiryDate:   card.ExpiryDate,
		Status:       card.Status,
		Balance:      card.Balance,
		Version:      card.Version,
		CreatedAt:    card.CreatedAt,
		UpdatedAt:    card.UpdatedAt,
	}
	return s.SetWithTTL(ctx, s.GenerateKey("card", "id", card.ID), rec, 5*time.Minute)
}

func (s *CacheService) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var rec cardRecord
	if err := s.Get(ctx, s.GenerateKey("card", "id", id), &rec); err != nil {
		return nil, err
	}
	return &models.Card{
		ID:           rec.ID,
		NumberCipher: rec.NumberCipher,
		Mask:         rec.Mask,
		OwnerID:      rec.OwnerID,
		ExpiryDate:   rec.ExpiryDate,
		Status:       rec.Status,
		Balance:      rec.Balance,
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (s *CacheService) InvalidateCard(ctx context.Context, id uuid.UUID) error {
	return s.Delete(ctx, s.GenerateKey("card", "id", id))
}

// User caching

type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	TokenVersion int       `json:"token_version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	rec := userRecord{
		ID:           user.ID,
		Email:        user.Email,
		Password:     user.Password,
		Name:         user.Name,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	keys := []string{
		s.GenerateKey("user", "id", user.ID),
		s.GenerateKey("user", "email", user.Email),
	}
	for _, key := range keys {
		if err := s.Set(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *CacheService) GetUser(ctx context.Context, key string) (*models.User, error) {
	var rec userRecord
	if err := s.Get(ctx, key, &rec); err != nil {
		return nil, err
	}
	return &models.User{
		ID:           rec.ID,
		Email:        rec.Email,
		Password:     rec.Password,
		Name:         rec.Name,
		Role:         rec.Role,
		TokenVersion: rec.TokenVersion,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// FlushAll flushes all keys from the cache.
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection.
func (s *CacheService) Close() error {
	return s.client.Close()
}
