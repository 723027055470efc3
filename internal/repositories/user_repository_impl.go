package repositories

import (
	"context"
	"errors"
	"fmt"

	"cardvault/internal/models"
	"cardvault/internal/repositories/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewUserRepository(db *gorm.DB, cacheService *cache.CacheService) UserRepository {
	return &userRepository{db: db, cache: cacheService}
}

func (r *userRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id uuid.UUID) (*models.User, error) {
	ctx := context.Background()
	if r.cache != nil {
		if user, err := r.cache.GetUser(ctx, r.cache.GenerateKey("user", "id", id)); err == nil {
			return user, nil
		}
	}

	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheUser(ctx, &user); err != nil {
			// cache failures never fail the read
			_ = err
		}
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetAllPaginated(limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	r.invalidate(user)
	return nil
}

func (r *userRepository) Delete(id uuid.UUID) error {
	user, err := r.GetByID(id)
	if err != nil {
		return err
	}

	result := r.db.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	r.invalidate(user)
	return nil
}

func (r *userRepository) IncrementTokenVersion(id uuid.UUID) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment token version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if r.cache != nil {
		_ = r.cache.Delete(context.Background(), r.cache.GenerateKey("user", "id", id))
	}
	return nil
}

func (r *userRepository) invalidate(user *models.User) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(context.Background(),
		r.cache.GenerateKey("user", "id", user.ID),
		r.cache.GenerateKey("user", "email", user.Email),
	)
}
