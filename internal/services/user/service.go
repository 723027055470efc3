// Package user handles registration and user administration.
package user

import (
	"errors"
	"fmt"

	"cardvault/internal/models"
	"cardvault/internal/repositories"
	"cardvault/internal/services/authz"
	"cardvault/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownRole  = errors.New("unknown role")
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain special characters")
)

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     string // defaults to "user"
}

type Service interface {
	Register(in RegisterInput) (*models.User, error)
	Get(p authz.Principal, id uuid.UUID) (*models.User, error)
	List(p authz.Principal, limit, offset int) ([]models.User, int64, error)
	Delete(p authz.Principal, id uuid.UUID) error
}

type service struct {
	userRepo repositories.UserRepository
}

func NewService(userRepo repositories.UserRepository) Service {
	return &service{
		userRepo: userRepo,
	}
}

func (s *service) Register(in RegisterInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if !validation.ValidPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		Password:     string(hashedPassword),
		Role:         role,
		TokenVersion: 1,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Get(p authz.Principal, id uuid.UUID) (*models.User, error) {
	if err := authz.Authorize(p, authz.OpUserRead, id); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(id)
}

func (s *service) List(p authz.Principal, limit, offset int) ([]models.User, int64, error) {
	if err := authz.Authorize(p, authz.OpUserList, uuid.Nil); err != nil {
		return nil, 0, err
	}
	return s.userRepo.GetAllPaginated(limit, offset)
}

func (s *service) Delete(p authz.Principal, id uuid.UUID) error {
	if err := authz.Authorize(p, authz.OpUserDelete, uuid.Nil); err != nil {
		return err
	}
	return s.userRepo.Delete(id)
}
