package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bayaniquest/internal/model"
	"bayaniquest/internal/repository"
	"bayaniquest/pkg/money"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TopUpAmount matches the fixed credit the profile page grants.
const TopUpAmount = money.Amount(1000000)

type UserService struct {
	repo         UserRepository
	signupCredit money.Amount
}

func NewUserService(repo UserRepository, signupCredit money.Amount) *UserService {
	return &UserService{
		repo:         repo,
		signupCredit: signupCredit,
	}
}

func (s *UserService) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &model.User{
		ID:               uuid.New(),
		Name:             name,
		Email:            email,
		PasswordHash:     string(hash),
		Status:           model.UserStatusPending,
		WalletBalance:    s.signupCredit,
		RegistrationDate: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) TopUp(ctx context.Context, userID uuid.UUID) (money.Amount, error) {
	err := s.repo.TopUpBalance(ctx, userID, TopUpAmount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to top up: %w", err)
	}
	return TopUpAmount, nil
}

func (s *UserService) ListUsersByStatus(ctx context.Context, status model.UserStatus) ([]*model.User, error) {
	return s.repo.ListUsersByStatus(ctx, status)
}

func (s *UserService) ApproveUser(ctx context.Context, id uuid.UUID) error {
	err := s.repo.ApproveUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to approve user: %w", err)
	}
	return nil
}
