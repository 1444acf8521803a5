package mocks

import (
	"context"

	"bayaniquest/internal/model"
	"bayaniquest/pkg/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) TopUpBalance(ctx context.Context, id uuid.UUID, amount money.Amount) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockUserRepository) ListUsersByStatus(ctx context.Context, status model.UserStatus) ([]*model.User, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) ApproveUser(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, q *model.Quest) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuestRepository) GetQuestByID(ctx context.Context, id uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) SetQuestStatus(ctx context.Context, id uuid.UUID, from, to model.QuestStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockQuestRepository) DeleteQuest(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestRepository) CreateApplication(ctx context.Context, a *model.Application) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockQuestRepository) GetApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockQuestRepository) ListApplicationsByQuester(ctx context.Context, questerID uuid.UUID) ([]*model.Application, error) {
	args := m.Called(ctx, questerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Application), args.Error(1)
}

func (m *MockQuestRepository) ListApplicationsByQuest(ctx context.Context, questID uuid.UUID) ([]*model.Application, error) {
	args := m.Called(ctx, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Application), args.Error(1)
}

func (m *MockQuestRepository) RejectApplication(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestRepository) WithdrawApplication(ctx context.Context, id, questerID uuid.UUID) error {
	args := m.Called(ctx, id, questerID)
	return args.Error(0)
}

func (m *MockQuestRepository) HireApplicant(ctx context.Context, questID, applicationID, applicantID, giverID uuid.UUID) error {
	args := m.Called(ctx, questID, applicationID, applicantID, giverID)
	return args.Error(0)
}

func (m *MockQuestRepository) RejectOtherPending(ctx context.Context, questID, exceptApplicationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, questID, exceptApplicationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestRepository) CompleteQuest(ctx context.Context, questID, giverID uuid.UUID) error {
	args := m.Called(ctx, questID, giverID)
	return args.Error(0)
}

func (m *MockQuestRepository) CancelHire(ctx context.Context, questID, applicationID, giverID uuid.UUID) (money.Amount, error) {
	args := m.Called(ctx, questID, applicationID, giverID)
	return args.Get(0).(money.Amount), args.Error(1)
}

type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) GetApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockRatingRepository) RateCounterparty(ctx context.Context, applicationID uuid.UUID, direction model.RatingDirection, stars int, review *string) error {
	args := m.Called(ctx, applicationID, direction, stars, review)
	return args.Error(0)
}
