package repository

import (
	"context"
	"testing"
	"time"

	"bayaniquest/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// uniqueViolationErr mimics the SQLSTATE the driver reports when an
// insert loses against the live-application unique index.
type uniqueViolationErr struct{}

func (uniqueViolationErr) Error() string    { return "duplicate key value violates unique constraint" }
func (uniqueViolationErr) SQLState() string { return "23505" }

func TestRepository_CreateApplication(t *testing.T) {
	questID := uuid.New()
	giverID := uuid.New()
	questerID := uuid.New()

	newApplication := func() *model.Application {
		return &model.Application{
			ID:        uuid.New(),
			QuestID:   questID,
			QuesterID: questerID,
			AppliedAt: time.Now(),
		}
	}

	t.Run("inserts pending and bumps the counter", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT count").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("INSERT INTO applications").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE quests SET applicant_count").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateApplication(context.Background(), newApplication())
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("live application already exists", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT count").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := repo.CreateApplication(context.Background(), newApplication())
		assert.ErrorIs(t, err, ErrAlreadyApplied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent apply loses on the unique index", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT count").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("INSERT INTO applications").
			WillReturnError(uniqueViolationErr{})
		mock.ExpectRollback()

		err := repo.CreateApplication(context.Background(), newApplication())
		assert.ErrorIs(t, err, ErrAlreadyApplied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quest no longer open", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "paused", 120000, 0))
		mock.ExpectRollback()

		err := repo.CreateApplication(context.Background(), newApplication())
		assert.ErrorIs(t, err, ErrQuestNotOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
